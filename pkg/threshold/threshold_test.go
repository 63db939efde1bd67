package threshold

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mapLookup map[string]map[string]float64

func (m mapLookup) Value(metric, agg string) (float64, bool) {
	vals, ok := m[metric]
	if !ok {
		return 0, false
	}
	v, ok := vals[agg]
	return v, ok
}

func TestParse(t *testing.T) {
	cases := []struct {
		in        string
		want      Expression
		shouldErr bool
	}{
		{
			in:   "p(95)<2000",
			want: Expression{Source: "p(95)<2000", Aggregation: "p(95)", Percentile: 95, Operator: "<", Value: 2000},
		},
		{
			in:   " rate < 0.20 ",
			want: Expression{Source: "rate < 0.20", Aggregation: "rate", Operator: "<", Value: 0.2},
		},
		{
			in:   "p(99.9)<=300",
			want: Expression{Source: "p(99.9)<=300", Aggregation: "p(99.9)", Percentile: 99.9, Operator: "<=", Value: 300},
		},
		{
			in:   "count>=10",
			want: Expression{Source: "count>=10", Aggregation: "count", Operator: ">=", Value: 10},
		},
		{in: "p95<2000", shouldErr: true},
		{in: "rate<", shouldErr: true},
		{in: "rate=<0.1", shouldErr: true},
		{in: "median<3", shouldErr: true},
		{in: "p(101)<3", shouldErr: true},
		{in: "", shouldErr: true},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if c.shouldErr {
			if err == nil {
				t.Errorf("%q: expected error, got %+v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", c.in, err)
			continue
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("%q: mismatch (-want +got):\n%s", c.in, diff)
		}
	}
}

func TestExpressionHolds(t *testing.T) {
	cases := []struct {
		expr   string
		actual float64
		want   bool
	}{
		{"rate<0.2", 0.19, true},
		{"rate<0.2", 0.2, false},
		{"rate<=0.2", 0.2, true},
		{"count>5", 5, false},
		{"count>=5", 5, true},
		{"value==3", 3, true},
		{"value!=3", 3, false},
	}
	for _, c := range cases {
		e, err := Parse(c.expr)
		if err != nil {
			t.Fatalf("%q: %v", c.expr, err)
		}
		if got := e.Holds(c.actual); got != c.want {
			t.Errorf("%q with %v: got %v want %v", c.expr, c.actual, got, c.want)
		}
	}
}

func TestNewSet(t *testing.T) {
	set, err := NewSet(map[string][]string{
		"http_req_failed":   {"rate<0.20"},
		"http_req_duration": {"p(95)<2000", "p(99)<4000", "avg<1000"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 2 || set[0].Metric != "http_req_duration" {
		t.Fatalf("set not ordered by metric: %+v", set)
	}
	if diff := cmp.Diff([]float64{95, 99}, set.Percentiles()); diff != "" {
		t.Errorf("percentiles mismatch (-want +got):\n%s", diff)
	}
	if got := set.Raw()["http_req_duration"]; len(got) != 3 {
		t.Errorf("raw round trip lost expressions: %v", got)
	}

	if _, err := NewSet(map[string][]string{"http_req_failed": {"nope"}}); err == nil {
		t.Errorf("expected error for invalid expression")
	}
	if _, err := NewSet(map[string][]string{"bad name": {"rate<1"}}); err == nil {
		t.Errorf("expected error for invalid metric name")
	}
}

func TestEvaluate(t *testing.T) {
	set, err := NewSet(map[string][]string{
		"http_req_duration": {"p(95)<2000"},
		"http_req_failed":   {"rate<0.20"},
		"errors":            {"rate<0.30"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	passing := mapLookup{
		"http_req_duration": {"p(95)": 1500},
		"http_req_failed":   {"rate": 0.05},
		"errors":            {"rate": 0.1},
	}
	res := set.Evaluate(passing)
	if !res.Passed() {
		t.Errorf("expected pass, failed: %+v", res.Failed())
	}
	if len(res) != 3 {
		t.Errorf("got %d results want 3", len(res))
	}

	failing := mapLookup{
		"http_req_duration": {"p(95)": 1500},
		"http_req_failed":   {"rate": 0.05},
		"errors":            {"rate": 0.35},
	}
	res = set.Evaluate(failing)
	if res.Passed() {
		t.Errorf("expected failure with error rate above bound")
	}
	failed := res.Failed()
	if len(failed) != 1 || failed[0].Metric != "errors" || failed[0].Actual != 0.35 {
		t.Errorf("unexpected failures: %+v", failed)
	}
}

func TestEvaluateMissingMetricFails(t *testing.T) {
	set, err := NewSet(map[string][]string{"errors": {"rate<0.30"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := set.Evaluate(mapLookup{})
	if res.Passed() {
		t.Errorf("missing metric passed")
	}
	if res[0].Found {
		t.Errorf("missing metric reported as found")
	}
	if got := res.ForMetric("errors"); len(got) != 1 {
		t.Errorf("ForMetric got %d want 1", len(got))
	}
}
