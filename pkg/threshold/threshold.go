// Package threshold parses and evaluates the pass/fail predicates checked
// against the aggregated metrics once a run has finished.
package threshold

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	expressionRe = regexp.MustCompile(`^\s*(avg|min|med|max|count|rate|value|p\((\d+(?:\.\d+)?)\))\s*(<=|>=|==|!=|<|>)\s*(-?\d+(?:\.\d+)?)\s*$`)
	metricNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Expression is one parsed predicate such as p(95)<2000.
type Expression struct {
	Source      string
	Aggregation string
	Percentile  float64
	Operator    string
	Value       float64
}

// Parse parses "<aggregation> <operator> <number>".
func Parse(src string) (Expression, error) {
	m := expressionRe.FindStringSubmatch(src)
	if m == nil {
		return Expression{}, errors.Errorf("invalid threshold expression %q", src)
	}
	expr := Expression{
		Source:      strings.TrimSpace(src),
		Aggregation: m[1],
		Operator:    m[3],
	}
	if m[2] != "" {
		p, err := strconv.ParseFloat(m[2], 64)
		if err != nil || p > 100 {
			return Expression{}, errors.Errorf("invalid percentile in threshold expression %q", src)
		}
		expr.Percentile = p
		expr.Aggregation = "p(" + strconv.FormatFloat(p, 'f', -1, 64) + ")"
	}
	v, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Expression{}, errors.Wrapf(err, "threshold expression %q", src)
	}
	expr.Value = v
	return expr, nil
}

// Holds reports whether actual satisfies the expression.
func (e Expression) Holds(actual float64) bool {
	switch e.Operator {
	case "<":
		return actual < e.Value
	case "<=":
		return actual <= e.Value
	case ">":
		return actual > e.Value
	case ">=":
		return actual >= e.Value
	case "==":
		return actual == e.Value
	case "!=":
		return actual != e.Value
	}
	return false
}

// Threshold binds a metric to its expressions.
type Threshold struct {
	Metric      string
	Expressions []Expression
}

// Set is every threshold of a run, ordered by metric name.
type Set []Threshold

// NewSet parses a metric -> expressions mapping.
func NewSet(raw map[string][]string) (Set, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(Set, 0, len(raw))
	for _, name := range names {
		if !metricNameRe.MatchString(name) {
			return nil, errors.Errorf("invalid metric name %q in thresholds", name)
		}
		th := Threshold{Metric: name}
		for _, src := range raw[name] {
			expr, err := Parse(src)
			if err != nil {
				return nil, errors.Wrapf(err, "metric %s", name)
			}
			th.Expressions = append(th.Expressions, expr)
		}
		set = append(set, th)
	}
	return set, nil
}

// Percentiles returns every percentile any expression refers to.
func (s Set) Percentiles() []float64 {
	var out []float64
	for _, th := range s {
		for _, e := range th.Expressions {
			if strings.HasPrefix(e.Aggregation, "p(") {
				out = append(out, e.Percentile)
			}
		}
	}
	return out
}

// Raw returns the set back in its metric -> expressions form.
func (s Set) Raw() map[string][]string {
	raw := make(map[string][]string, len(s))
	for _, th := range s {
		for _, e := range th.Expressions {
			raw[th.Metric] = append(raw[th.Metric], e.Source)
		}
	}
	return raw
}

// Lookup resolves an aggregated metric value.
type Lookup interface {
	Value(metric, aggregation string) (float64, bool)
}

// Result is the verdict of one expression.
type Result struct {
	Metric     string
	Expression string
	Actual     float64
	Found      bool
	OK         bool
}

// Results is the outcome of evaluating a Set.
type Results []Result

// Evaluate checks every expression against the final metrics. An expression
// whose metric or aggregation is absent fails.
func (s Set) Evaluate(lookup Lookup) Results {
	var results Results
	for _, th := range s {
		for _, e := range th.Expressions {
			actual, found := lookup.Value(th.Metric, e.Aggregation)
			results = append(results, Result{
				Metric:     th.Metric,
				Expression: e.Source,
				Actual:     actual,
				Found:      found,
				OK:         found && e.Holds(actual),
			})
		}
	}
	return results
}

// Passed reports whether every expression held.
func (r Results) Passed() bool {
	for _, res := range r {
		if !res.OK {
			return false
		}
	}
	return true
}

// Failed returns the expressions that did not hold.
func (r Results) Failed() Results {
	var out Results
	for _, res := range r {
		if !res.OK {
			out = append(out, res)
		}
	}
	return out
}

// ForMetric returns the results bound to metric.
func (r Results) ForMetric(metric string) Results {
	var out Results
	for _, res := range r {
		if res.Metric == metric {
			out = append(out, res)
		}
	}
	return out
}
