package load

import (
	"testing"
	"time"
)

func TestStagesTotalDuration(t *testing.T) {
	cases := []struct {
		desc   string
		stages Stages
		want   time.Duration
	}{
		{
			desc:   "empty",
			stages: Stages{},
			want:   0,
		},
		{
			desc:   "single",
			stages: Stages{{Duration: 30 * time.Second, Target: 2}},
			want:   30 * time.Second,
		},
		{
			desc:   "default schedule",
			stages: DefaultStages(),
			want:   4 * time.Minute,
		},
		{
			desc:   "zero length stage adds nothing",
			stages: Stages{{Duration: time.Second, Target: 1}, {Duration: 0, Target: 5}, {Duration: 2 * time.Second, Target: 0}},
			want:   3 * time.Second,
		},
	}
	for _, c := range cases {
		if got := c.stages.TotalDuration(); got != c.want {
			t.Errorf("%s: got %v want %v", c.desc, got, c.want)
		}
	}
}

func TestStagesTotalDurationIsAdditive(t *testing.T) {
	a := Stages{{Duration: 3 * time.Second, Target: 1}, {Duration: 7 * time.Second, Target: 4}}
	b := Stages{{Duration: 11 * time.Second, Target: 0}}
	joined := append(append(Stages{}, a...), b...)
	if got, want := joined.TotalDuration(), a.TotalDuration()+b.TotalDuration(); got != want {
		t.Errorf("concatenation not additive: got %v want %v", got, want)
	}
	reversed := Stages{b[0], a[1], a[0]}
	if got := reversed.TotalDuration(); got != joined.TotalDuration() {
		t.Errorf("order changed the total: got %v want %v", got, joined.TotalDuration())
	}
}

func TestStagesMaxTarget(t *testing.T) {
	if _, ok := (Stages{}).MaxTarget(); ok {
		t.Errorf("empty schedule reported a peak")
	}
	got, ok := DefaultStages().MaxTarget()
	if !ok || got != 10 {
		t.Errorf("got %d (%v) want 10", got, ok)
	}
}

func TestStagesTargetAt(t *testing.T) {
	stages := Stages{
		{Duration: 10 * time.Second, Target: 10},
		{Duration: 10 * time.Second, Target: 10},
		{Duration: 0, Target: 4},
		{Duration: 10 * time.Second, Target: 0},
	}
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{elapsed: -time.Second, want: 0},
		{elapsed: 0, want: 0},
		{elapsed: 999 * time.Millisecond, want: 0},
		{elapsed: time.Second, want: 1},
		{elapsed: 5 * time.Second, want: 5},
		{elapsed: 10 * time.Second, want: 10},
		{elapsed: 15 * time.Second, want: 10},
		// the zero length stage jumps straight to its target
		{elapsed: 20 * time.Second, want: 4},
		{elapsed: 22500 * time.Millisecond, want: 3},
		{elapsed: 29 * time.Second, want: 1},
		{elapsed: 30 * time.Second, want: 0},
		{elapsed: time.Hour, want: 0},
	}
	for _, c := range cases {
		if got := stages.TargetAt(c.elapsed); got != c.want {
			t.Errorf("TargetAt(%v): got %d want %d", c.elapsed, got, c.want)
		}
	}
}

func TestStagesTargetAtDrainsOnZeroTarget(t *testing.T) {
	stages := DefaultStages()
	if got := stages.TargetAt(stages.TotalDuration()); got != 0 {
		t.Errorf("final stage with target 0 did not drain: got %d", got)
	}
	if got := stages.TargetAt(stages.TotalDuration() - time.Millisecond); got == 0 {
		t.Errorf("drained before the end of the final stage")
	}
}

func TestParseStages(t *testing.T) {
	cases := []struct {
		in        string
		want      Stages
		shouldErr bool
	}{
		{
			in:   "30s:2",
			want: Stages{{Duration: 30 * time.Second, Target: 2}},
		},
		{
			in:   "30s:2, 1m:5,500ms:0",
			want: Stages{{Duration: 30 * time.Second, Target: 2}, {Duration: time.Minute, Target: 5}, {Duration: 500 * time.Millisecond, Target: 0}},
		},
		{in: "", shouldErr: true},
		{in: "30s", shouldErr: true},
		{in: "abc:2", shouldErr: true},
		{in: "30s:x", shouldErr: true},
		{in: "30s:-1", shouldErr: true},
		{in: "-30s:1", shouldErr: true},
	}
	for _, c := range cases {
		got, err := ParseStages(c.in)
		if c.shouldErr {
			if err == nil {
				t.Errorf("%q: expected error, got %v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", c.in, err)
			continue
		}
		if len(got) != len(c.want) {
			t.Fatalf("%q: got %d stages want %d", c.in, len(got), len(c.want))
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("%q: stage %d got %+v want %+v", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestStagesStringRoundTrip(t *testing.T) {
	in := DefaultStages()
	out, err := ParseStages(in.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != in.String() {
		t.Errorf("got %s want %s", out, in)
	}
}
