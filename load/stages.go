package load

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	stageSeparator      = ","
	stageFieldSeparator = ":"
	stageFormatError    = "stage could not be parsed. Required: 'duration:target' e.g. '30s:5'"
)

// Stage is one window of the ramp: over Duration the number of active
// virtual users moves toward Target.
type Stage struct {
	Duration time.Duration `mapstructure:"duration" yaml:"duration" json:"duration"`
	Target   int           `mapstructure:"target" yaml:"target" json:"target"`
}

// Stages is the ordered ramp schedule of a run.
type Stages []Stage

// DefaultStages is the warm up, normal load, peak and ramp down profile used
// when neither the config file nor the flags name a schedule.
func DefaultStages() Stages {
	return Stages{
		{Duration: 30 * time.Second, Target: 2},
		{Duration: 30 * time.Second, Target: 5},
		{Duration: time.Minute, Target: 5},
		{Duration: 30 * time.Second, Target: 10},
		{Duration: 30 * time.Second, Target: 10},
		{Duration: 30 * time.Second, Target: 0},
	}
}

// ParseStages parses the compact form '30s:2,1m:5,30s:0'.
func ParseStages(s string) (Stages, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty stage list")
	}
	parts := strings.Split(s, stageSeparator)
	stages := make(Stages, 0, len(parts))
	for _, part := range parts {
		fields := strings.SplitN(strings.TrimSpace(part), stageFieldSeparator, 2)
		if len(fields) != 2 {
			return nil, errors.Errorf("%s: got %q", stageFormatError, part)
		}
		d, err := time.ParseDuration(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "stage %q", part)
		}
		target, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "stage %q", part)
		}
		stages = append(stages, Stage{Duration: d, Target: target})
	}
	return stages, stages.Validate()
}

// Validate checks durations and targets are non-negative.
func (s Stages) Validate() error {
	if len(s) == 0 {
		return errors.New("at least one stage is required")
	}
	for i, st := range s {
		if st.Duration < 0 {
			return errors.Errorf("stage %d: negative duration %v", i, st.Duration)
		}
		if st.Target < 0 {
			return errors.Errorf("stage %d: negative target %d", i, st.Target)
		}
	}
	return nil
}

// TotalDuration is the wall clock length of the schedule.
func (s Stages) TotalDuration() time.Duration {
	var total time.Duration
	for _, st := range s {
		total += st.Duration
	}
	return total
}

// MaxTarget returns the peak target across all stages; ok is false for an
// empty schedule.
func (s Stages) MaxTarget() (max int, ok bool) {
	if len(s) == 0 {
		return 0, false
	}
	return lo.Max(lo.Map(s, func(st Stage, _ int) int { return st.Target })), true
}

// TargetAt returns the number of virtual users that should be active after
// elapsed time. Within a stage the count moves linearly from the previous
// stage's target (0 before the first stage) and is truncated toward the
// previous target, so each stage reaches its target exactly at its end.
func (s Stages) TargetAt(elapsed time.Duration) int {
	if len(s) == 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	from := 0
	var stageStart time.Duration
	for _, st := range s {
		stageEnd := stageStart + st.Duration
		if elapsed < stageEnd {
			progress := float64(elapsed-stageStart) / float64(st.Duration)
			return from + int(float64(st.Target-from)*progress)
		}
		from = st.Target
		stageStart = stageEnd
	}
	return s[len(s)-1].Target
}

// String renders the schedule in the compact flag form.
func (s Stages) String() string {
	parts := make([]string, len(s))
	for i, st := range s {
		parts[i] = fmt.Sprintf("%s%s%d", st.Duration, stageFieldSeparator, st.Target)
	}
	return strings.Join(parts, stageSeparator)
}
