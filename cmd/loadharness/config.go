package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/cicdpoc/loadharness/load"
	"github.com/cicdpoc/loadharness/pkg/profile"
	"github.com/cicdpoc/loadharness/pkg/threshold"
)

// RunConfig is the resolved configuration of a load run. Stages and
// thresholds have their own decoding and are excluded from Unmarshal.
type RunConfig struct {
	APIURL         string              `mapstructure:"api-url"`
	Mode           string              `mapstructure:"mode"`
	Stages         load.Stages         `mapstructure:"-"`
	Thresholds     map[string][]string `mapstructure:"-"`
	Runner         load.RunnerConfig   `mapstructure:",squash"`
	RequestTimeout time.Duration       `mapstructure:"request-timeout"`
	MaxRPS         float64             `mapstructure:"max-rps"`
	SummaryExport  string              `mapstructure:"summary-export"`
	PrintInterval  time.Duration       `mapstructure:"print-interval"`
	MetricsAddr    string              `mapstructure:"metrics-addr"`
	WaitReady      time.Duration       `mapstructure:"wait-ready"`
	Seed           int64               `mapstructure:"seed"`
	NoColor        bool                `mapstructure:"no-color"`
	Debug          int                 `mapstructure:"debug"`
}

// resolvedRun is a RunConfig with its derived values parsed.
type resolvedRun struct {
	RunConfig
	profile    profile.Profile
	mode       profile.Mode
	thresholds threshold.Set
}

func parseRunConfig(v *viper.Viper) (*resolvedRun, error) {
	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "could not decode configuration")
	}
	mode, err := profile.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	cfg.Mode = string(mode)

	if cfg.Stages, err = parseStages(v); err != nil {
		return nil, err
	}

	cfg.Thresholds = v.GetStringMapStringSlice(thresholdsKey)
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = mode.Thresholds()
	}
	set, err := threshold.NewSet(cfg.Thresholds)
	if err != nil {
		return nil, errors.Wrap(err, "invalid thresholds")
	}

	if cfg.RequestTimeout < 0 || cfg.WaitReady < 0 || cfg.PrintInterval < 0 || cfg.MaxRPS < 0 {
		return nil, errors.New("durations and max-rps must not be negative")
	}
	return &resolvedRun{
		RunConfig:  cfg,
		profile:    profile.Resolve(cfg.APIURL),
		mode:       mode,
		thresholds: set,
	}, nil
}

// parseStages accepts the compact flag or env form, or a list from the
// config file.
func parseStages(v *viper.Viper) (load.Stages, error) {
	switch raw := v.Get(stagesKey).(type) {
	case nil:
		return load.DefaultStages(), nil
	case string:
		if raw == "" {
			return load.DefaultStages(), nil
		}
		return load.ParseStages(raw)
	default:
		var stages load.Stages
		if err := v.UnmarshalKey(stagesKey, &stages); err != nil {
			return nil, errors.Wrap(err, "could not decode stages")
		}
		if err := stages.Validate(); err != nil {
			return nil, err
		}
		return stages, nil
	}
}
