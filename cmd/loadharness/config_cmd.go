package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/cicdpoc/loadharness/load"
	"github.com/cicdpoc/loadharness/pkg/client"
	"github.com/cicdpoc/loadharness/pkg/profile"
	"github.com/cicdpoc/loadharness/pkg/report"
)

const writeConfigTo = "./config.yaml"

func initConfigCMD() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate example config yaml file and save it to " + writeConfigTo,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := cmd.Flags().GetString("mode")
			if err != nil {
				return err
			}
			if err := writeExampleConfig(out, mode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote example config to: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", writeConfigTo, "where to write the example config")
	cmd.Flags().String("mode", string(profile.ModePoC), "mode whose thresholds are written")
	return cmd
}

// exampleStage is a stage as it is written to YAML.
type exampleStage struct {
	Duration string `yaml:"duration"`
	Target   int    `yaml:"target"`
}

type exampleConfig struct {
	APIURL         string              `yaml:"api-url"`
	Mode           string              `yaml:"mode"`
	Stages         []exampleStage      `yaml:"stages"`
	Thresholds     map[string][]string `yaml:"thresholds"`
	Tick           string              `yaml:"tick"`
	GracefulStop   string              `yaml:"graceful-stop"`
	RequestTimeout string              `yaml:"request-timeout"`
	SummaryExport  string              `yaml:"summary-export"`
}

func newExampleConfig(modeName string) (*exampleConfig, error) {
	mode, err := profile.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	stages := load.DefaultStages()
	conf := &exampleConfig{
		APIURL:         profile.DefaultBaseURL,
		Mode:           string(mode),
		Stages:         make([]exampleStage, len(stages)),
		Thresholds:     mode.Thresholds(),
		Tick:           load.DefaultTick.String(),
		GracefulStop:   load.DefaultGracefulStop.String(),
		RequestTimeout: client.DefaultTimeout.String(),
		SummaryExport:  report.DefaultExportPath,
	}
	for i, st := range stages {
		conf.Stages[i] = exampleStage{Duration: st.Duration.String(), Target: st.Target}
	}
	return conf, nil
}

func writeExampleConfig(path, mode string) error {
	conf, err := newExampleConfig(mode)
	if err != nil {
		return err
	}
	configInBytes, err := yaml.Marshal(conf)
	if err != nil {
		return errors.Wrap(err, "could not convert example config to yaml")
	}
	if err := os.WriteFile(path, configInBytes, 0o644); err != nil {
		return errors.Wrapf(err, "could not write sample config to file %s", path)
	}
	return nil
}
