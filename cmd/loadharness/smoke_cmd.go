package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cicdpoc/loadharness/internal/logging"
	"github.com/cicdpoc/loadharness/pkg/smoke"
)

func initSmokeCMD(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Probe the target endpoints once and report each result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := parseRunConfig(a.v)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Debug > 0)
			if err != nil {
				return err
			}
			defer logger.Sync()

			results := smoke.Run(cmd.Context(), cfg.profile, newClient(cfg, logger), logger)
			if err := results.Write(cmd.OutOrStdout(), cfg.NoColor); err != nil {
				return err
			}
			if results.Failed() {
				return errors.New("smoke probes failed")
			}
			return nil
		},
	}
	fs := pflag.NewFlagSet("", pflag.ContinueOnError)
	addTargetFlags(fs)
	cmd.Flags().AddFlagSet(fs)
	return cmd
}
