package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cicdpoc/loadharness/internal/utils"
)

// app holds what every subcommand shares.
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	rootCmd := &cobra.Command{
		Use:           "loadharness",
		Short:         "Run staged load tests with response validation and thresholds",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}
	// don't bind --config and --env-file, they locate the configuration itself
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the configuration is resolved")

	rootCmd.AddCommand(initRunCMD(a), initSmokeCMD(a), initConfigCMD())
	return rootCmd
}

func (a *app) initConfig(cmd *cobra.Command) error {
	if err := utils.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	utils.SetupEnv(a.v)
	if err := a.v.BindEnv(apiURLKey, "API_URL", utils.EnvPrefix+"_API_URL"); err != nil {
		return err
	}
	used, err := utils.SetupConfigFile(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if used != "" {
		cmd.PrintErrln("Using config file:", used)
	}
	return nil
}
