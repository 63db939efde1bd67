package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cicdpoc/loadharness/internal/logging"
	"github.com/cicdpoc/loadharness/load"
	"github.com/cicdpoc/loadharness/pkg/client"
	"github.com/cicdpoc/loadharness/pkg/metrics"
	"github.com/cicdpoc/loadharness/pkg/report"
	"github.com/cicdpoc/loadharness/pkg/scenario"
	"github.com/cicdpoc/loadharness/pkg/threshold"
)

func initRunCMD(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the staged load test against the target",
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLoad(ctx, cfg, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().AddFlagSet(runCmdFlags())
	return cmd
}

// newClient builds the transport shared by every virtual user.
func newClient(cfg *resolvedRun, logger *zap.Logger) *client.Client {
	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), 1)
	}
	return client.New(cfg.profile.BaseURL, client.Options{
		Timeout: cfg.RequestTimeout,
		Limiter: limiter,
		Debug:   cfg.Debug,
		Logger:  logger,
	})
}

func runLoad(ctx context.Context, cfg *resolvedRun, out io.Writer, logger *zap.Logger) error {
	logger.Info("resolved target",
		zap.String("base-url", cfg.profile.BaseURL),
		zap.Stringer("profile", cfg.profile.Kind),
		zap.String("mode", string(cfg.mode)))

	c := newClient(cfg, logger)
	if err := load.WaitReady(ctx, c, cfg.profile.Endpoints()[0].Path, cfg.WaitReady, load.DefaultReadyInterval, logger); err != nil {
		return err
	}

	var exporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		exporter = metrics.NewExporter()
		if _, err := exporter.Start(ctx, cfg.MetricsAddr, logger); err != nil {
			return err
		}
	}

	proc := metrics.NewProcessor(&metrics.ProcessorArgs{
		PrintInterval: cfg.PrintInterval,
		Percentiles:   cfg.thresholds.Percentiles(),
		Exporter:      exporter,
		Logger:        logger,
	})
	proc.Start()

	scfg := scenario.DefaultConfig(cfg.profile, cfg.mode)
	scfg.Seed = cfg.Seed
	builder := scenario.NewBuilder(scfg, c, proc)
	logger.Info("scenario",
		zap.Stringer("profile", cfg.profile.Kind),
		zap.Strings("checks", builder.CheckNames()),
	)

	runner, err := load.NewRunner(cfg.Runner, cfg.Stages, builder, proc, logger)
	if err != nil {
		proc.CloseAndWait()
		return err
	}
	took, runErr := runner.Run(ctx)
	proc.CloseAndWait()

	snap := proc.Snapshot(took)
	results := cfg.thresholds.Evaluate(snap)
	opts := report.NewOptions(cfg.profile.BaseURL, cfg.profile.Kind.String(), string(cfg.mode), cfg.Stages, cfg.thresholds)
	doc := report.Build(opts, snap, results)

	if cfg.SummaryExport != "" {
		if err := doc.WriteFile(cfg.SummaryExport); err != nil {
			return err
		}
		logger.Info("wrote result document", zap.String("path", cfg.SummaryExport))
	}
	if err := report.NewSummary(cfg.NoColor).Write(out, doc, results); err != nil {
		return errors.Wrap(err, "could not write summary")
	}

	if runErr != nil {
		return errors.Wrap(runErr, "run interrupted")
	}
	return thresholdsError(results)
}

func thresholdsError(results threshold.Results) error {
	failed := results.Failed()
	if len(failed) == 0 {
		return nil
	}
	crossed := make([]string, len(failed))
	for i, r := range failed {
		crossed[i] = r.Metric + " " + r.Expression
	}
	return &exitCodeError{
		code: exitThresholdsFailed,
		err:  errors.Errorf("thresholds crossed: %s", strings.Join(crossed, ", ")),
	}
}
