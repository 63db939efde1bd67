package main

import (
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/cicdpoc/loadharness/load"
	"github.com/cicdpoc/loadharness/pkg/client"
	"github.com/cicdpoc/loadharness/pkg/profile"
	"github.com/cicdpoc/loadharness/pkg/report"
)

const (
	apiURLKey     = "api-url"
	stagesKey     = "stages"
	thresholdsKey = "thresholds"
)

func addTargetFlags(fs *pflag.FlagSet) {
	fs.String(apiURLKey, profile.DefaultBaseURL, "Base URL of the target; also read from API_URL")
	fs.String("mode", string(profile.ModePoC), "Threshold and latency budget mode, valid: "+strings.Join(profile.Modes(), ", "))
	fs.Duration("request-timeout", client.DefaultTimeout, "Timeout of a single request")
	fs.Int("debug", 0, "Debug printing (choices: 0, 1, 2)")
	fs.Bool("no-color", false, "Disable colored output")
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.String(stagesKey, "", "Ramp stages as 'duration:target,...' e.g. '30s:2,1m:5,30s:0' (default: the built-in ramp)")
	load.RunnerConfig{}.AddToFlagSet(fs)
	fs.Float64("max-rps", 0, "Cap on requests per second across all virtual users (0 = unlimited)")
	fs.String("summary-export", report.DefaultExportPath, "File the JSON result document is written to ('' to skip)")
	fs.Duration("print-interval", 10*time.Second, "Period of progress log lines (0 to disable)")
	fs.String("metrics-addr", "", "Serve live Prometheus metrics on this address, e.g. ':9090' ('' to disable)")
	fs.Duration("wait-ready", 0, "Wait up to this long for the target to answer before starting (0 to skip)")
	fs.Int64("seed", 0, "PRNG seed of the random pauses (default: 0, which uses the current timestamp)")
}

func runCmdFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("", pflag.ContinueOnError)
	addTargetFlags(fs)
	addRunFlags(fs)
	return fs
}
