package profile

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode names one of the two threshold configurations. Both are legitimate
// operating modes picked by deployment context.
type Mode string

const (
	// ModePoC carries the relaxed bounds used for demos.
	ModePoC Mode = "poc"
	// ModeCI carries the bounds enforced in pipelines.
	ModeCI Mode = "ci"
)

// Modes lists every known mode.
func Modes() []string {
	return []string{string(ModePoC), string(ModeCI)}
}

// ParseMode accepts a mode name case-insensitively; empty selects ModePoC.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePoC:
		return ModePoC, nil
	case ModeCI:
		return ModeCI, nil
	default:
		return "", errors.Errorf("unknown mode %q, valid: %s", s, strings.Join(Modes(), ", "))
	}
}

// Thresholds returns the threshold expressions bound to each metric in m.
func (m Mode) Thresholds() map[string][]string {
	if m == ModeCI {
		return map[string][]string{
			"http_req_duration": {"p(95)<5000"},
			"http_req_failed":   {"rate<0.10"},
			"errors":            {"rate<0.10"},
		}
	}
	return map[string][]string{
		"http_req_duration": {"p(95)<2000"},
		"http_req_failed":   {"rate<0.20"},
		"errors":            {"rate<0.30"},
	}
}
