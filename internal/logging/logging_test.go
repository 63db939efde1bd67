package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	cases := []struct {
		debug     bool
		wantDebug bool
	}{
		{debug: false, wantDebug: false},
		{debug: true, wantDebug: true},
	}
	for _, c := range cases {
		logger, err := New(c.debug)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := logger.Core().Enabled(zapcore.DebugLevel); got != c.wantDebug {
			t.Errorf("debug=%v: debug level enabled got %v want %v", c.debug, got, c.wantDebug)
		}
		if !logger.Core().Enabled(zapcore.InfoLevel) {
			t.Errorf("debug=%v: info level disabled", c.debug)
		}
	}
}
