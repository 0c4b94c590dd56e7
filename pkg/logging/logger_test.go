package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLevel(t *testing.T) {
	for _, tc := range []struct {
		env  string
		want log.Level
	}{
		{"", log.InfoLevel},
		{"debug", log.DebugLevel},
		{"WARN", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"verbose", log.InfoLevel},
	} {
		t.Setenv("XDF_LOG_LEVEL", tc.env)
		if got := Level(); got != tc.want {
			t.Errorf("XDF_LOG_LEVEL=%q: Level() = %v, want %v", tc.env, got, tc.want)
		}
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Setenv("XDF_LOG_LEVEL", "warn")
	t.Setenv("XDF_LOG_PREFIX", "test")

	var buf bytes.Buffer
	lg := NewWithWriter(&buf)
	defer lg.Close()

	lg.Info("hidden")
	lg.Warn("shown", "table", "Fuel")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	for _, want := range []string{"shown", "test", "table=Fuel"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}
