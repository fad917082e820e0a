package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerDebugSuppressedAtInfo(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, "info")

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)

	if strings.Contains(out.String(), "hidden") {
		t.Errorf("debug line written at info level: %q", out.String())
	}
	if !strings.Contains(out.String(), "shown 2") {
		t.Errorf("info line missing: %q", out.String())
	}
}

func TestLoggerDebugEnabled(t *testing.T) {
	var out bytes.Buffer
	l := NewLoggerTo(&out, &out, "DEBUG")

	l.Debug("tally %s", "ok")
	if !strings.Contains(out.String(), "tally ok") {
		t.Errorf("debug line missing: %q", out.String())
	}
}

func TestLoggerErrorsGoToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, "info")

	l.Error("boom")
	if out.Len() != 0 {
		t.Errorf("error written to out: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "boom") {
		t.Errorf("error line missing: %q", errOut.String())
	}
}
