package monitoring

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// Set to nil and verify it doesn't call the previous logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestSetWarnLogger(t *testing.T) {
	original := Warnf
	defer func() { Warnf = original }()

	var got string
	SetWarnLogger(func(format string, v ...interface{}) { got = format })
	Warnf("skipped %d", 3)
	if got != "skipped %d" {
		t.Errorf("warn logger got %q", got)
	}

	SetWarnLogger(nil)
	Warnf("muted")
}

func TestUseLogrus(t *testing.T) {
	origLogf, origWarnf := Logf, Warnf
	defer func() { Logf, Warnf = origLogf, origWarnf }()

	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	UseLogrus(l)
	Logf("cycle %d done", 7)
	Warnf("chip %d out of partition", 12)

	out := buf.String()
	if !strings.Contains(out, "cycle 7 done") || !strings.Contains(out, "level=info") {
		t.Errorf("info line missing in %q", out)
	}
	if !strings.Contains(out, "chip 12 out of partition") || !strings.Contains(out, "level=warning") {
		t.Errorf("warning line missing in %q", out)
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil || Warnf == nil {
		t.Fatal("log hooks should not be nil by default")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()
	Logf("test message: %s", "value")
}
