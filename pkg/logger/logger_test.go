package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: WarnLevel, Writer: &buf, NoColor: true})

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info message to be filtered, got %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "shown") {
		t.Errorf("Expected warn message in output, got %q", out)
	}
}

func TestLoggerFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: DebugLevel, Writer: &buf, NoColor: true}).
		WithPrefix("swarm").
		WithFields(map[string]interface{}{"zeta": 1, "alpha": 2})

	l.Debug("tick")

	out := buf.String()
	if !strings.Contains(out, "[swarm] alpha=2 zeta=1 tick") {
		t.Errorf("Expected prefix and sorted fields, got %q", out)
	}
}

func TestChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithConfig(Config{Level: InfoLevel, Writer: &buf, NoColor: true})
	child := root.WithField("drone", 3)

	root.(*logger).out.level = ErrorLevel
	child.Warn("suppressed")

	if buf.Len() != 0 {
		t.Errorf("Expected child to follow root level, got %q", buf.String())
	}
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: InfoLevel, Writer: &buf, NoColor: true}).(*logger)
	code := -1
	l.out.exit = func(c int) { code = c }

	l.Fatal("boom")

	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"bogus", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestTableFprint(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("Metric", "Value")
	table.AddRow("spread", "12.50")
	table.Fprint(&buf, true)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[2], "spread  12.50") {
		t.Errorf("Expected aligned row, got %q", lines[2])
	}
}

func TestWithSpinnerReportsOutcome(t *testing.T) {
	var buf bytes.Buffer
	previous := Default()
	SetDefault(NewWithConfig(Config{Level: InfoLevel, Writer: &buf, NoColor: true}))
	defer SetDefault(previous)

	if err := WithSpinner("Connecting", func() error { return nil }); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if !strings.Contains(buf.String(), "Connecting completed") {
		t.Errorf("Expected success line, got %q", buf.String())
	}

	buf.Reset()
	err := WithSpinner("Dialing", func() error { return errors.New("refused") })
	if err == nil || err.Error() != "refused" {
		t.Errorf("Expected the callback error to be returned, got %v", err)
	}
	if !strings.Contains(buf.String(), "Dialing failed: refused") {
		t.Errorf("Expected failure line, got %q", buf.String())
	}
}
