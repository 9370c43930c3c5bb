package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{" INFO ", INFO},
		{"warn", WARN},
		{"error", ERROR},
		{"", WARN},
		{"verbose", WARN},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	origLevel := defaultLogger.sink.level
	defer func() { defaultLogger.sink.level = origLevel }()

	SetLevel(DEBUG)
	if defaultLogger.sink.level != DEBUG {
		t.Error("SetLevel did not change level")
	}
}

func TestWithField_DoesNotModifyParent(t *testing.T) {
	base := New(&bytes.Buffer{}, INFO).WithField("existing", "value")

	logger := base.WithField("new", "field")

	if logger.fields["existing"] != "value" {
		t.Error("existing field not preserved")
	}
	if logger.fields["new"] != "field" {
		t.Error("new field not added")
	}
	if _, ok := base.fields["new"]; ok {
		t.Error("original logger was modified")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, WARN)

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() > 0 {
		t.Errorf("DEBUG/INFO should be filtered at WARN, got %q", buf.String())
	}

	logger.Warn("warn %s", "message")
	if !strings.Contains(buf.String(), "[WARN] warn message") {
		t.Errorf("WARN not written: %q", buf.String())
	}
}

func TestLogger_DerivedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, ERROR)
	child := root.WithField("component", "executor")

	child.Warn("hidden")
	if buf.Len() > 0 {
		t.Fatalf("expected nothing, got %q", buf.String())
	}

	root.sink.level = DEBUG
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible | component=executor") {
		t.Errorf("derived logger did not follow root level: %q", buf.String())
	}
}

func TestLogger_FieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, DEBUG).WithFields(map[string]interface{}{
		"zeta":  1,
		"alpha": 2,
	})

	logger.Info("hello")

	out := buf.String()
	if strings.Index(out, "alpha=2") > strings.Index(out, "zeta=1") {
		t.Errorf("fields not sorted: %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("color codes written to non-terminal: %q", out)
	}
}
