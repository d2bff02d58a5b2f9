package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Level: "debug", Format: "json"}
	l := NewWithWriter(cfg, "svc", &buf)

	l.WithComponent("eventkit.observe").Debug("stage disposed", Fields(FieldOperator, "debounce"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "stage disposed" {
		t.Errorf("unexpected message %v", line["message"])
	}
	if line[FieldComponent] != "eventkit.observe" {
		t.Errorf("expected component field, got %v", line[FieldComponent])
	}
	if line[FieldOperator] != "debounce" {
		t.Errorf("expected operator field, got %v", line[FieldOperator])
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "warn", Format: "json"}, "svc", &buf)
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info must be filtered at warn level, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "nope", Format: "json"}, "test", &buf)
	l.Info("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("invalid level should fall back to info")
	}
}

func TestWithErrorAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "json"}, "svc", &buf)
	l.WithError(errors.New("boom")).WithFields(Fields(FieldDispatcher, "pool")).Error("failed")

	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("expected error field, got %q", out)
	}
	if !strings.Contains(out, `"dispatcher":"pool"`) {
		t.Errorf("expected dispatcher field, got %q", out)
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "svc", &buf)
	l.Info("hello")
	if !strings.Contains(buf.String(), "[INF]") {
		t.Errorf("expected console level tag, got %q", buf.String())
	}
}

func TestSetGlobalLogger_ResetsNamedCache(t *testing.T) {
	defer SetGlobalLogger(nil)

	var first, second bytes.Buffer
	SetGlobalLogger(NewWithWriter(&Config{Level: "info", Format: "json"}, "a", &first))
	Get("eventkit.test").Info("one")

	SetGlobalLogger(NewWithWriter(&Config{Level: "info", Format: "json"}, "b", &second))
	Get("eventkit.test").Info("two")

	if !strings.Contains(first.String(), "one") || strings.Contains(first.String(), "two") {
		t.Errorf("first logger got %q", first.String())
	}
	if !strings.Contains(second.String(), "two") {
		t.Errorf("second logger got %q", second.String())
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Fatal("expected a default global logger")
	}
}

func TestInit(t *testing.T) {
	defer SetGlobalLogger(nil)
	Init(Config{Level: "debug", Format: "json", ServiceName: "kit"})
	if got := GetGlobalLogger().service; got != "kit" {
		t.Errorf("expected service 'kit', got %q", got)
	}
}

func TestGet_AllLevels(t *testing.T) {
	defer SetGlobalLogger(nil)
	var buf bytes.Buffer
	SetGlobalLogger(NewWithWriter(&Config{Level: "debug", Format: "json"}, "svc", &buf))

	l := Get("eventkit.observe")
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	if got := strings.Count(buf.String(), "\n"); got != 4 {
		t.Errorf("expected 4 lines, got %d: %q", got, buf.String())
	}
	if got := strings.Count(buf.String(), `"component":"eventkit.observe"`); got != 4 {
		t.Errorf("expected every line tagged with the component, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	Nop().Error("nothing happens")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: "json", Output: "stdout"}, false},
		{"pretty", Config{Level: "info", Format: "pretty", Output: "stderr"}, false},
		{"bad level", Config{Level: "verbose", Format: "json", Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("catch", errors.New("bad"))
	if ef[FieldOperator] != "catch" || ef[FieldError] != "bad" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("worker", 1500*time.Millisecond)
	if df[FieldDispatcher] != "worker" || df[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration fields %v", df)
	}
}
