package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/campusnest/forum/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newTestLogger(buf *bytes.Buffer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:      "timestamp",
		LevelKey:     "level",
		MessageKey:   "message",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(NewScalyrEncoder(encoderConfig), zapcore.AddSync(buf), zapcore.InfoLevel)
	return zap.New(core)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Fatalf("Failed to parse JSON line %q: %v", line, err)
		}
		out = append(out, obj)
	}
	return out
}

func TestInitLogger(t *testing.T) {
	oldLogger := Logger
	defer func() { Logger = oldLogger }()

	for _, cfg := range []config.LoggingConfig{
		{Level: "INFO", Format: "json", ScalyrFormat: true},
		{Level: "debug", Format: "json"},
		{Level: "bogus", Format: "text"},
	} {
		if err := InitLogger(&cfg); err != nil {
			t.Fatalf("Failed to initialize logger %+v: %v", cfg, err)
		}
		if Logger == nil {
			t.Fatalf("Logger not set for %+v", cfg)
		}
	}
}

func TestScalyrEncoder(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info("test message",
		zap.String("key", "value"),
		zap.Int("page", 2),
		zap.Duration("took", 1500*time.Millisecond),
		zap.Error(errors.New("boom")),
	)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("Expected one line, got %d", len(lines))
	}
	logObj := lines[0]

	if logObj["message"] != "test message" {
		t.Errorf("Expected message 'test message', got: %v", logObj["message"])
	}
	if logObj["key"] != "value" {
		t.Errorf("Expected field 'key'='value', got: %v", logObj["key"])
	}
	if logObj["page"] != float64(2) {
		t.Errorf("Expected field 'page'=2, got: %v", logObj["page"])
	}
	if logObj["took"] != "1.5s" {
		t.Errorf("Expected duration as string, got: %v", logObj["took"])
	}
	if logObj["error"] != "boom" {
		t.Errorf("Expected error message, got: %v", logObj["error"])
	}
	if logObj["level"] != "info" {
		t.Errorf("Expected level info, got: %v", logObj["level"])
	}
	if _, ok := logObj["timestamp"]; !ok {
		t.Error("Expected 'timestamp' field in log output")
	}
}

func TestScalyrEncoderKeepsContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf).With(zap.String("component", "forum"))

	logger.Info("first")
	logger.With(zap.String("group_id", "g1")).Warn("second")
	logger.Info("third")

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("Expected three lines, got %d", len(lines))
	}
	for i, obj := range lines {
		if obj["component"] != "forum" {
			t.Errorf("line %d: missing component field: %v", i, obj)
		}
	}
	if lines[1]["group_id"] != "g1" {
		t.Errorf("Expected group_id on second line, got: %v", lines[1])
	}
	if _, leaked := lines[2]["group_id"]; leaked {
		t.Errorf("group_id leaked into parent logger: %v", lines[2])
	}
}
