package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "json info", level: "info", format: "json"},
		{name: "console debug", level: "DEBUG", format: "console"},
		{name: "default format", level: "warn", format: ""},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if l == nil && !tt.wantErr {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestEncoderConfig_FieldNames(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(&buf), zap.InfoLevel)
	zap.New(core).Info("probe finished", zap.Int("status", 200))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	for _, key := range []string{"timestamp", "level", "message", "status"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("log line missing %q: %s", key, buf.String())
		}
	}
	if entry["message"] != "probe finished" {
		t.Errorf("message = %v, want %q", entry["message"], "probe finished")
	}
}
