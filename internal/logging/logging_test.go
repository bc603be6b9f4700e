package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		level, format string
		wantLevel     zapcore.Level
		wantEncoding  string
		wantErr       bool
	}{
		{"", "", zapcore.WarnLevel, "console", false},
		{"debug", "json", zapcore.DebugLevel, "json", false},
		{"INFO", "console", zapcore.InfoLevel, "console", false},
		{"loud", "", 0, "", true},
		{"info", "xml", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			cfg, err := Config(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Config() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := cfg.Level.Level(); got != tt.wantLevel {
				t.Errorf("level = %s, want %s", got, tt.wantLevel)
			}
			if cfg.Encoding != tt.wantEncoding {
				t.Errorf("encoding = %q, want %q", cfg.Encoding, tt.wantEncoding)
			}
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New("error", "json")
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn enabled at error level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error not enabled at error level")
	}
}
