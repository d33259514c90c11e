package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. level is any zap level name ("" means
// info). format "console" selects the development encoder; anything else
// writes JSON to stdout. service_name and hostname are attached to every entry.
func NewLogger(level, format, serviceName string) (*zap.Logger, error) {
	atomic := zap.NewAtomicLevel()
	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		atomic = parsed
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = atomic
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	fields := map[string]interface{}{}
	if serviceName != "" {
		fields["service_name"] = serviceName
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		fields["hostname"] = host
	}
	cfg.InitialFields = fields

	return cfg.Build()
}
