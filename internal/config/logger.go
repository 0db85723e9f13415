package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	AuditFile string `mapstructure:"audit_file"` // destination of the audit consumer
}

// NewLogger creates the process logger.  Unknown levels fall back to info.
func NewLogger(cfg LogConfig, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000",
		Level:           level,
		Prefix:          "depot-yard",
	})
}

// AuditWriter returns a size-rotated writer for the audit log file.
func (c LogConfig) AuditWriter() (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(c.AuditFile), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   c.AuditFile,
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		MaxAge:     90, // days
		Compress:   true,
	}, nil
}
