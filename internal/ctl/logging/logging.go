// Package logging provides the file-backed logger for the admin CLI. The
// server uses the application logger; the CLI writes to its own rotated
// file so operator actions stay auditable.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"machhrelay/internal/config"
)

// NewLogger returns a logger writing to stdout and a rotated log file under
// the configured logs directory.
func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.GetLogDirectory(), "machhctl.log"),
		MaxSize:    cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
		MaxAge:     cfg.GetLogMaxAgeDays(),
		Compress:   true,
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
	return logger
}
