package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/infrastructure/config"
)

// NewLogger builds a configured logrus logger from application config.
// Output goes to stderr so command output on stdout stays clean.
func NewLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)
	switch cfg.Log.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}
