package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/sirupsen/logrus"
)

func newLogger(level string, format string, w io.Writer) (*logrus.Logger, error) {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", domain.ErrConfig, level)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(parsed)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("%w: log format %q", domain.ErrConfig, format)
	}

	return logger, nil
}
