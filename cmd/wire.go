package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bnema/job-launcher/internal/adapters/comlink"
	"github.com/bnema/job-launcher/internal/adapters/hostfile"
	summaryadapter "github.com/bnema/job-launcher/internal/adapters/render/summary"
	reporttoml "github.com/bnema/job-launcher/internal/adapters/report/toml"
	"github.com/bnema/job-launcher/internal/adapters/resolve"
	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var errSetup = errors.New("setup failed")

type app struct {
	log             *logrus.Logger
	fs              afero.Fs
	hosts           ports.HostSource
	resolver        ports.Resolver
	channel         ports.ControlChannel
	clock           ports.Clock
	summaryRenderer func(domain.SessionSummary, summaryadapter.RenderOptions) (string, error)
}

func wireApp(cfg launcherConfig, stderr io.Writer) (*app, error) {
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return nil, err
	}

	resolver, err := wireResolver(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: wire resolver: %w", errSetup, err)
	}

	fs := afero.NewOsFs()
	channel := comlink.NewClient(comlink.Options{
		DialTimeout:   cfg.DialTimeout,
		SendTimeout:   cfg.SendTimeout,
		MaxFrameBytes: cfg.MaxFrameBytes,
		Logger:        logger,
	})

	return &app{
		log:             logger,
		fs:              fs,
		hosts:           hostfile.NewLoader(fs),
		resolver:        resolver,
		channel:         channel,
		clock:           ports.SystemClock{},
		summaryRenderer: summaryadapter.Render,
	}, nil
}

func wireResolver(cfg launcherConfig) (ports.Resolver, error) {
	if cfg.Nameserver == "" {
		return resolve.NewSystem(nil), nil
	}

	return resolve.NewDNSFirstWithSystemFallback(cfg.Nameserver, cfg.DialTimeout)
}

func (a *app) reportWriter(path string) (ports.ReportWriter, error) {
	writer, err := reporttoml.NewWriter(a.fs, path)
	if err != nil {
		return nil, err
	}
	return writer, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
