package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bnema/job-launcher/internal/adapters/comlink"
	"github.com/bnema/job-launcher/internal/application"
	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/version"
	"github.com/spf13/cobra"
)

type launchOptions struct {
	instances   int
	hostfile    string
	configFile  string
	reportPath  string
	logLevel    string
	logFormat   string
	ackTimeout  time.Duration
	stopTimeout time.Duration
	dialTimeout time.Duration
	nameserver  string
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var opts launchOptions

	rootCmd := &cobra.Command{
		Use:   "launcher -np <instances> -hostfile <path> <executable>",
		Short: "Launch an executable on every host of a host file",
		Long: "launcher connects to the launchd agent on every host listed in the host file, asks each one to start " +
			"the executable as N parallel instances, and waits until every reachable host reports completion. " +
			"Ctrl+C stops the job on every host.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrConfig, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, opts, args[0])
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", domain.ErrConfig, err)
	})

	flags := rootCmd.Flags()
	flags.IntVar(&opts.instances, "np", 0, fmt.Sprintf("Instances to start on every host (1-%d)", domain.MaxInstances))
	flags.StringVar(&opts.hostfile, "hostfile", "", "File listing one host name per line")
	flags.StringVar(&opts.configFile, "config", "", "Config file (default $HOME/.config/launcher/config.toml)")
	flags.StringVar(&opts.reportPath, "report", "", "Write a TOML session report to this path")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")
	flags.DurationVar(&opts.ackTimeout, "ack-timeout", 0, "Cancel the job when hosts have not acknowledged within this duration (0 waits forever)")
	flags.DurationVar(&opts.stopTimeout, "stop-timeout", application.DefaultStopTimeout, "How long cancellation waits to deliver stop to the hosts")
	flags.DurationVar(&opts.dialTimeout, "dial-timeout", comlink.DefaultDialTimeout, "Connection timeout per host")
	flags.StringVar(&opts.nameserver, "nameserver", "", "Resolve host names through this DNS server first (host:port)")

	return rootCmd
}

func runLaunch(cmd *cobra.Command, opts launchOptions, executable string) error {
	if strings.TrimSpace(opts.hostfile) == "" {
		return fmt.Errorf("%w: host file is required (-hostfile)", domain.ErrConfig)
	}

	job := domain.JobSpec{Instances: opts.instances, Executable: executable}
	if err := job.Validate(); err != nil {
		return err
	}

	cfg, err := loadLauncherConfig(cmd, opts.configFile)
	if err != nil {
		return err
	}

	app, err := wireApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "launcher: instances = %d, hostfile = %s, exec = %s\n", job.Instances, opts.hostfile, job.Executable)

	records, err := app.hosts.Load(ctx, opts.hostfile)
	if err != nil {
		return err
	}
	for _, record := range records {
		_, _ = fmt.Fprintf(out, "launcher: host name: %s\n", record.Hostname)
	}

	session := application.NewSession(app.channel, app.resolver, app.clock, application.SessionConfig{
		Port:               cfg.Port,
		AckTimeout:         cfg.AckTimeout,
		StopTimeout:        cfg.StopTimeout,
		ConnectConcurrency: cfg.ConnectConcurrency,
		Logger:             app.log,
		Output:             out,
	})
	app.log.WithField("session", session.ID()).Debug("session created")

	_, runErr := session.Run(ctx, job, domain.NewRegistry(records))

	summary := session.Snapshot()
	if summary.State != domain.StateUninitialized {
		if err := writeSummaryOutput(cmd, app, summary); err != nil {
			app.log.WithError(err).Warn("session summary not rendered")
		}
	}
	if opts.reportPath != "" {
		if err := writeReport(context.WithoutCancel(ctx), app, opts.reportPath, summary); err != nil {
			app.log.WithError(err).Warn("session report not written")
		}
	}

	return runErr
}
