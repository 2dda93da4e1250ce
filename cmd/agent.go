package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/job-launcher/internal/adapters/comlink"
	"github.com/bnema/job-launcher/internal/adapters/process"
	"github.com/bnema/job-launcher/internal/application"
	"github.com/spf13/cobra"
)

type agentOptions struct {
	listen     string
	configFile string
	logLevel   string
	logFormat  string
	shellOut   bool
}

func ExecuteAgent() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newAgentRootCmd().ExecuteContext(ctx)
}

func newAgentRootCmd() *cobra.Command {
	var opts agentOptions

	rootCmd := &cobra.Command{
		Use:   "launchd",
		Short: "Run job instances on behalf of a remote launcher",
		Long: "launchd accepts control connections from launcher, starts the requested executable as N parallel " +
			"instances and reports back once they have all exited.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAgent(cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.listen, "listen", "", "Listen address (default :<comlink.port>)")
	flags.StringVar(&opts.configFile, "config", "", "Config file (default $HOME/.config/launcher/config.toml)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")
	flags.BoolVar(&opts.shellOut, "shell-out", false, "Run the executable string through sh -c")

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func runAgent(cmd *cobra.Command, opts agentOptions) error {
	v, err := loadConfig(cmd, opts.configFile, map[string]string{
		keyLogLevel:  "log-level",
		keyLogFormat: "log-format",
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(v.GetString(keyLogLevel), v.GetString(keyLogFormat), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	listen := opts.listen
	if listen == "" {
		listen = fmt.Sprintf(":%d", v.GetInt(keyPort))
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	hostname = envOrDefault("LAUNCHD_HOSTNAME", hostname)

	runner := process.NewRunner(process.Options{Shell: opts.shellOut, Output: cmd.OutOrStdout()})
	agent := application.NewAgent(runner, hostname, logger)
	server := comlink.NewServer(agent, comlink.Options{
		SendTimeout:   v.GetDuration(keySendTimeout),
		MaxFrameBytes: v.GetInt(keyMaxFrameBytes),
		Logger:        logger,
	})

	if err := server.ListenAndServe(cmd.Context(), listen); err != nil {
		return fmt.Errorf("%w: %w", errSetup, err)
	}
	return nil
}
