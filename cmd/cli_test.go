package cmd

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/bnema/job-launcher/internal/adapters/comlink"
	"github.com/bnema/job-launcher/internal/adapters/resolve"
	reporttoml "github.com/bnema/job-launcher/internal/adapters/report/toml"
	"github.com/bnema/job-launcher/internal/application"
	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/version"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchCompletesAgainstLocalAgent(t *testing.T) {
	home := t.TempDir()
	port := startLocalAgent(t, runnerFunc(func(ctx context.Context, executable string, instance int) error {
		return nil
	}))
	t.Setenv("LAUNCHER_COMLINK_PORT", strconv.Itoa(port))
	hosts := writeHostFile(t, home, "127.0.0.1\n\n127.0.0.1\n")
	reportPath := filepath.Join(home, "reports", "last.toml")

	stdout, _, err := executeCLI(t, home, "-np", "2", "-hostfile", hosts, "--report", reportPath, "/opt/app")
	require.NoError(t, err)
	assert.Equal(t, ExitOK, ExitCode(err))

	assert.Contains(t, stdout, "launcher: instances = 2, hostfile = "+hosts+", exec = /opt/app\n")
	assert.Contains(t, stdout, "launcher: host name: 127.0.0.1\n")
	assert.Contains(t, stdout, "host(0) = 127.0.0.1\n")
	assert.Contains(t, stdout, "host(1) = 127.0.0.1\n")
	assert.Contains(t, stdout, "agent-1: 2 instance(s) of /opt/app finished, 0 failed\n")
	assert.Contains(t, stdout, "launcher: recvd ack from all\n")
	assert.Contains(t, stdout, "Launch Summary")
	assert.Contains(t, stdout, "2/2 acknowledged")

	writer, err := reporttoml.NewWriter(afero.NewOsFs(), reportPath)
	require.NoError(t, err)
	report, err := writer.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, report.State)
	assert.Equal(t, domain.JobSpec{Instances: 2, Executable: "/opt/app"}, report.Job)
	assert.Len(t, report.Hosts, 2)
}

func TestLaunchRejectsInstanceCountOutOfRange(t *testing.T) {
	home := t.TempDir()
	hosts := writeHostFile(t, home, "node-a\n")

	for _, np := range []string{"0", "101", "-3"} {
		stdout, _, err := executeCLI(t, home, "-np", np, "-hostfile", hosts, "/opt/app")
		require.ErrorIs(t, err, domain.ErrConfig, "np=%s", np)
		assert.Equal(t, ExitSetup, ExitCode(err))
		assert.NotContains(t, stdout, "host(0)")
	}
}

func TestLaunchMissingHostFileFailsWithLoadError(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "-np", "1", "-hostfile", filepath.Join(home, "missing"), "/opt/app")
	require.ErrorIs(t, err, domain.ErrLoad)
	assert.Equal(t, ExitSetup, ExitCode(err))
}

func TestLaunchRequiresArguments(t *testing.T) {
	home := t.TempDir()
	hosts := writeHostFile(t, home, "node-a\n")

	testCases := []struct {
		name string
		args []string
	}{
		{name: "missing executable", args: []string{"-np", "1", "-hostfile", hosts}},
		{name: "two executables", args: []string{"-np", "1", "-hostfile", hosts, "/opt/a", "/opt/b"}},
		{name: "missing hostfile", args: []string{"-np", "1", "/opt/app"}},
		{name: "unknown flag", args: []string{"-np", "1", "-hostfile", hosts, "--bogus", "/opt/app"}},
		{name: "bad np value", args: []string{"-np", "many", "-hostfile", hosts, "/opt/app"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := executeCLI(t, home, tc.args...)
			require.ErrorIs(t, err, domain.ErrConfig)
			assert.Equal(t, ExitSetup, ExitCode(err))
		})
	}
}

func TestLaunchEmptyHostFileIsConfigError(t *testing.T) {
	home := t.TempDir()
	hosts := writeHostFile(t, home, "\n\n")

	_, _, err := executeCLI(t, home, "-np", "1", "-hostfile", hosts, "/opt/app")
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestLaunchFailsWhenNoHostIsReachable(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LAUNCHER_COMLINK_PORT", strconv.Itoa(closedPort(t)))
	hosts := writeHostFile(t, home, "127.0.0.1\n")

	stdout, _, err := executeCLI(t, home, "-np", "1", "-hostfile", hosts, "--dial-timeout", "1s", "/opt/app")
	require.ErrorIs(t, err, domain.ErrNoReachableHosts)
	assert.Equal(t, ExitSetup, ExitCode(err))
	assert.Contains(t, stdout, "state: failed")
	assert.NotContains(t, stdout, "host(0) = ")
}

func TestLaunchAckTimeoutStopsHosts(t *testing.T) {
	home := t.TempDir()
	stopped := make(chan struct{}, 1)
	port := startLocalAgent(t, runnerFunc(func(ctx context.Context, executable string, instance int) error {
		<-ctx.Done()
		stopped <- struct{}{}
		return ctx.Err()
	}))
	t.Setenv("LAUNCHER_COMLINK_PORT", strconv.Itoa(port))
	hosts := writeHostFile(t, home, "127.0.0.1\n")

	stdout, _, err := executeCLI(t, home, "-np", "1", "-hostfile", hosts, "--ack-timeout", "200ms", "/bin/sleep")
	require.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, stdout, "state: cancelled (acknowledgment timeout)")
	assert.NotContains(t, stdout, "recvd ack from all")

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop the running instance")
	}
}

func TestLaunchInterruptCancelsSession(t *testing.T) {
	home := t.TempDir()
	started := make(chan struct{}, 1)
	port := startLocalAgent(t, runnerFunc(func(ctx context.Context, executable string, instance int) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}))
	t.Setenv("LAUNCHER_COMLINK_PORT", strconv.Itoa(port))
	hosts := writeHostFile(t, home, "127.0.0.1\n")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	stdout, _, err := executeCLIContext(t, ctx, home, "-np", "1", "-hostfile", hosts, "/bin/sleep")
	require.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, stdout, "Ctrl+C, exiting")
	assert.Contains(t, stdout, "state: cancelled (interrupted)")
}

func TestLaunchVersionFlag(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, version.Version)
}

func TestLoadLauncherConfigLayering(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	configPath := filepath.Join(home, "launcher.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`[log]
level = "debug"

[comlink]
port = 26001
max_frame_bytes = 4096

[session]
ack_timeout = "1s"
stop_timeout = "2s"
connect_concurrency = 4
`), 0o600))
	t.Setenv("LAUNCHER_COMLINK_PORT", "26002")

	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--ack-timeout", "3s"}))

	cfg, err := loadLauncherConfig(root, configPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 26002, cfg.Port)
	assert.Equal(t, 4096, cfg.MaxFrameBytes)
	assert.Equal(t, 3*time.Second, cfg.AckTimeout)
	assert.Equal(t, 2*time.Second, cfg.StopTimeout)
	assert.Equal(t, 4, cfg.ConnectConcurrency)
	assert.Equal(t, comlink.DefaultDialTimeout, cfg.DialTimeout)
}

func TestLoadLauncherConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadLauncherConfig(newRootCmd(), "")
	require.NoError(t, err)
	assert.Equal(t, application.DefaultPort, cfg.Port)
	assert.Equal(t, comlink.DefaultMaxFrameBytes, cfg.MaxFrameBytes)
	assert.Zero(t, cfg.AckTimeout)
	assert.Equal(t, application.DefaultStopTimeout, cfg.StopTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadLauncherConfigStopTimeoutFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--stop-timeout", "750ms"}))
	cfg, err := loadLauncherConfig(root, "")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.StopTimeout)

	root = newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--stop-timeout", "0s"}))
	_, err = loadLauncherConfig(root, "")
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestWireResolverChainsNameserverBeforeSystem(t *testing.T) {
	resolver, err := wireResolver(launcherConfig{})
	require.NoError(t, err)
	assert.IsType(t, &resolve.System{}, resolver)

	resolver, err = wireResolver(launcherConfig{Nameserver: "127.0.0.1:53", DialTimeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &resolve.Chain{}, resolver)
}

func TestLoadLauncherConfigRejectsBadValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LAUNCHER_COMLINK_PORT", "70000")

	_, err := loadLauncherConfig(newRootCmd(), "")
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = loadLauncherConfig(newRootCmd(), filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestNormalizeArgs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "original style", in: []string{"-np", "4", "-hostfile", "hosts", "./app"}, want: []string{"--np", "4", "--hostfile", "hosts", "./app"}},
		{name: "inline values", in: []string{"-np=4", "-hostfile=hosts"}, want: []string{"--np=4", "--hostfile=hosts"}},
		{name: "double dash untouched", in: []string{"--np", "2", "--log-level", "debug"}, want: []string{"--np", "2", "--log-level", "debug"}},
		{name: "other short flags untouched", in: []string{"-h"}, want: []string{"-h"}},
		{name: "after terminator", in: []string{"--np", "1", "--", "-np"}, want: []string{"--np", "1", "--", "-np"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeArgs(tc.in))
		})
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitSetup, ExitCode(domain.ErrConfig))
	assert.Equal(t, ExitSetup, ExitCode(errors.Join(errors.New("open"), domain.ErrLoad)))
	assert.Equal(t, ExitSetup, ExitCode(domain.ErrNoReachableHosts))
	assert.Equal(t, ExitSetup, ExitCode(errSetup))
	assert.Equal(t, ExitFailure, ExitCode(domain.ErrCancelled))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	_, err := newLogger("loud", "text", &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = newLogger("info", "xml", &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrConfig)

	var buf bytes.Buffer
	logger, err := newLogger("warn", "json", &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.WithField("host", "node-a").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"host":"node-a"`)
}

func TestAgentCommandStopsWithContext(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := newAgentRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--listen", "127.0.0.1:0"})
	require.NoError(t, root.ExecuteContext(ctx))
}

func TestAgentCommandRejectsBadLogLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	root := newAgentRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--listen", "127.0.0.1:0", "--log-level", "loud"})
	err := root.ExecuteContext(context.Background())
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestAgentVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	root := newAgentRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "launchd "+version.Version)
	assert.Contains(t, stdout.String(), runtime.Version())
}

type runnerFunc func(ctx context.Context, executable string, instance int) error

func (f runnerFunc) Run(ctx context.Context, executable string, instance int) error {
	return f(ctx, executable, instance)
}

func startLocalAgent(t *testing.T, runner runnerFunc) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	server := comlink.NewServer(application.NewAgent(runner, "agent-1", nil), comlink.Options{})
	go func() { served <- server.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-served
	})

	return ln.Addr().(*net.TCPAddr).Port
}

func closedPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func writeHostFile(t *testing.T, dir string, content string) string {
	t.Helper()

	path := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIContext(t, context.Background(), home, args...)
}

func executeCLIContext(t *testing.T, ctx context.Context, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(normalizeArgs(args))

	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}
