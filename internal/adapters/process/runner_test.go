package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerSetsInstanceEnvironment(t *testing.T) {
	t.Parallel()

	var captured *exec.Cmd
	runner := NewRunner(Options{Shell: true})
	runner.run = func(cmd *exec.Cmd) error {
		captured = cmd
		return nil
	}

	require.NoError(t, runner.Run(context.Background(), "/opt/app --flag", 3))
	require.NotNil(t, captured)
	assert.Equal(t, []string{"sh", "-c", "/opt/app --flag"}, captured.Args)
	assert.Contains(t, captured.Env, "LAUNCHER_INSTANCE=3")
}

func TestRunnerReturnsClearError(t *testing.T) {
	t.Parallel()

	runner := NewRunner(Options{Shell: true})
	runner.run = func(cmd *exec.Cmd) error {
		_, _ = cmd.Stderr.Write([]byte("segmentation fault\n"))
		return errors.New("exit status 139")
	}

	err := runner.Run(context.Background(), "/opt/app", 1)
	require.Error(t, err)
	assert.ErrorContains(t, err, `run "/opt/app" instance 1`)
	assert.ErrorContains(t, err, "exit status 139")
	assert.ErrorContains(t, err, "segmentation fault")
}

func TestRunnerReportsMissingExecutable(t *testing.T) {
	t.Parallel()

	err := NewRunner(Options{}).Run(context.Background(), "/nonexistent/launcher-test-binary", 0)
	require.ErrorIs(t, err, ErrExecutableNotFound)
}

func TestRunnerSkipsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(Options{Shell: true})
	runner.run = func(cmd *exec.Cmd) error {
		t.Fatal("command must not run")
		return nil
	}

	require.ErrorIs(t, runner.Run(ctx, "/opt/app", 0), context.Canceled)
}

func TestRunnerExecutesThroughShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	var out bytes.Buffer
	runner := NewRunner(Options{Shell: true, Output: &out})

	require.NoError(t, runner.Run(context.Background(), `echo "instance $LAUNCHER_INSTANCE"`, 7))
	assert.Equal(t, "instance 7", strings.TrimSpace(out.String()))

	err := runner.Run(context.Background(), "exit 3", 0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "exit status 3")
}
