package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/job-launcher/internal/ports"
)

const (
	InstanceEnv      = "LAUNCHER_INSTANCE"
	defaultWaitDelay = 2 * time.Second
)

var ErrExecutableNotFound = errors.New("executable not found")

type runFunc func(cmd *exec.Cmd) error

// Runner starts one OS process per instance. Output of every instance is
// funnelled into a single writer.
type Runner struct {
	shell  bool
	output io.Writer
	run    runFunc
}

var _ ports.ProcessRunner = (*Runner)(nil)

type Options struct {
	// Shell runs the executable string through "sh -c".
	Shell  bool
	Output io.Writer
}

func NewRunner(opts Options) *Runner {
	output := opts.Output
	if output == nil {
		output = io.Discard
	}
	return &Runner{
		shell:  opts.Shell,
		output: &lockedWriter{w: output},
		run:    func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

func (r *Runner) Run(ctx context.Context, executable string, instance int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd, err := r.command(ctx, executable)
	if err != nil {
		return err
	}
	cmd.Env = append(os.Environ(), InstanceEnv+"="+strconv.Itoa(instance))
	cmd.WaitDelay = defaultWaitDelay

	var stderr bytes.Buffer
	cmd.Stdout = r.output
	cmd.Stderr = io.MultiWriter(r.output, &stderr)

	if err := r.run(cmd); err != nil {
		return formatError(executable, instance, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

func (r *Runner) command(ctx context.Context, executable string) (*exec.Cmd, error) {
	if r.shell {
		return exec.CommandContext(ctx, "sh", "-c", executable), nil
	}

	path, err := exec.LookPath(executable)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrExecutableNotFound, executable)
		}
		return nil, fmt.Errorf("locate executable %q: %w", executable, err)
	}

	return exec.CommandContext(ctx, path), nil
}

func formatError(executable string, instance int, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("run %q instance %d: %w", executable, instance, err)
	}

	return fmt.Errorf("run %q instance %d: %w: %s", executable, instance, err, stderr)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
