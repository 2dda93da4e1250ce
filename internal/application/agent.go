package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Agent executes jobs on behalf of a remote launcher, one control connection
// at a time per Serve call.
type Agent struct {
	runner   ports.ProcessRunner
	hostname string
	log      logrus.FieldLogger
}

type jobRun struct {
	job      domain.JobSpec
	cancel   context.CancelFunc
	done     chan struct{}
	finished atomic.Bool
}

func (r *jobRun) stop() {
	r.cancel()
	<-r.done
}

func NewAgent(runner ports.ProcessRunner, hostname string, logger logrus.FieldLogger) *Agent {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Agent{
		runner:   runner,
		hostname: hostname,
		log:      logger.WithField("agent", hostname),
	}
}

// Serve handles one control connection until the peer closes it or ctx is
// cancelled. Instances still running at that point are cancelled.
func (a *Agent) Serve(ctx context.Context, conn ports.AgentConn) error {
	log := a.log.WithField("peer", conn.RemoteAddr())
	log.Info("launcher connected")

	var (
		job     domain.JobSpec
		current *jobRun
	)
	defer func() {
		if current != nil {
			current.stop()
		}
	}()

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				log.Info("launcher disconnected")
				return nil
			}
			return fmt.Errorf("receive control message: %w", err)
		}

		switch msg.Type {
		case domain.MessageProcInstances:
			job.Instances = msg.Count
		case domain.MessageExecFilename:
			job.Executable = msg.Text
		case domain.MessageControl:
			switch msg.Directive() {
			case domain.DirectiveStart:
				if current != nil {
					current.stop()
					current = nil
				}
				if err := job.Validate(); err != nil {
					log.WithError(err).Warn("rejecting start directive")
					a.reply(ctx, conn, fmt.Sprintf("%s: rejected start: %v", a.hostname, err))
					continue
				}
				current = a.launch(ctx, conn, job)
			case domain.DirectiveStop:
				if current == nil || current.finished.Load() {
					a.reply(ctx, conn, fmt.Sprintf("%s: nothing to stop", a.hostname))
					current = nil
					continue
				}
				current.stop()
				a.reply(ctx, conn, fmt.Sprintf("%s: stopped %s", a.hostname, current.job.Executable))
				current = nil
			default:
				log.WithField("directive", msg.Text).Warn("unknown control directive")
			}
		default:
			log.WithField("type", msg.Type).Debug("ignoring message")
		}
	}
}

func (a *Agent) launch(ctx context.Context, conn ports.AgentConn, job domain.JobSpec) *jobRun {
	runCtx, cancel := context.WithCancel(ctx)
	run := &jobRun{job: job, cancel: cancel, done: make(chan struct{})}

	log := a.log.WithFields(logrus.Fields{"executable": job.Executable, "instances": job.Instances})
	log.Info("starting instances")

	go func() {
		defer close(run.done)

		failed := a.runInstances(runCtx, job)
		if runCtx.Err() != nil {
			log.Info("instances cancelled")
			return
		}

		run.finished.Store(true)
		log.WithField("failed", failed).Info("instances finished")
		a.reply(ctx, conn, fmt.Sprintf("%s: %d instance(s) of %s finished, %d failed", a.hostname, job.Instances, job.Executable, failed))
	}()

	return run
}

func (a *Agent) runInstances(ctx context.Context, job domain.JobSpec) int {
	var failed atomic.Int64
	var g errgroup.Group
	for i := 0; i < job.Instances; i++ {
		g.Go(func() error {
			if err := a.runner.Run(ctx, job.Executable, i); err != nil {
				failed.Add(1)
				a.log.WithError(err).WithField("instance", i).Warn("instance failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(failed.Load())
}

func (a *Agent) reply(ctx context.Context, conn ports.AgentConn, line string) {
	if err := conn.Send(ctx, domain.Status(line)); err != nil {
		a.log.WithError(err).Warn("send status to launcher")
	}
}
