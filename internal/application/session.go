package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPort               = 25000
	DefaultConnectConcurrency = 16
	DefaultStopTimeout        = 5 * time.Second
)

type SessionConfig struct {
	Port               int
	AckTimeout         time.Duration
	StopTimeout        time.Duration
	ConnectConcurrency int
	Logger             logrus.FieldLogger
	Output             io.Writer
}

type Result struct {
	State        domain.SessionState
	Reason       domain.CancelReason
	Active       int
	Acknowledged int
}

// Session drives one job dispatch across a fixed host list. Every field below
// mu is guarded by it, including the receive and peer-shutdown callbacks that
// run on transport goroutines.
type Session struct {
	channel  ports.ControlChannel
	resolver ports.Resolver
	clock    ports.Clock
	cfg      SessionConfig
	log      logrus.FieldLogger
	out      io.Writer
	id       uuid.UUID

	mu          sync.Mutex
	state       domain.SessionState
	reason      domain.CancelReason
	job         domain.JobSpec
	hosts       []domain.HostRecord
	byHandle    map[domain.Handle]int
	activeCount int
	ackedCount  int
	acked       *roaring.Bitmap
	startFailed *roaring.Bitmap
	statuses    []domain.HostStatus
	valid       bool
	startedAt   time.Time
	finishedAt  time.Time
	done        chan struct{}
}

type target struct {
	index    int
	hostname string
	handle   domain.Handle
}

type connectResult struct {
	address string
	handle  domain.Handle
	err     error
}

func NewSession(channel ports.ControlChannel, resolver ports.Resolver, clock ports.Clock, cfg SessionConfig) *Session {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.ConnectConcurrency <= 0 {
		cfg.ConnectConcurrency = DefaultConnectConcurrency
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		cfg.Logger = discard
	}

	id := uuid.New()
	return &Session{
		channel:     channel,
		resolver:    resolver,
		clock:       clock,
		cfg:         cfg,
		log:         cfg.Logger.WithField("session", id.String()),
		out:         &lockedWriter{w: cfg.Output},
		id:          id,
		state:       domain.StateUninitialized,
		byHandle:    map[domain.Handle]int{},
		acked:       roaring.New(),
		startFailed: roaring.New(),
		done:        make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id.String()
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once cleanup has run.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run drives the whole lifecycle: configure, connect, start, then wait for
// completion or cancellation.
func (s *Session) Run(ctx context.Context, job domain.JobSpec, registry domain.Registry) (Result, error) {
	if err := s.Configure(job, registry); err != nil {
		return s.result(), err
	}
	if err := s.Connect(ctx); err != nil {
		return s.result(), err
	}
	if err := s.Start(ctx); err != nil {
		return s.result(), err
	}

	return s.Wait(ctx)
}

func (s *Session) Configure(job domain.JobSpec, registry domain.Registry) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if registry.Len() == 0 {
		return fmt.Errorf("%w: host list is empty", domain.ErrConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateUninitialized {
		return fmt.Errorf("configure session in state %s: %w", s.state, domain.ErrSessionInvalid)
	}

	s.job = job
	s.hosts = registry.Hosts()
	s.valid = true
	s.state = domain.StateConfigured
	s.log.WithFields(logrus.Fields{
		"instances":  job.Instances,
		"executable": job.Executable,
		"hosts":      len(s.hosts),
	}).Debug("session configured")

	return nil
}

// Connect opens one control connection per host. Failures exclude that host
// from the wait; the active count is only established once every attempt
// has finished.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.StateConfigured || !s.valid {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("connect session in state %s: %w", state, domain.ErrSessionInvalid)
	}
	s.state = domain.StateConnecting
	hostnames := make([]string, len(s.hosts))
	for i, host := range s.hosts {
		hostnames[i] = host.Hostname
	}
	s.mu.Unlock()

	channelCfg := ports.ChannelConfig{
		Port:       s.cfg.Port,
		OnReceive:  s.handleMessage,
		OnShutdown: s.handlePeerShutdown,
	}

	results := make([]connectResult, len(hostnames))
	var g errgroup.Group
	g.SetLimit(s.cfg.ConnectConcurrency)
	for i, hostname := range hostnames {
		g.Go(func() error {
			results[i] = s.connectHost(ctx, i, hostname, channelCfg)
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid {
		for _, r := range results {
			if r.err == nil {
				_ = s.channel.Close(r.handle)
			}
		}
		return fmt.Errorf("connect hosts: %w", domain.ErrCancelled)
	}

	for i, r := range results {
		s.hosts[i].Address = r.address
		if r.err != nil {
			continue
		}
		s.hosts[i].Handle = r.handle
		s.hosts[i].Connected = true
		s.byHandle[r.handle] = i
		s.activeCount++
	}

	if err := ctx.Err(); err != nil {
		s.finishLocked(domain.StateCancelled, domain.ReasonInterrupted)
		return fmt.Errorf("connect hosts: %w", errors.Join(domain.ErrCancelled, err))
	}

	if s.activeCount == 0 {
		s.finishLocked(domain.StateFailed, "")
		return fmt.Errorf("connect %d host(s): %w", len(s.hosts), domain.ErrNoReachableHosts)
	}

	s.log.WithFields(logrus.Fields{
		"active": s.activeCount,
		"hosts":  len(s.hosts),
	}).Info("control connections established")

	return nil
}

func (s *Session) connectHost(ctx context.Context, index int, hostname string, cfg ports.ChannelConfig) connectResult {
	log := s.log.WithFields(logrus.Fields{"host": hostname, "index": index})

	address, err := s.resolver.Resolve(ctx, hostname)
	if err != nil {
		log.WithError(err).Warn("resolve host failed; host excluded from session")
		return connectResult{err: fmt.Errorf("%w %q: resolve: %w", domain.ErrConnect, hostname, err)}
	}

	handle, err := s.channel.Open(ctx, address, cfg)
	if err != nil {
		log.WithError(err).WithField("address", address).Warn("comlink client setup failed; host excluded from session")
		return connectResult{address: address, err: fmt.Errorf("%w %q: %w", domain.ErrConnect, hostname, err)}
	}

	log.WithField("address", address).Debug("control connection open")
	return connectResult{address: address, handle: handle}
}

// Start fans the job spec and the start directive out to every connected
// host in registry order. The session is Running before the first send so
// acknowledgments from fast hosts are counted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.StateConnecting || !s.valid {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("start session in state %s: %w", state, domain.ErrSessionInvalid)
	}
	s.state = domain.StateRunning
	s.startedAt = s.clock.Now()
	targets := s.connectedTargetsLocked()
	job := s.job
	s.mu.Unlock()

	for _, t := range targets {
		if !s.running() {
			s.log.Debug("session ended during start fan-out")
			break
		}

		_, _ = fmt.Fprintf(s.out, "host(%d) = %s\n", t.index, t.hostname)
		if err := s.sendJob(ctx, t, job); err != nil {
			log := s.log.WithError(err).WithFields(logrus.Fields{"host": t.hostname, "index": t.index})
			if !s.markStartFailed(t.index) {
				log.Debug("start cmd interrupted by session end")
				break
			}
			log.Warn("start cmd failed; host will be ignored")
		}
	}

	return nil
}

func (s *Session) sendJob(ctx context.Context, t target, job domain.JobSpec) error {
	for _, msg := range []domain.Message{
		domain.ProcInstances(job.Instances),
		domain.ExecFilename(job.Executable),
		domain.Control(domain.DirectiveStart),
	} {
		if err := s.channel.Send(ctx, t.handle, msg); err != nil {
			return fmt.Errorf("%w %s to %q: %w", domain.ErrSend, msg.Type, t.hostname, err)
		}
	}
	return nil
}

// Wait blocks until the session completes, ctx is cancelled, or the
// acknowledgment timeout expires. The last two run the cancellation path.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state == domain.StateUninitialized {
		return s.result(), fmt.Errorf("wait on session in state %s: %w", state, domain.ErrSessionInvalid)
	}

	var g errgroup.Group
	g.Go(func() error {
		return s.channel.Run(context.WithoutCancel(ctx))
	})

	var timeout <-chan time.Time
	if s.cfg.AckTimeout > 0 {
		timer := time.NewTimer(s.cfg.AckTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		s.cancel(domain.ReasonInterrupted, "Ctrl+C, exiting")
	case <-timeout:
		s.log.WithField("timeout", s.cfg.AckTimeout).Warn("acknowledgment timeout expired")
		s.Cancel(domain.ReasonTimeout)
	}

	if err := g.Wait(); err != nil {
		s.log.WithError(err).Warn("control channel stopped with error")
	}

	r := s.result()
	if r.State == domain.StateCompleted {
		return r, nil
	}
	if r.State == domain.StateFailed {
		return r, fmt.Errorf("session %s: %w", s.id, domain.ErrNoReachableHosts)
	}
	return r, fmt.Errorf("session %s %s: %w", s.id, r.Reason, domain.ErrCancelled)
}

// Cancel broadcasts a best-effort stop to every connected host and runs
// cleanup. It never fails and is a no-op once the session is cleaned up.
func (s *Session) Cancel(reason domain.CancelReason) {
	s.cancel(reason, "")
}

// cancel prints notice only when it is the call that ends the session.
func (s *Session) cancel(reason domain.CancelReason, notice string) {
	s.mu.Lock()
	if !s.valid {
		s.mu.Unlock()
		return
	}
	if s.state.Terminal() {
		s.cleanupLocked()
		s.mu.Unlock()
		return
	}
	if notice != "" {
		_, _ = fmt.Fprintln(s.out, notice)
	}
	if s.state != domain.StateRunning {
		s.finishLocked(domain.StateCancelled, reason)
		s.mu.Unlock()
		return
	}

	s.state = domain.StateCancelled
	s.reason = reason
	s.finishedAt = s.clock.Now()
	targets := s.connectedTargetsLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"reason": reason, "hosts": len(targets)}).Info("cancelling session")

	stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.StopTimeout)
	defer cancel()
	for _, t := range targets {
		if err := s.channel.Send(stopCtx, t.handle, domain.Control(domain.DirectiveStop)); err != nil {
			s.log.WithError(err).WithField("host", t.hostname).Debug("stop directive not delivered")
		}
	}

	s.mu.Lock()
	s.cleanupLocked()
	s.mu.Unlock()
}

// Cleanup releases every held connection and the channel's process-wide
// resources. Only the first call has any effect.
func (s *Session) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid {
		return
	}
	if !s.state.Terminal() {
		s.state = domain.StateCancelled
		s.reason = domain.ReasonRequested
		s.finishedAt = s.clock.Now()
	}
	s.cleanupLocked()
}

func (s *Session) handleMessage(handle domain.Handle, msg domain.Message) {
	if msg.Type != domain.MessageStatus {
		s.log.WithField("type", msg.Type).Debug("ignoring unexpected message from host")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, ok := s.byHandle[handle]
	if !ok || s.state != domain.StateRunning || !s.valid {
		s.log.WithFields(logrus.Fields{"handle": handle, "state": s.state}).Debug("ignoring status outside running session")
		return
	}

	host := s.hosts[index]
	status := domain.HostStatus{
		Index:      index,
		Hostname:   host.Hostname,
		Line:       msg.Text,
		ReceivedAt: s.clock.Now(),
	}
	_, _ = fmt.Fprintln(s.out, msg.Text)

	if s.acked.Contains(uint32(index)) {
		status.Duplicate = true
		s.statuses = append(s.statuses, status)
		s.log.WithFields(logrus.Fields{"host": host.Hostname, "index": index}).Warn("duplicate acknowledgment ignored")
		return
	}

	s.acked.Add(uint32(index))
	s.ackedCount++
	s.statuses = append(s.statuses, status)
	s.log.WithFields(logrus.Fields{
		"host":         host.Hostname,
		"acknowledged": s.ackedCount,
		"active":       s.activeCount,
	}).Debug("acknowledgment received")

	if s.ackedCount >= s.activeCount {
		_, _ = fmt.Fprintln(s.out, "launcher: recvd ack from all")
		s.finishLocked(domain.StateCompleted, "")
	}
}

func (s *Session) handlePeerShutdown(handle domain.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, ok := s.byHandle[handle]
	if !ok {
		return
	}

	s.log.WithFields(logrus.Fields{"host": s.hosts[index].Hostname, "index": index}).Warn("peer shut down, releasing connection")
	if err := s.releaseLocked(index); err != nil {
		s.log.WithError(err).Debug("release connection after peer shutdown")
	}
}

func (s *Session) finishLocked(state domain.SessionState, reason domain.CancelReason) {
	s.state = state
	s.reason = reason
	s.finishedAt = s.clock.Now()
	s.cleanupLocked()
}

func (s *Session) cleanupLocked() {
	if !s.valid {
		return
	}
	s.valid = false

	var result *multierror.Error
	for i := range s.hosts {
		if err := s.releaseLocked(i); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := s.channel.ShutdownAll(); err != nil {
		result = multierror.Append(result, fmt.Errorf("shut down control channel: %w", err))
	}
	if err := result.ErrorOrNil(); err != nil {
		s.log.WithError(err).Warn("session cleanup finished with errors")
	}

	close(s.done)
	s.log.WithField("state", s.state).Debug("session cleaned up")
}

func (s *Session) releaseLocked(index int) error {
	handle := s.hosts[index].Handle
	if handle == 0 {
		return nil
	}

	s.hosts[index].Handle = 0
	delete(s.byHandle, handle)
	if err := s.channel.Close(handle); err != nil {
		return fmt.Errorf("close connection to %q: %w", s.hosts[index].Hostname, err)
	}
	return nil
}

func (s *Session) connectedTargetsLocked() []target {
	targets := make([]target, 0, s.activeCount)
	for i, host := range s.hosts {
		if host.Handle == 0 {
			continue
		}
		targets = append(targets, target{index: i, hostname: host.Hostname, handle: host.Handle})
	}
	return targets
}

func (s *Session) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid && s.state == domain.StateRunning
}

// markStartFailed records a failed start for index. It reports false once the
// session has left Running, when the failure is a side effect of cleanup.
func (s *Session) markStartFailed(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid || s.state != domain.StateRunning {
		return false
	}
	s.startFailed.Add(uint32(index))
	return true
}

func (s *Session) result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Result{
		State:        s.state,
		Reason:       s.reason,
		Active:       s.activeCount,
		Acknowledged: s.ackedCount,
	}
}

func (s *Session) Snapshot() domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	hosts := make([]domain.HostSummary, 0, len(s.hosts))
	for i, host := range s.hosts {
		hosts = append(hosts, domain.HostSummary{
			Index:        i,
			Hostname:     host.Hostname,
			Address:      host.Address,
			Connected:    host.Connected,
			StartFailed:  s.startFailed.Contains(uint32(i)),
			Acknowledged: s.acked.Contains(uint32(i)),
		})
	}

	statuses := make([]domain.HostStatus, len(s.statuses))
	copy(statuses, s.statuses)

	return domain.SessionSummary{
		ID:           s.id.String(),
		State:        s.state,
		Reason:       s.reason,
		Job:          s.job,
		Hosts:        hosts,
		Active:       s.activeCount,
		Acknowledged: s.ackedCount,
		Statuses:     statuses,
		StartedAt:    s.startedAt,
		FinishedAt:   s.finishedAt,
	}
}

// lockedWriter serialises operator output written from the controller and
// from transport goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
