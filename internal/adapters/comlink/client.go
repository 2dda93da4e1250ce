package comlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDialTimeout = 5 * time.Second
	DefaultSendTimeout = 5 * time.Second
)

var (
	ErrClosed        = errors.New("control channel is shut down")
	ErrUnknownHandle = errors.New("unknown connection handle")
)

type Options struct {
	DialTimeout   time.Duration
	SendTimeout   time.Duration
	MaxFrameBytes int
	Logger        logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if o.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		o.Logger = discard
	}
	return o
}

type clientConn struct {
	handle  domain.Handle
	address string
	conn    net.Conn
	writeMu sync.Mutex
}

// Client is the launcher side of the control channel: one TCP connection per
// host, each drained by its own reader goroutine.
type Client struct {
	opts   Options
	log    logrus.FieldLogger
	dialer net.Dialer

	mu       sync.Mutex
	next     domain.Handle
	conns    map[domain.Handle]*clientConn
	shutdown bool

	closed    chan struct{}
	closeOnce sync.Once
	readers   sync.WaitGroup
}

var _ ports.ControlChannel = (*Client)(nil)

func NewClient(opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		opts:   opts,
		log:    opts.Logger.WithField("component", "comlink"),
		conns:  map[domain.Handle]*clientConn{},
		closed: make(chan struct{}),
	}
}

func (c *Client) Open(ctx context.Context, address string, cfg ports.ChannelConfig) (domain.Handle, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return 0, fmt.Errorf("%w: control port %d", domain.ErrConfig, cfg.Port)
	}
	if c.isShutdown() {
		return 0, ErrClosed
	}

	target := net.JoinHostPort(address, strconv.Itoa(cfg.Port))
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	conn, err := c.dialer.DialContext(dialCtx, "tcp", target)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", target, err)
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		_ = conn.Close()
		return 0, ErrClosed
	}
	c.next++
	cc := &clientConn{handle: c.next, address: target, conn: conn}
	c.conns[cc.handle] = cc
	c.readers.Add(1)
	c.mu.Unlock()

	go c.read(cc, cfg)

	return cc.handle, nil
}

func (c *Client) read(cc *clientConn, cfg ports.ChannelConfig) {
	defer c.readers.Done()

	log := c.log.WithFields(logrus.Fields{"handle": cc.handle, "address": cc.address})
	for {
		msg, err := readFrame(cc.conn, c.opts.MaxFrameBytes)
		if err != nil {
			if !c.forget(cc.handle) {
				return
			}
			_ = cc.conn.Close()
			if errors.Is(err, io.EOF) {
				log.Debug("peer closed control connection")
			} else {
				log.WithError(err).Warn("control connection lost")
			}
			if cfg.OnShutdown != nil {
				cfg.OnShutdown(cc.handle)
			}
			return
		}

		if cfg.OnReceive != nil {
			cfg.OnReceive(cc.handle, msg)
		}
	}
}

func (c *Client) Send(ctx context.Context, handle domain.Handle, msg domain.Message) error {
	c.mu.Lock()
	cc, ok := c.conns[handle]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("send %s on handle %d: %w", msg.Type, handle, ErrUnknownHandle)
	}

	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()

	deadline := time.Now().Add(c.opts.SendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := cc.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline for %s: %w", cc.address, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = cc.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	if err := writeFrame(cc.conn, msg, c.opts.MaxFrameBytes); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Type, cc.address, err)
	}

	return nil
}

// Close drops one connection without invoking its shutdown callback.
func (c *Client) Close(handle domain.Handle) error {
	c.mu.Lock()
	cc, ok := c.conns[handle]
	delete(c.conns, handle)
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return closeConn(cc)
}

// ShutdownAll closes every remaining connection and releases Run. Later
// Opens fail with ErrClosed.
func (c *Client) ShutdownAll() error {
	c.mu.Lock()
	c.shutdown = true
	remaining := make([]*clientConn, 0, len(c.conns))
	for handle, cc := range c.conns {
		remaining = append(remaining, cc)
		delete(c.conns, handle)
	}
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.closed) })

	var result *multierror.Error
	for _, cc := range remaining {
		if err := closeConn(cc); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// Run blocks until ShutdownAll has been called and every reader goroutine
// has returned, or until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	select {
	case <-c.closed:
	case <-ctx.Done():
		return ctx.Err()
	}

	drained := make(chan struct{})
	go func() {
		c.readers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) forget(handle domain.Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.conns[handle]; !ok {
		return false
	}
	delete(c.conns, handle)
	return true
}

func (c *Client) isShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

func closeConn(cc *clientConn) error {
	if err := cc.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close connection to %s: %w", cc.address, err)
	}
	return nil
}
