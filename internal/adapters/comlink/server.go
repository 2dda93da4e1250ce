package comlink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	Serve(ctx context.Context, conn ports.AgentConn) error
}

type HandlerFunc func(ctx context.Context, conn ports.AgentConn) error

func (f HandlerFunc) Serve(ctx context.Context, conn ports.AgentConn) error {
	return f(ctx, conn)
}

// Server accepts control connections from launchers and hands each one to
// the handler on its own goroutine.
type Server struct {
	handler Handler
	opts    Options
	log     logrus.FieldLogger
}

func NewServer(handler Handler, opts Options) *Server {
	opts = opts.withDefaults()
	return &Server{
		handler: handler,
		opts:    opts,
		log:     opts.Logger.WithField("component", "comlink"),
	}
}

func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.WithoutCancel(ctx), "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then waits for every open
// connection handler to return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	s.log.WithField("address", ln.Addr().String()).Info("accepting control connections")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer conn.Close()

	sc := &serverConn{conn: conn, opts: s.opts}
	if err := s.handler.Serve(ctx, sc); err != nil {
		s.log.WithError(err).WithField("peer", sc.RemoteAddr()).Warn("control connection ended with error")
	}
}

type serverConn struct {
	conn    net.Conn
	opts    Options
	writeMu sync.Mutex
}

var _ ports.AgentConn = (*serverConn)(nil)

func (c *serverConn) Receive(ctx context.Context) (domain.Message, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	return readFrame(c.conn, c.opts.MaxFrameBytes)
}

func (c *serverConn) Send(ctx context.Context, msg domain.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.opts.SendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if err := writeFrame(c.conn, msg, c.opts.MaxFrameBytes); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Type, c.RemoteAddr(), err)
	}
	return nil
}

func (c *serverConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
