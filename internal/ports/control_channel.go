package ports

import (
	"context"

	"github.com/bnema/job-launcher/internal/domain"
)

// ReceiveFunc is invoked on a transport goroutine for every message that
// arrives on a control connection.
type ReceiveFunc func(handle domain.Handle, msg domain.Message)

// ShutdownFunc is invoked when the peer closes a control connection or the
// transport detects it is dead. It is never invoked for connections closed
// through Close or ShutdownAll.
type ShutdownFunc func(handle domain.Handle)

type ChannelConfig struct {
	Port       int
	OnReceive  ReceiveFunc
	OnShutdown ShutdownFunc
}

// ControlChannel is the per-host message transport consumed by the session
// controller. Close and ShutdownAll must not wait on delivery goroutines.
type ControlChannel interface {
	Open(ctx context.Context, address string, cfg ChannelConfig) (domain.Handle, error)
	Send(ctx context.Context, handle domain.Handle, msg domain.Message) error
	Close(handle domain.Handle) error
	ShutdownAll() error
	Run(ctx context.Context) error
}
