package ports

import (
	"context"

	"github.com/bnema/job-launcher/internal/domain"
)

// AgentConn is the agent side of one control connection.
type AgentConn interface {
	Receive(ctx context.Context) (domain.Message, error)
	Send(ctx context.Context, msg domain.Message) error
	RemoteAddr() string
}

type ProcessRunner interface {
	Run(ctx context.Context, executable string, instance int) error
}
