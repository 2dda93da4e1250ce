package ports

import (
	"context"

	"github.com/bnema/job-launcher/internal/domain"
)

type HostSource interface {
	Load(ctx context.Context, path string) ([]domain.HostRecord, error)
}

type ReportWriter interface {
	Path() string
	Write(ctx context.Context, summary domain.SessionSummary) error
}
