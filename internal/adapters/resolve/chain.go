package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/job-launcher/internal/ports"
)

type Chain struct {
	primary  ports.Resolver
	fallback ports.Resolver
}

var _ ports.Resolver = (*Chain)(nil)

var (
	errNilPrimaryResolver  = errors.New("primary resolver is nil")
	errNilFallbackResolver = errors.New("fallback resolver is nil")
)

func NewChain(primary ports.Resolver, fallback ports.Resolver) (*Chain, error) {
	if primary == nil {
		return nil, errNilPrimaryResolver
	}
	if fallback == nil {
		return nil, errNilFallbackResolver
	}

	return &Chain{primary: primary, fallback: fallback}, nil
}

// NewDNSFirstWithSystemFallback queries nameserver first, waiting at most
// timeout per query, and falls back to the system resolver.
func NewDNSFirstWithSystemFallback(nameserver string, timeout time.Duration) (*Chain, error) {
	return NewChain(NewDNS(nameserver, timeout), NewSystem(nil))
}

func (c *Chain) Resolve(ctx context.Context, hostname string) (string, error) {
	address, err := c.primary.Resolve(ctx, hostname)
	if err == nil {
		return address, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackAddress, fallbackErr := c.fallback.Resolve(ctx, hostname)
	if fallbackErr == nil {
		return fallbackAddress, nil
	}

	return "", fmt.Errorf("primary resolver failed: %w; fallback resolver failed: %w", err, fallbackErr)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
