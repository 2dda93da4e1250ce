package resolve

import (
	"context"
	"fmt"
	"net"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
)

// System resolves through a net.Resolver, the process default unless one is
// supplied.
type System struct {
	resolver *net.Resolver
}

var _ ports.Resolver = (*System)(nil)

func NewSystem(resolver *net.Resolver) *System {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &System{resolver: resolver}
}

func (s *System) Resolve(ctx context.Context, hostname string) (string, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip.String(), nil
	}

	addrs, err := s.resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return "", fmt.Errorf("lookup %q: %w", hostname, err)
	}

	return pickAddress(hostname, addrs)
}

func pickAddress(hostname string, addrs []net.IPAddr) (string, error) {
	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	if len(addrs) > 0 {
		return addrs[0].IP.String(), nil
	}

	return "", fmt.Errorf("lookup %q: %w", hostname, domain.ErrUnknownHost)
}
