package resolve

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/bnema/job-launcher/internal/ports"
	"github.com/miekg/dns"
)

const DefaultQueryTimeout = 2 * time.Second

// DNS queries one nameserver directly for A records.
type DNS struct {
	nameserver string
	client     *dns.Client
}

var _ ports.Resolver = (*DNS)(nil)

func NewDNS(nameserver string, timeout time.Duration) *DNS {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		nameserver = net.JoinHostPort(nameserver, "53")
	}

	return &DNS{
		nameserver: nameserver,
		client:     &dns.Client{Net: "udp", Timeout: timeout},
	}
}

func (d *DNS) Resolve(ctx context.Context, hostname string) (string, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip.String(), nil
	}

	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(hostname), dns.TypeA)
	query.RecursionDesired = true

	reply, _, err := d.client.ExchangeContext(ctx, query, d.nameserver)
	if err != nil {
		return "", fmt.Errorf("query %s for %q: %w", d.nameserver, hostname, err)
	}

	switch reply.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return "", fmt.Errorf("query %s for %q: %w", d.nameserver, hostname, domain.ErrUnknownHost)
	default:
		return "", fmt.Errorf("query %s for %q: rcode %s", d.nameserver, hostname, dns.RcodeToString[reply.Rcode])
	}

	for _, rr := range reply.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}

	return "", fmt.Errorf("query %s for %q: no A record: %w", d.nameserver, hostname, domain.ErrUnknownHost)
}
