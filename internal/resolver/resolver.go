// Package resolver performs MX lookups and classifies their failures into
// "domain does not exist", "no MX records" and transient resolver errors.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	// ErrNXDomain is returned when the queried domain does not exist.
	ErrNXDomain = errors.New("domain does not exist")

	// ErrNoAnswer is returned when the domain exists but has no MX records.
	ErrNoAnswer = errors.New("no MX records")
)

// MXResolver looks up the MX records of a domain.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Config selects and configures the resolver returned by New.
type Config struct {
	// Nameservers are queried directly ("host" or "host:port").
	// When empty, the servers of ResolvConf are used.
	Nameservers []string
	// ResolvConf is the resolver configuration file. Default: /etc/resolv.conf
	ResolvConf string
	// Timeout bounds a single query to one server. Default: 5s
	Timeout time.Duration
}

// New returns a DNS wire-protocol resolver for the configured nameservers.
// If no nameserver is configured and ResolvConf cannot be read, it falls
// back to the operating system resolver.
func New(cfg Config) MXResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if len(cfg.Nameservers) > 0 {
		return NewDNS(cfg.Nameservers, cfg.Timeout)
	}
	path := cfg.ResolvConf
	if path == "" {
		path = "/etc/resolv.conf"
	}
	if r, err := FromResolvConf(path, cfg.Timeout); err == nil {
		return r
	}
	return NewSystem()
}

// System resolves through net.Resolver.
// The operating system resolver does not always distinguish a missing
// domain from a domain without MX records; both may surface as ErrNXDomain.
type System struct {
	r *net.Resolver
}

func NewSystem() *System {
	return &System{r: &net.Resolver{}}
}

func (s *System) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	records, err := s.r.LookupMX(ctx, name)
	if err != nil {
		return nil, classify(name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoAnswer)
	}
	return records, nil
}

// classify maps net.DNSError "not found" results to ErrNXDomain.
func classify(name string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return fmt.Errorf("%s: %w", name, ErrNXDomain)
	}
	return err
}
