package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DNS queries nameservers directly over the DNS wire protocol, which
// gives an exact NXDOMAIN / NOERROR-without-answer distinction.
type DNS struct {
	servers []string
	udp     *dns.Client
	tcp     *dns.Client
}

// NewDNS creates a resolver for the given servers. A server without a
// port uses 53.
func NewDNS(servers []string, timeout time.Duration) *DNS {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		out = append(out, s)
	}
	return &DNS{
		servers: out,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// FromResolvConf creates a resolver for the nameservers listed in a
// resolv.conf style file.
func FromResolvConf(path string, timeout time.Duration) (*DNS, error) {
	cc, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(cc.Servers) == 0 {
		return nil, fmt.Errorf("read %s: no nameservers", path)
	}
	servers := make([]string, 0, len(cc.Servers))
	for _, s := range cc.Servers {
		servers = append(servers, net.JoinHostPort(s, cc.Port))
	}
	return NewDNS(servers, timeout), nil
}

// Servers returns the nameserver addresses in query order.
func (r *DNS) Servers() []string {
	return append([]string(nil), r.servers...)
}

// LookupMX queries the servers in order until one gives an authoritative
// answer (records, NXDOMAIN or an empty NOERROR response).
func (r *DNS) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeMX)
	m.RecursionDesired = true

	lastErr := fmt.Errorf("%s: no nameservers configured", name)
	for _, server := range r.servers {
		in, err := r.exchange(ctx, m, server)
		if err != nil {
			lastErr = fmt.Errorf("lookup %s on %s: %w", name, server, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		switch in.Rcode {
		case dns.RcodeSuccess:
			var records []*net.MX
			for _, rr := range in.Answer {
				if mx, ok := rr.(*dns.MX); ok {
					records = append(records, &net.MX{Host: mx.Mx, Pref: mx.Preference})
				}
			}
			if len(records) == 0 {
				return nil, fmt.Errorf("%s: %w", name, ErrNoAnswer)
			}
			return records, nil
		case dns.RcodeNameError:
			return nil, fmt.Errorf("%s: %w", name, ErrNXDomain)
		default:
			lastErr = fmt.Errorf("lookup %s on %s: server returned %s", name, server, dns.RcodeToString[in.Rcode])
		}
	}
	return nil, lastErr
}

func (r *DNS) exchange(ctx context.Context, m *dns.Msg, server string) (*dns.Msg, error) {
	in, _, err := r.udp.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, err
	}
	if in.Truncated {
		in, _, err = r.tcp.ExchangeContext(ctx, m, server)
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}
