package emailvalidator

import (
	"context"
	"net"
	"time"
)

// FormatOptions configures the format stage.
type FormatOptions struct {
	// AllowIDN accepts Unicode domains by converting them to Punycode
	// before matching. Default: false
	AllowIDN bool
}

// DomainOptions configures the domain stage.
type DomainOptions struct {
	// Timeout is the maximum time for one MX lookup. Default: 5s
	Timeout time.Duration
	// CacheTTL is how long MX answers are reused across addresses. Default: 5m
	CacheTTL time.Duration
	// Resolver replaces the DNS resolver. When nil, Nameservers are queried,
	// or the servers from /etc/resolv.conf.
	Resolver MXResolver
	// Nameservers are queried directly, e.g. "1.1.1.1" or "10.0.0.2:5353".
	Nameservers []string
	// SuggestTypos fills CheckResult.Suggestion for domains close to a
	// well-known provider. It never fails an address. Default: true
	SuggestTypos bool
	// TypoThreshold is the Levenshtein distance threshold. Default: 2
	TypoThreshold int
}

func defaultDomainOptions() DomainOptions {
	return DomainOptions{
		Timeout:       5 * time.Second,
		CacheTTL:      5 * time.Minute,
		SuggestTypos:  true,
		TypoThreshold: 2,
	}
}

// withDefaults fills unset durations and thresholds. Booleans are taken as given.
func (o DomainOptions) withDefaults() DomainOptions {
	def := defaultDomainOptions()
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = def.CacheTTL
	}
	if o.TypoThreshold <= 0 {
		o.TypoThreshold = def.TypoThreshold
	}
	return o
}

// SMTPOptions configures the SMTP probe stage.
type SMTPOptions struct {
	// HeloDomain is the domain sent in the EHLO command. Required, e.g. "myapp.com"
	HeloDomain string
	// MailFrom is the address sent in the MAIL FROM command. Required, e.g. "verify@myapp.com"
	MailFrom string
	// ConnectTimeout is the maximum time for the TCP connection. Default: 5s
	ConnectTimeout time.Duration
	// CommandTimeout is the maximum response time for each SMTP command. Default: 5s
	CommandTimeout time.Duration
	// Port is the SMTP port. Default: 25
	Port string
	// Dial replaces the TCP dialer, e.g. to route through a proxy or in tests.
	Dial func(ctx context.Context, network, address string) (net.Conn, error)
}

func defaultSMTPOptions() SMTPOptions {
	return SMTPOptions{
		ConnectTimeout: 5 * time.Second,
		CommandTimeout: 5 * time.Second,
		Port:           "25",
	}
}

// ConcurrencyOptions configures concurrent processing for ValidateMany.
type ConcurrencyOptions struct {
	// Workers is the number of addresses validated at once. Default: 16
	Workers int
	// OnResult, when set, is called once per address as soon as its record
	// is ready, in completion order. Calls never overlap.
	OnResult func(index int, rec Record)
}

const defaultWorkers = 16
