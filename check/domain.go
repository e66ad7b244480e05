package check

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/optimode/emailvalidator/internal/levenshtein"
	"github.com/optimode/emailvalidator/internal/parse"
	"github.com/optimode/emailvalidator/internal/resolver"
	"github.com/optimode/emailvalidator/types"
)

// DomainConfig is the domain checker configuration.
type DomainConfig struct {
	// SuggestTypos fills CheckResult.Suggestion when the domain is close to
	// a well-known provider. It never fails an address.
	SuggestTypos  bool
	TypoThreshold int
}

// DomainChecker verifies that the domain is well formed and has MX records.
type DomainChecker struct {
	cfg            DomainConfig
	resolver       resolver.MXResolver
	knownProviders []string
}

// defaultKnownProviders is the list of known major email providers used
// for typo suggestions.
var defaultKnownProviders = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de",
	"outlook.com", "hotmail.com", "hotmail.co.uk", "live.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com",
	"yandex.com", "yandex.ru",
	"mail.com",
	"gmx.com", "gmx.net", "gmx.de",
	"fastmail.com",
}

// NewDomainChecker creates a domain checker resolving through r.
// Timeouts are the resolver's concern.
func NewDomainChecker(cfg DomainConfig, r resolver.MXResolver) *DomainChecker {
	return &DomainChecker{
		cfg:            cfg,
		resolver:       r,
		knownProviders: defaultKnownProviders,
	}
}

func (c *DomainChecker) Check(ctx context.Context, email parse.Email) types.CheckResult {
	stage := types.StageDomain

	domain := email.DomainASCII
	if domain == "" {
		domain = email.Domain
	}
	if len(domain) < 3 || !strings.Contains(domain, ".") {
		return fail(stage, "invalid domain structure")
	}

	records, err := c.resolver.LookupMX(ctx, domain)
	switch {
	case errors.Is(err, resolver.ErrNXDomain):
		return fail(stage, "domain does not exist")
	case errors.Is(err, resolver.ErrNoAnswer):
		return fail(stage, "no MX records found for domain")
	case err != nil:
		return fail(stage, fmt.Sprintf("DNS resolution error: %v", err))
	case len(records) == 0:
		return fail(stage, "no MX records found for domain")
	}

	result := types.CheckResult{
		Stage:   stage,
		Outcome: types.OutcomePass,
		Details: fmt.Sprintf("%d MX record(s) found", len(records)),
		MXHost:  primaryMX(records),
	}
	if c.cfg.SuggestTypos {
		result.Suggestion = c.findTypoSuggestion(email.DomainUnicode)
	}
	return result
}

// primaryMX returns the most preferred exchange without the trailing dot.
func primaryMX(records []*net.MX) string {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})
	return strings.TrimSuffix(records[0].Host, ".")
}

// findTypoSuggestion returns a well-known provider the domain is probably
// a misspelling of, or "".
func (c *DomainChecker) findTypoSuggestion(domain string) string {
	return levenshtein.Closest(domain, c.knownProviders, c.cfg.TypoThreshold)
}
