package check

import (
	"context"
	"fmt"

	"github.com/optimode/emailvalidator/internal/parse"
	"github.com/optimode/emailvalidator/internal/resolver"
	"github.com/optimode/emailvalidator/types"
)

// Prober asks a mail exchange whether it accepts mail for an address.
// An answered RCPT TO is never an error, whatever its code.
type Prober interface {
	Probe(ctx context.Context, mxHost, email string) (code int, msg string, err error)
}

// SMTPChecker performs an SMTP RCPT TO probe against the most preferred
// MX host of the domain. It uses the same resolver as the domain stage,
// so with a cache in front the MX answer is not queried twice.
//
// Only an answered RCPT TO can fail an address. A probe that could not be
// completed is inconclusive: many servers block callback verification,
// and that says nothing about the mailbox.
type SMTPChecker struct {
	resolver resolver.MXResolver
	prober   Prober
}

func NewSMTPChecker(r resolver.MXResolver, p Prober) *SMTPChecker {
	return &SMTPChecker{resolver: r, prober: p}
}

func (c *SMTPChecker) Check(ctx context.Context, email parse.Email) types.CheckResult {
	stage := types.StageSMTP

	records, err := c.resolver.LookupMX(ctx, email.DomainASCII)
	if err != nil {
		return inconclusive(stage, fmt.Sprintf("SMTP validation error: %v", err))
	}
	if len(records) == 0 {
		return inconclusive(stage, "SMTP validation error: no MX host to connect to")
	}
	mxHost := primaryMX(records)

	code, msg, err := c.prober.Probe(ctx, mxHost, email.ASCII())
	if err != nil {
		result := inconclusive(stage, fmt.Sprintf("SMTP validation error: %v", err))
		result.MXHost = mxHost
		return result
	}

	result := types.CheckResult{Stage: stage, MXHost: mxHost, SMTPCode: code}
	switch code {
	case 250, 251:
		result.Outcome = types.OutcomePass
		result.Details = "RCPT TO accepted"
	default:
		result.Outcome = types.OutcomeFail
		result.Details = fmt.Sprintf("SMTP validation failed: %d - %s", code, msg)
	}
	return result
}
