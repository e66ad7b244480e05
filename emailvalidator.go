// Package emailvalidator decides, for each email address, whether it is
// well formed, whether its domain can receive mail and whether a mail
// server accepts it.
//
// Format only:
//
//	rec, err := emailvalidator.New().Validate(ctx, "user@example.com")
//
// Full pipeline:
//
//	rec, err := emailvalidator.New().
//	    WithDomain().
//	    WithSMTP(emailvalidator.SMTPOptions{
//	        HeloDomain: "myapp.com",
//	        MailFrom:   "verify@myapp.com",
//	    }).
//	    Validate(ctx, "user@example.com")
//
// Stages run in the order format, domain, smtp and stop at the first
// failure. An SMTP probe that cannot be completed (timeout, refused
// connection, blocked callback) does not invalidate the address: the
// record stays valid and carries the probe error in Errors. Only an
// answered RCPT TO other than 250/251 rejects it.
package emailvalidator

import (
	"github.com/optimode/emailvalidator/internal/resolver"
	"github.com/optimode/emailvalidator/types"
)

// CheckResult is a re-export from the types package so that consumers
// don't need to import the types package directly.
type CheckResult = types.CheckResult

// Stage is a re-export.
type Stage = types.Stage

// Outcome is a re-export.
type Outcome = types.Outcome

// Stage and outcome constants re-exported.
const (
	StageFormat = types.StageFormat
	StageDomain = types.StageDomain
	StageSMTP   = types.StageSMTP

	OutcomePass         = types.OutcomePass
	OutcomeFail         = types.OutcomeFail
	OutcomeInconclusive = types.OutcomeInconclusive
)

// MXResolver looks up the MX records of a domain. Implementations report a
// missing domain with ErrNXDomain and an empty answer with ErrNoMXRecords;
// any other error is treated as a resolver failure.
type MXResolver = resolver.MXResolver
