package emailvalidator

import (
	"errors"

	"github.com/optimode/emailvalidator/internal/resolver"
)

var (
	// ErrInvalidSMTPOptions is returned when WithSMTP is called
	// but HeloDomain or MailFrom is missing.
	ErrInvalidSMTPOptions = errors.New("emailvalidator: SMTPOptions requires HeloDomain and MailFrom")

	// ErrSMTPRequiresDomain is returned when WithSMTP is called before
	// WithDomain. The probe needs the domain's MX host.
	ErrSMTPRequiresDomain = errors.New("emailvalidator: WithSMTP requires WithDomain")
)

// Resolver outcomes, for custom MXResolver implementations.
var (
	ErrNXDomain    = resolver.ErrNXDomain
	ErrNoMXRecords = resolver.ErrNoAnswer
)
