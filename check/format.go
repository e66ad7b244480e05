package check

import (
	"context"
	"regexp"

	"github.com/optimode/emailvalidator/internal/parse"
	"github.com/optimode/emailvalidator/types"
)

var (
	localPartRe = regexp.MustCompile(`^[a-z0-9._%+-]+$`)
	domainRe    = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	// idnDomainRe additionally accepts a Punycode top-level label.
	idnDomainRe = regexp.MustCompile(`^[a-z0-9.-]+\.([a-z]{2,}|xn--[a-z0-9-]+)$`)
)

// FormatConfig is the format checker configuration.
type FormatConfig struct {
	// AllowIDN converts Unicode domains to Punycode before matching.
	AllowIDN bool
}

// FormatChecker matches the normalized address against a permissive
// address grammar. It never touches the network.
type FormatChecker struct {
	cfg FormatConfig
}

func NewFormatChecker(cfg FormatConfig) *FormatChecker {
	return &FormatChecker{cfg: cfg}
}

func (c *FormatChecker) Check(_ context.Context, email parse.Email) types.CheckResult {
	stage := types.StageFormat

	if email.Empty() {
		return fail(stage, "email is empty")
	}
	if !email.HasAt || !localPartRe.MatchString(email.Local) {
		return fail(stage, "invalid email format")
	}

	domain, re := email.Domain, domainRe
	if c.cfg.AllowIDN {
		domain, re = email.DomainASCII, idnDomainRe
	}
	if domain == "" || !re.MatchString(domain) {
		return fail(stage, "invalid email format")
	}

	return types.CheckResult{Stage: stage, Outcome: types.OutcomePass, Details: "format ok"}
}

func fail(stage types.Stage, details string) types.CheckResult {
	return types.CheckResult{Stage: stage, Outcome: types.OutcomeFail, Details: details}
}

func inconclusive(stage types.Stage, details string) types.CheckResult {
	return types.CheckResult{Stage: stage, Outcome: types.OutcomeInconclusive, Details: details}
}
