// Package types contains the shared types for emailvalidator.
// This package does not import anything from other emailvalidator packages
// to avoid circular imports.
package types

// Stage identifies one validation stage.
type Stage = string

const (
	StageFormat Stage = "format"
	StageDomain Stage = "domain"
	StageSMTP   Stage = "smtp"
)

// Outcome is the result class of a single stage.
type Outcome = string

const (
	// OutcomePass means the stage confirmed the address.
	OutcomePass Outcome = "pass"
	// OutcomeFail means the stage rejected the address. The pipeline stops.
	OutcomeFail Outcome = "fail"
	// OutcomeInconclusive means the stage could not complete its check
	// (network or protocol error). It withholds confirmation without
	// rejecting the address.
	OutcomeInconclusive Outcome = "inconclusive"
)

// CheckResult is the outcome of a single validation stage.
type CheckResult struct {
	Stage      Stage   `json:"stage"`
	Outcome    Outcome `json:"outcome"`
	Details    string  `json:"details,omitempty"`
	MXHost     string  `json:"mxHost,omitempty"`
	SMTPCode   int     `json:"smtpCode,omitempty"`
	Suggestion string  `json:"suggestion,omitempty"`
}

// Passed reports whether the stage confirmed the address.
func (c CheckResult) Passed() bool {
	return c.Outcome == OutcomePass
}
