package emailvalidator

// Record is the full outcome of validating one address.
//
// A stage flag is only meaningful if the record reached that stage; use
// Reached to tell "failed" from "never ran". Valid is false only when a
// stage failed, and then Errors holds at least one diagnostic. A record
// whose SMTP probe could not be completed is valid and carries the probe
// error in Errors.
type Record struct {
	Email       string        `json:"email"`
	Valid       bool          `json:"is_valid"`
	FormatValid bool          `json:"format_valid"`
	DomainValid bool          `json:"domain_valid"`
	SMTPValid   bool          `json:"smtp_valid"`
	Errors      []string      `json:"errors"`
	Checks      []CheckResult `json:"checks"`
}

// FailedChecks returns those CheckResults that did not pass, including
// inconclusive ones.
func (r Record) FailedChecks() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if !c.Passed() {
			out = append(out, c)
		}
	}
	return out
}

// CheckFor returns the CheckResult for the given stage, if it exists.
// The second return value indicates whether the given stage was executed.
func (r Record) CheckFor(stage Stage) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Stage == stage {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Reached reports whether the stage ran for this record.
func (r Record) Reached(stage Stage) bool {
	_, ok := r.CheckFor(stage)
	return ok
}

// apply records a stage result and reports whether the pipeline continues.
func (r *Record) apply(cr CheckResult) bool {
	r.Checks = append(r.Checks, cr)
	passed := cr.Passed()
	switch cr.Stage {
	case StageFormat:
		r.FormatValid = passed
	case StageDomain:
		r.DomainValid = passed
	case StageSMTP:
		r.SMTPValid = passed
	}

	switch cr.Outcome {
	case OutcomeFail:
		r.Errors = append(r.Errors, cr.Details)
		r.Valid = false
		return false
	case OutcomeInconclusive:
		r.Errors = append(r.Errors, cr.Details)
	}
	return true
}
