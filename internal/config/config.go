// Package config defines the runtime configuration of the validator
// service and CLI.
//
// Precedence order (highest wins):
//  1. CLI flags (internal/cli)
//  2. Environment variables, including a .env file (env.go)
//  3. HCL configuration file (file.go)
//  4. Defaults (defaults.go)
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds every tuneable of the service.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Listen      string
	UploadDir   string
	OutputDir   string
	JobWorkers  int // jobs running at once
	MaxUploadMB int

	// ── Batch ────────────────────────────────────────────────────────
	Column        string
	Workers       int // addresses validated at once within a job
	ProgressEvery int
	Detailed      bool

	// ── Validation ───────────────────────────────────────────────────
	AllowIDN      bool
	Nameservers   []string
	DNSTimeout    time.Duration
	SuggestTypos  bool
	TypoThreshold int
	SMTP          bool
	HeloDomain    string
	MailFrom      string
	SMTPTimeout   time.Duration

	// ── Output ───────────────────────────────────────────────────────
	Verbose   int
	LogFormat string
}

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string // config field name, as spelled on the command line
	Value   any    // the invalid value (nil if missing)
	Message string // human-readable explanation
	Hint    string // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch {
	case c.Column == "":
		return &ConfigError{Field: "column", Message: "address column name is empty"}
	case c.Workers < 1 || c.Workers > MaxWorkers:
		return &ConfigError{Field: "workers", Value: c.Workers,
			Message: fmt.Sprintf("must be between 1 and %d", MaxWorkers)}
	case c.JobWorkers < 1:
		return &ConfigError{Field: "job-workers", Value: c.JobWorkers, Message: "must be at least 1"}
	case c.ProgressEvery < 1:
		return &ConfigError{Field: "progress-every", Value: c.ProgressEvery, Message: "must be at least 1"}
	case c.MaxUploadMB < 1:
		return &ConfigError{Field: "max-upload-mb", Value: c.MaxUploadMB, Message: "must be at least 1"}
	case c.DNSTimeout <= 0:
		return &ConfigError{Field: "dns-timeout", Value: c.DNSTimeout, Message: "must be positive"}
	case c.SMTPTimeout <= 0:
		return &ConfigError{Field: "smtp-timeout", Value: c.SMTPTimeout, Message: "must be positive"}
	case c.TypoThreshold < 0:
		return &ConfigError{Field: "typo-threshold", Value: c.TypoThreshold, Message: "must not be negative"}
	}

	if c.SMTP {
		if c.HeloDomain == "" {
			return &ConfigError{Field: "helo-domain", Message: "required when the SMTP probe is enabled",
				Hint: "use a domain whose MX or A record points at this host"}
		}
		if !strings.Contains(c.MailFrom, "@") {
			return &ConfigError{Field: "mail-from", Value: c.MailFrom, Message: "must be an address when the SMTP probe is enabled",
				Hint: "e.g. --mail-from verify@" + c.HeloDomain}
		}
	}

	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return &ConfigError{Field: "log-format", Value: c.LogFormat, Message: "must be auto, text or json"}
	}
	return nil
}
