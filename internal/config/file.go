package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// fileConfig is the HCL form of Config. Attributes missing from the file
// leave the corresponding field untouched.
type fileConfig struct {
	Listen      string `hcl:"listen,optional"`
	UploadDir   string `hcl:"upload_dir,optional"`
	OutputDir   string `hcl:"output_dir,optional"`
	JobWorkers  int    `hcl:"job_workers,optional"`
	MaxUploadMB int    `hcl:"max_upload_mb,optional"`

	Column        string `hcl:"column,optional"`
	Workers       int    `hcl:"workers,optional"`
	ProgressEvery int    `hcl:"progress_every,optional"`
	Detailed      bool   `hcl:"detailed,optional"`

	AllowIDN      bool     `hcl:"allow_idn,optional"`
	Nameservers   []string `hcl:"nameservers,optional"`
	DNSTimeout    string   `hcl:"dns_timeout,optional"`
	SuggestTypos  bool     `hcl:"suggest_typos,optional"`
	TypoThreshold int      `hcl:"typo_threshold,optional"`

	SMTP *smtpBlock `hcl:"smtp,block"`

	Verbose   int    `hcl:"verbose,optional"`
	LogFormat string `hcl:"log_format,optional"`
}

type smtpBlock struct {
	Enabled    *bool  `hcl:"enabled,optional"`
	HeloDomain string `hcl:"helo_domain"`
	MailFrom   string `hcl:"mail_from"`
	Timeout    string `hcl:"timeout,optional"`
}

// LoadFile overlays the HCL file at path onto cfg.
//
//	output_dir = "/var/lib/emailvalidator"
//	workers    = 32
//	smtp {
//	  helo_domain = "myapp.com"
//	  mail_from   = "verify@myapp.com"
//	}
//
// An smtp block enables the probe unless it sets enabled = false.
func LoadFile(path string, cfg *Config) error {
	if filepath.Ext(path) != ".hcl" {
		return &ConfigError{Field: "config", Value: path, Message: "configuration file must have the .hcl extension"}
	}

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	fc := fileConfig{
		Listen:        cfg.Listen,
		UploadDir:     cfg.UploadDir,
		OutputDir:     cfg.OutputDir,
		JobWorkers:    cfg.JobWorkers,
		MaxUploadMB:   cfg.MaxUploadMB,
		Column:        cfg.Column,
		Workers:       cfg.Workers,
		ProgressEvery: cfg.ProgressEvery,
		Detailed:      cfg.Detailed,
		AllowIDN:      cfg.AllowIDN,
		Nameservers:   cfg.Nameservers,
		DNSTimeout:    cfg.DNSTimeout.String(),
		SuggestTypos:  cfg.SuggestTypos,
		TypoThreshold: cfg.TypoThreshold,
		Verbose:       cfg.Verbose,
		LogFormat:     cfg.LogFormat,
	}
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	dnsTimeout, err := time.ParseDuration(fc.DNSTimeout)
	if err != nil {
		return &ConfigError{Field: "dns-timeout", Value: fc.DNSTimeout, Message: "not a duration", Hint: `e.g. "5s"`}
	}

	cfg.Listen = fc.Listen
	cfg.UploadDir = fc.UploadDir
	cfg.OutputDir = fc.OutputDir
	cfg.JobWorkers = fc.JobWorkers
	cfg.MaxUploadMB = fc.MaxUploadMB
	cfg.Column = fc.Column
	cfg.Workers = fc.Workers
	cfg.ProgressEvery = fc.ProgressEvery
	cfg.Detailed = fc.Detailed
	cfg.AllowIDN = fc.AllowIDN
	cfg.Nameservers = fc.Nameservers
	cfg.DNSTimeout = dnsTimeout
	cfg.SuggestTypos = fc.SuggestTypos
	cfg.TypoThreshold = fc.TypoThreshold
	cfg.Verbose = fc.Verbose
	cfg.LogFormat = fc.LogFormat

	if b := fc.SMTP; b != nil {
		cfg.SMTP = b.Enabled == nil || *b.Enabled
		cfg.HeloDomain = b.HeloDomain
		cfg.MailFrom = b.MailFrom
		if b.Timeout != "" {
			d, err := time.ParseDuration(b.Timeout)
			if err != nil {
				return &ConfigError{Field: "smtp-timeout", Value: b.Timeout, Message: "not a duration", Hint: `e.g. "5s"`}
			}
			cfg.SMTPTimeout = d
		}
	}
	return nil
}
