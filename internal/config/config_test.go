package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Defaults / Validate ──────────────────────────────────────────────

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.SMTP)
	assert.Equal(t, "email", cfg.Column)
	assert.Equal(t, 10, cfg.ProgressEvery)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"empty column", func(c *Config) { c.Column = "" }, "column"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"too many workers", func(c *Config) { c.Workers = MaxWorkers + 1 }, "workers"},
		{"zero job workers", func(c *Config) { c.JobWorkers = 0 }, "job-workers"},
		{"zero progress interval", func(c *Config) { c.ProgressEvery = 0 }, "progress-every"},
		{"zero upload limit", func(c *Config) { c.MaxUploadMB = 0 }, "max-upload-mb"},
		{"zero dns timeout", func(c *Config) { c.DNSTimeout = 0 }, "dns-timeout"},
		{"negative smtp timeout", func(c *Config) { c.SMTPTimeout = -time.Second }, "smtp-timeout"},
		{"negative typo threshold", func(c *Config) { c.TypoThreshold = -1 }, "typo-threshold"},
		{"smtp without helo", func(c *Config) { c.SMTP = true; c.MailFrom = "a@b.c" }, "helo-domain"},
		{"smtp with bad sender", func(c *Config) { c.SMTP = true; c.HeloDomain = "b.c"; c.MailFrom = "nobody" }, "mail-from"},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, "log-format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.edit(cfg)
			err := cfg.Validate()

			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestConfigError_Format(t *testing.T) {
	err := &ConfigError{Field: "workers", Value: 0, Message: "must be between 1 and 256", Hint: "try 16"}
	assert.Equal(t, "config: --workers=0: must be between 1 and 256\n  hint: try 16", err.Error())

	err = &ConfigError{Field: "column", Message: "address column name is empty"}
	assert.Equal(t, "config: --column: address column name is empty", err.Error())
}

// ── LoadFile ─────────────────────────────────────────────────────────

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "emailvalidator.hcl", `
output_dir    = "/srv/out"
workers       = 32
nameservers   = ["1.1.1.1", "9.9.9.9:53"]
dns_timeout   = "2s"
suggest_typos = false

smtp {
  helo_domain = "myapp.com"
  mail_from   = "verify@myapp.com"
  timeout     = "8s"
}
`)
	cfg := Defaults()
	require.NoError(t, LoadFile(path, cfg))

	assert.Equal(t, "/srv/out", cfg.OutputDir)
	assert.Equal(t, 32, cfg.Workers)
	assert.Equal(t, []string{"1.1.1.1", "9.9.9.9:53"}, cfg.Nameservers)
	assert.Equal(t, 2*time.Second, cfg.DNSTimeout)
	assert.False(t, cfg.SuggestTypos)
	assert.True(t, cfg.SMTP)
	assert.Equal(t, "myapp.com", cfg.HeloDomain)
	assert.Equal(t, "verify@myapp.com", cfg.MailFrom)
	assert.Equal(t, 8*time.Second, cfg.SMTPTimeout)

	// Untouched attributes keep their previous value.
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultColumn, cfg.Column)
	assert.Equal(t, DefaultProgressEvery, cfg.ProgressEvery)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_DisabledSMTPBlock(t *testing.T) {
	path := writeFile(t, "c.hcl", `
smtp {
  enabled     = false
  helo_domain = "myapp.com"
  mail_from   = "verify@myapp.com"
}
`)
	cfg := Defaults()
	require.NoError(t, LoadFile(path, cfg))
	assert.False(t, cfg.SMTP)
	assert.Equal(t, "myapp.com", cfg.HeloDomain)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		var ce *ConfigError
		err := LoadFile(writeFile(t, "c.yaml", "workers = 1"), Defaults())
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "config", ce.Field)
	})
	t.Run("syntax", func(t *testing.T) {
		assert.Error(t, LoadFile(writeFile(t, "c.hcl", "workers = "), Defaults()))
	})
	t.Run("unknown attribute", func(t *testing.T) {
		assert.Error(t, LoadFile(writeFile(t, "c.hcl", `colour = "blue"`), Defaults()))
	})
	t.Run("bad duration", func(t *testing.T) {
		assert.Error(t, LoadFile(writeFile(t, "c.hcl", `dns_timeout = "soon"`), Defaults()))
	})
	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, LoadFile(filepath.Join(t.TempDir(), "none.hcl"), Defaults()))
	})
}

// ── LoadFromEnv / LoadDotEnv ─────────────────────────────────────────

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EMAILVALIDATOR_WORKERS", "8")
	t.Setenv("EMAILVALIDATOR_SUGGEST_TYPOS", "no")
	t.Setenv("EMAILVALIDATOR_SMTP", "YES")
	t.Setenv("EMAILVALIDATOR_SMTP_TIMEOUT", "3")
	t.Setenv("EMAILVALIDATOR_DNS_TIMEOUT", "750ms")
	t.Setenv("EMAILVALIDATOR_NAMESERVERS", " 1.1.1.1 , ,8.8.8.8")
	t.Setenv("EMAILVALIDATOR_COLUMN", "Address")

	cfg := Defaults()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, 8, cfg.Workers)
	assert.False(t, cfg.SuggestTypos)
	assert.True(t, cfg.SMTP)
	assert.Equal(t, 3*time.Second, cfg.SMTPTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.DNSTimeout)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, cfg.Nameservers)
	assert.Equal(t, "Address", cfg.Column)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"EMAILVALIDATOR_WORKERS":     "many",
		"EMAILVALIDATOR_ALLOW_IDN":   "perhaps",
		"EMAILVALIDATOR_DNS_TIMEOUT": "soon",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			err := LoadFromEnv(Defaults())
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "EMAILVALIDATOR_PROGRESS_EVERY=25\nEMAILVALIDATOR_LOG_FORMAT=json\n")
	t.Setenv("EMAILVALIDATOR_LOG_FORMAT", "text")
	// t.Setenv restores the variable afterwards; register the one the file adds too.
	t.Setenv("EMAILVALIDATOR_PROGRESS_EVERY", "")
	require.NoError(t, os.Unsetenv("EMAILVALIDATOR_PROGRESS_EVERY"))

	require.NoError(t, LoadDotEnv(path))

	cfg := Defaults()
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, 25, cfg.ProgressEvery)
	assert.Equal(t, "text", cfg.LogFormat, "process environment wins over the file")
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}
