package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix starts every supported environment variable.
const EnvPrefix = "EMAILVALIDATOR_"

// LoadDotEnv loads KEY=value pairs from path into the process
// environment. Variables that are already set win. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadFromEnv overlays environment variables onto cfg. Only non-empty
// variables override the existing value. Booleans accept 1/true/yes and
// 0/false/no (case-insensitive).
func LoadFromEnv(cfg *Config) error {
	e := envReader{}

	e.stringVar("LISTEN", &cfg.Listen)
	e.stringVar("UPLOAD_DIR", &cfg.UploadDir)
	e.stringVar("OUTPUT_DIR", &cfg.OutputDir)
	e.intVar("JOB_WORKERS", &cfg.JobWorkers)
	e.intVar("MAX_UPLOAD_MB", &cfg.MaxUploadMB)

	e.stringVar("COLUMN", &cfg.Column)
	e.intVar("WORKERS", &cfg.Workers)
	e.intVar("PROGRESS_EVERY", &cfg.ProgressEvery)
	e.boolVar("DETAILED", &cfg.Detailed)

	e.boolVar("ALLOW_IDN", &cfg.AllowIDN)
	if v := os.Getenv(EnvPrefix + "NAMESERVERS"); v != "" {
		cfg.Nameservers = splitList(v)
	}
	e.durationVar("DNS_TIMEOUT", &cfg.DNSTimeout)
	e.boolVar("SUGGEST_TYPOS", &cfg.SuggestTypos)
	e.intVar("TYPO_THRESHOLD", &cfg.TypoThreshold)

	e.boolVar("SMTP", &cfg.SMTP)
	e.stringVar("HELO_DOMAIN", &cfg.HeloDomain)
	e.stringVar("MAIL_FROM", &cfg.MailFrom)
	e.durationVar("SMTP_TIMEOUT", &cfg.SMTPTimeout)

	e.intVar("VERBOSE", &cfg.Verbose)
	e.stringVar("LOG_FORMAT", &cfg.LogFormat)

	return e.err
}

// envReader keeps the first conversion error it sees.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	return v, v != ""
}

func (e *envReader) fail(key, v, want string) {
	if e.err == nil {
		e.err = fmt.Errorf("config: %s%s=%q: not %s", EnvPrefix, key, v, want)
	}
}

func (e *envReader) stringVar(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, "an integer")
		return
	}
	*dst = n
}

func (e *envReader) boolVar(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		*dst = true
	case "0", "false", "no":
		*dst = false
	default:
		e.fail(key, v, "a boolean")
	}
}

func (e *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	// Bare numbers are seconds.
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, "a duration")
		return
	}
	*dst = d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
