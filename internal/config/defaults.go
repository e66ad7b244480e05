package config

import "time"

// ── Default values ───────────────────────────────────────────────────

const (
	DefaultListen        = "127.0.0.1:8000"
	DefaultUploadDir     = "/tmp"
	DefaultOutputDir     = "./output"
	DefaultJobWorkers    = 2
	DefaultMaxUploadMB   = 32
	DefaultColumn        = "email"
	DefaultWorkers       = 16
	DefaultProgressEvery = 10
	DefaultDNSTimeout    = 5 * time.Second
	DefaultSMTPTimeout   = 5 * time.Second
	DefaultTypoThreshold = 2
	DefaultLogFormat     = "auto"

	// MaxWorkers caps per-job concurrency to stay well below common
	// file descriptor limits.
	MaxWorkers = 256
)

// Defaults returns a configuration with every field set to its default.
// The SMTP stage is off until a sender identity is configured.
func Defaults() *Config {
	return &Config{
		Listen:        DefaultListen,
		UploadDir:     DefaultUploadDir,
		OutputDir:     DefaultOutputDir,
		JobWorkers:    DefaultJobWorkers,
		MaxUploadMB:   DefaultMaxUploadMB,
		Column:        DefaultColumn,
		Workers:       DefaultWorkers,
		ProgressEvery: DefaultProgressEvery,
		DNSTimeout:    DefaultDNSTimeout,
		SMTPTimeout:   DefaultSMTPTimeout,
		SuggestTypos:  true,
		TypoThreshold: DefaultTypoThreshold,
		LogFormat:     DefaultLogFormat,
	}
}
