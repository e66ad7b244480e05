// Package cli wires up the command line: flags, configuration layers and
// the validate, check and serve commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/optimode/emailvalidator"
	"github.com/optimode/emailvalidator/internal/config"
	"github.com/optimode/emailvalidator/internal/logging"
)

// version is overridable at link time:
//
//	go build -ldflags "-X github.com/optimode/emailvalidator/internal/cli.version=1.2.0"
var version = "0.1.0" //nolint:gochecknoglobals

// ExitError carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// App runs one command line. The zero value is not usable; see Execute.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	// Resolver replaces DNS lookups when set.
	Resolver emailvalidator.MXResolver
}

// Execute runs args against the process's standard streams.
func Execute(ctx context.Context, args []string) error {
	a := &App{Stdout: os.Stdout, Stderr: os.Stderr}
	return a.Run(ctx, args)
}

// Run parses args and dispatches to the named command.
//
// Configuration is layered: defaults, then the --config HCL file, then
// the --env-file and the environment, then flags.
func (a *App) Run(ctx context.Context, args []string) error {
	configPath, envPath := preParse(args)

	cfg := config.Defaults()
	if configPath != "" {
		if err := config.LoadFile(configPath, cfg); err != nil {
			return usageError("%v", err)
		}
	}
	if err := config.LoadDotEnv(envPath); err != nil {
		return usageError("env file %s: %v", envPath, err)
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return usageError("%v", err)
	}

	fs, opts := a.flags(cfg)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError("%v", err)
	}
	if opts.showVersion {
		_, _ = fmt.Fprintf(a.Stdout, "emailvalidator %s\n", version)
		return nil
	}
	rest := fs.Args()
	if opts.showHelp || len(rest) == 0 {
		a.printUsage(fs)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	logger, err := logging.New(a.Stderr, cfg.Verbose, cfg.LogFormat)
	if err != nil {
		return usageError("%v", err)
	}
	logger.Debug("configuration loaded", "config_file", configPath, "smtp", cfg.SMTP, "workers", cfg.Workers)

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "validate":
		if len(cmdArgs) != 1 {
			return usageError("validate: expected exactly one input file")
		}
		return a.validate(ctx, cfg, logger, cmdArgs[0])
	case "check":
		if len(cmdArgs) == 0 {
			return usageError("check: expected at least one address")
		}
		return a.check(ctx, cfg, logger, cmdArgs)
	case "serve":
		if len(cmdArgs) != 0 {
			return usageError("serve: unexpected arguments %q", cmdArgs)
		}
		return a.serve(ctx, cfg, logger)
	default:
		return usageError("unknown command %q (use --help for usage)", cmd)
	}
}

// preParse extracts --config and --env-file ahead of the full parse so
// the file layers sit below the flags.
func preParse(args []string) (configPath, envPath string) {
	fs := flag.NewFlagSet("emailvalidator", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&envPath, "env-file", ".env", "")
	fs.BoolP("help", "h", false, "")
	_ = fs.Parse(args)
	return configPath, envPath
}

type flagOpts struct {
	showVersion bool
	showHelp    bool
}

// flags binds every flag to cfg, so the values already loaded become the
// defaults.
func (a *App) flags(cfg *config.Config) (*flag.FlagSet, *flagOpts) {
	fs := flag.NewFlagSet("emailvalidator", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	opts := &flagOpts{}

	// ── configuration ────────────────────────────────────────────
	fs.String("config", "", "HCL configuration file")
	fs.String("env-file", ".env", "Environment file (ignored if missing)")

	// ── batch ────────────────────────────────────────────────────
	fs.StringVar(&cfg.Column, "column", cfg.Column, "Header of the address column")
	fs.BoolVarP(&cfg.Detailed, "detailed", "d", cfg.Detailed, "Write one detailed row per address")
	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Addresses validated concurrently")
	fs.IntVar(&cfg.ProgressEvery, "progress-every", cfg.ProgressEvery, "Report progress every N addresses")
	fs.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for result files")

	// ── validation ───────────────────────────────────────────────
	fs.BoolVar(&cfg.AllowIDN, "allow-idn", cfg.AllowIDN, "Accept internationalized domain names")
	fs.StringSliceVar(&cfg.Nameservers, "nameserver", cfg.Nameservers, "DNS server host[:port] (repeatable; default from resolv.conf)")
	fs.DurationVar(&cfg.DNSTimeout, "dns-timeout", cfg.DNSTimeout, "Timeout of one MX lookup")
	fs.BoolVar(&cfg.SuggestTypos, "suggest-typos", cfg.SuggestTypos, "Suggest corrections for misspelled provider domains")
	fs.IntVar(&cfg.TypoThreshold, "typo-threshold", cfg.TypoThreshold, "Maximum edit distance of a typo suggestion")
	fs.BoolVar(&cfg.SMTP, "smtp", cfg.SMTP, "Probe mailboxes with SMTP RCPT TO")
	fs.StringVar(&cfg.HeloDomain, "helo-domain", cfg.HeloDomain, "EHLO domain for the SMTP probe")
	fs.StringVar(&cfg.MailFrom, "mail-from", cfg.MailFrom, "MAIL FROM address for the SMTP probe")
	fs.DurationVar(&cfg.SMTPTimeout, "smtp-timeout", cfg.SMTPTimeout, "SMTP connect and per-command timeout")

	// ── server ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Listen, "listen", "l", cfg.Listen, "HTTP listen address")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "Directory for uploaded files")
	fs.IntVar(&cfg.JobWorkers, "job-workers", cfg.JobWorkers, "Jobs run concurrently")
	fs.IntVar(&cfg.MaxUploadMB, "max-upload-mb", cfg.MaxUploadMB, "Largest accepted upload in MiB")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: auto, text or json")

	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { a.printUsage(fs) }
	return fs, opts
}

func (a *App) printUsage(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(a.Stderr, `emailvalidator %s

Validates email addresses: syntax, MX records and optionally an SMTP
RCPT TO probe.

Usage:
  emailvalidator [options] validate <file.csv|file.mbox|mailbox-dir>
  emailvalidator [options] check <address> [address...]
  emailvalidator [options] serve

Options:
`, version)
	fs.PrintDefaults()
	_, _ = fmt.Fprint(a.Stderr, `
Examples:
  emailvalidator validate contacts.csv                 Append a valid column
  emailvalidator -d validate contacts.csv              One detailed row per address
  emailvalidator validate ~/Mail/Archive               Validate senders of every mailbox
  emailvalidator --smtp --helo-domain myapp.com \
      --mail-from verify@myapp.com check a@example.com Probe one mailbox
  emailvalidator -v serve --listen :8000               HTTP upload service

Environment variables use the EMAILVALIDATOR_ prefix, e.g.
EMAILVALIDATOR_WORKERS=32 or EMAILVALIDATOR_SMTP=true.
`)
}

// buildValidator assembles the stage pipeline described by cfg.
func (a *App) buildValidator(cfg *config.Config, logger *slog.Logger) (*emailvalidator.Validator, error) {
	v := emailvalidator.New(emailvalidator.FormatOptions{AllowIDN: cfg.AllowIDN}).
		WithLogger(logger).
		WithDomain(emailvalidator.DomainOptions{
			Timeout:       cfg.DNSTimeout,
			Resolver:      a.Resolver,
			Nameservers:   cfg.Nameservers,
			SuggestTypos:  cfg.SuggestTypos,
			TypoThreshold: cfg.TypoThreshold,
		})
	if cfg.SMTP {
		v = v.WithSMTP(emailvalidator.SMTPOptions{
			HeloDomain:     cfg.HeloDomain,
			MailFrom:       cfg.MailFrom,
			ConnectTimeout: cfg.SMTPTimeout,
			CommandTimeout: cfg.SMTPTimeout,
		})
	}
	// Surface a configuration error before any work starts.
	if _, err := v.Validate(context.Background(), ""); err != nil {
		return nil, err
	}
	return v, nil
}
