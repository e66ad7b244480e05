package emailvalidator

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/optimode/emailvalidator/check"
	"github.com/optimode/emailvalidator/internal/dnscache"
	"github.com/optimode/emailvalidator/internal/parse"
	"github.com/optimode/emailvalidator/internal/resolver"
	"github.com/optimode/emailvalidator/internal/smtpprobe"
	"github.com/optimode/emailvalidator/types"
)

// checker is the internal interface for all validation stages.
// Every check/ package type implements this.
type checker interface {
	Check(ctx context.Context, email parse.Email) types.CheckResult
}

// Validator is the main fluent builder struct.
// Instantiate with the New() function. A configured Validator is safe for
// concurrent use.
type Validator struct {
	checkers []checker
	err      error // configuration error, returned on Validate()
	mx       *dnscache.Cache
	logger   *slog.Logger
}

// New creates a new Validator. By default it only performs the format
// check. The format check always runs and cannot be disabled, because a
// well-formed address is a prerequisite for the other stages.
func New(opts ...FormatOptions) *Validator {
	var o FormatOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return &Validator{
		checkers: []checker{
			check.NewFormatChecker(check.FormatConfig{AllowIDN: o.AllowIDN}),
		},
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger used for per-address debug output.
// A nil logger discards.
func (v *Validator) WithLogger(l *slog.Logger) *Validator {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	v.logger = l
	return v
}

// WithDomain adds the MX lookup stage to the pipeline.
// Optionally overrides the default DomainOptions.
// MX answers are cached and shared with the SMTP stage.
func (v *Validator) WithDomain(opts ...DomainOptions) *Validator {
	o := defaultDomainOptions()
	if len(opts) > 0 {
		o = opts[0].withDefaults()
	}

	r := o.Resolver
	if r == nil {
		r = resolver.New(resolver.Config{Nameservers: o.Nameservers, Timeout: o.Timeout})
	}
	v.mx = dnscache.New(r, o.Timeout, o.CacheTTL)

	v.checkers = append(v.checkers, check.NewDomainChecker(check.DomainConfig{
		SuggestTypos:  o.SuggestTypos,
		TypoThreshold: o.TypoThreshold,
	}, v.mx))
	return v
}

// WithSMTP adds the SMTP RCPT TO probe to the pipeline.
// SMTPOptions.HeloDomain and MailFrom are required, and WithDomain must
// have been called first.
func (v *Validator) WithSMTP(opts SMTPOptions) *Validator {
	if opts.HeloDomain == "" || opts.MailFrom == "" {
		v.err = ErrInvalidSMTPOptions
		return v
	}
	if v.mx == nil {
		v.err = ErrSMTPRequiresDomain
		return v
	}

	// Apply defaults for unset values
	def := defaultSMTPOptions()
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = def.CommandTimeout
	}
	if opts.Port == "" {
		opts.Port = def.Port
	}

	prober := smtpprobe.New(smtpprobe.Config{
		HeloDomain:     opts.HeloDomain,
		MailFrom:       opts.MailFrom,
		ConnectTimeout: opts.ConnectTimeout,
		CommandTimeout: opts.CommandTimeout,
		Port:           opts.Port,
		Dial:           opts.Dial,
	})
	v.checkers = append(v.checkers, check.NewSMTPChecker(v.mx, prober))
	return v
}

// Validate runs all configured stages on the given address.
// The pipeline short-circuits: if a stage fails, later stages are skipped.
// An inconclusive stage records its diagnostic and the pipeline continues.
// The returned error is only ever a configuration error.
func (v *Validator) Validate(ctx context.Context, email string) (Record, error) {
	if v.err != nil {
		return Record{}, v.err
	}

	parsed := parse.NewEmail(email)
	rec := Record{Email: parsed.Address, Errors: []string{}}

	for _, c := range v.checkers {
		if !rec.apply(c.Check(ctx, parsed)) {
			v.logger.Debug("address rejected",
				"email", rec.Email,
				"stage", rec.Checks[len(rec.Checks)-1].Stage,
				"reason", rec.Errors[len(rec.Errors)-1])
			return rec, nil // short-circuit
		}
	}

	rec.Valid = true
	if len(rec.Errors) > 0 {
		v.logger.Debug("address accepted without confirmation", "email", rec.Email, "reason", rec.Errors[0])
	}
	return rec, nil
}

// ValidateMany validates multiple addresses concurrently.
// The result order matches the input slice order.
// Addresses are dispatched sorted by domain so that MX answers are
// served from the cache.
//
// If ctx is cancelled before every address is done, ValidateMany returns
// the context error and no records.
func (v *Validator) ValidateMany(ctx context.Context, emails []string, opts ...ConcurrencyOptions) ([]Record, error) {
	if v.err != nil {
		return nil, v.err
	}

	var o ConcurrencyOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}

	records := make([]Record, len(emails))
	done := make(chan int, o.Workers)

	// A single collector hands finished records to OnResult.
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for idx := range done {
			if o.OnResult != nil {
				o.OnResult(idx, records[idx])
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for _, idx := range dispatchOrder(emails) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := v.Validate(gctx, emails[idx])
			if err != nil {
				return err
			}
			// A record produced under a cancelled context may carry an
			// inconclusive probe that never ran.
			if err := gctx.Err(); err != nil {
				return err
			}
			records[idx] = rec
			done <- idx
			return nil
		})
	}

	err := g.Wait()
	close(done)
	<-collected

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

// dispatchOrder returns the indexes of emails sorted by domain.
func dispatchOrder(emails []string) []int {
	domains := make([]string, len(emails))
	order := make([]int, len(emails))
	for i, e := range emails {
		domains[i] = parse.NewEmail(e).Domain
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return domains[order[a]] < domains[order[b]]
	})
	return order
}
