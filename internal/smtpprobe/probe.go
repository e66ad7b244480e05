// Package smtpprobe asks a mail server whether it would accept mail for an
// address: banner, EHLO, MAIL FROM and RCPT TO on a fresh connection,
// followed by QUIT. No message is ever sent.
package smtpprobe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Config configures the prober.
type Config struct {
	HeloDomain     string
	MailFrom       string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Port           string
	// Dial is injectable for testing. Defaults to a net.Dialer bounded by
	// ConnectTimeout.
	Dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// Error describes a probe that could not be completed. It is never
// returned for an answered RCPT TO, whatever its code.
type Error struct {
	Op   string // "dial", "banner", "ehlo", "helo", "mail", "rcpt"
	Host string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("smtp %s %s: %v", e.Op, e.Host, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Prober performs RCPT TO probes.
type Prober struct {
	cfg Config
}

// New creates a prober, filling unset timeouts and port with defaults.
func New(cfg Config) *Prober {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 5 * time.Second
	}
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	if cfg.Dial == nil {
		d := &net.Dialer{Timeout: cfg.ConnectTimeout}
		cfg.Dial = d.DialContext
	}
	return &Prober{cfg: cfg}
}

type conn struct {
	netConn net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
}

// Probe connects to mxHost and returns the server's answer to
// RCPT TO:<email>. Any failure before that answer is an *Error.
// Cancelling ctx aborts the conversation.
func (p *Prober) Probe(ctx context.Context, mxHost, email string) (code int, msg string, err error) {
	address := net.JoinHostPort(mxHost, p.cfg.Port)

	dctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	netConn, err := p.cfg.Dial(dctx, "tcp", address)
	cancel()
	if err != nil {
		return 0, "", &Error{Op: "dial", Host: mxHost, Err: err}
	}
	defer func() { _ = netConn.Close() }()

	// Unblock pending reads and writes as soon as ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = netConn.SetDeadline(time.Now())
	})
	defer stop()

	c := &conn{
		netConn: netConn,
		reader:  bufio.NewReader(netConn),
		writer:  bufio.NewWriter(netConn),
	}

	code, msg, perr := p.converse(c, email)
	if perr != nil {
		perr.Host = mxHost
		if ctxErr := ctx.Err(); ctxErr != nil {
			perr.Err = ctxErr
		}
		return 0, "", perr
	}

	p.quit(c)
	return code, msg, nil
}

// converse runs the SMTP dialogue up to and including RCPT TO.
func (p *Prober) converse(c *conn, email string) (int, string, *Error) {
	if err := p.deadline(c); err != nil {
		return 0, "", &Error{Op: "banner", Err: err}
	}
	code, msg, err := readResponse(c.reader)
	if err != nil {
		return 0, "", &Error{Op: "banner", Err: err}
	}
	if code/100 != 2 {
		return 0, "", &Error{Op: "banner", Err: fmt.Errorf("server rejected connection: %d %s", code, msg)}
	}

	if err := p.hello(c); err != nil {
		return 0, "", err
	}

	if err := p.deadline(c); err != nil {
		return 0, "", &Error{Op: "mail", Err: err}
	}
	// A refused sender does not end the dialogue: the RCPT TO answer
	// decides, usually a 503 bad sequence.
	if _, _, err = command(c, fmt.Sprintf("MAIL FROM:<%s>\r\n", p.cfg.MailFrom)); err != nil {
		return 0, "", &Error{Op: "mail", Err: err}
	}

	if err := p.deadline(c); err != nil {
		return 0, "", &Error{Op: "rcpt", Err: err}
	}
	code, msg, err = command(c, fmt.Sprintf("RCPT TO:<%s>\r\n", email))
	if err != nil {
		return 0, "", &Error{Op: "rcpt", Err: err}
	}
	return code, msg, nil
}

// hello sends EHLO and falls back to HELO for servers that reject it.
// Only I/O failures are errors; a rejected greeting is left for RCPT TO
// to surface.
func (p *Prober) hello(c *conn) *Error {
	if err := p.deadline(c); err != nil {
		return &Error{Op: "ehlo", Err: err}
	}
	code, _, err := command(c, fmt.Sprintf("EHLO %s\r\n", p.cfg.HeloDomain))
	if err != nil {
		return &Error{Op: "ehlo", Err: err}
	}
	if code >= 500 {
		if _, _, err := command(c, fmt.Sprintf("HELO %s\r\n", p.cfg.HeloDomain)); err != nil {
			return &Error{Op: "helo", Err: err}
		}
	}
	return nil
}

func (p *Prober) deadline(c *conn) error {
	return c.netConn.SetDeadline(time.Now().Add(p.cfg.CommandTimeout))
}

// quit sends a QUIT command (best-effort, ignores errors).
func (p *Prober) quit(c *conn) {
	_ = c.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _, _ = command(c, "QUIT\r\n")
}

// command sends an SMTP command and reads the response.
func command(c *conn, cmd string) (int, string, error) {
	if _, err := c.writer.WriteString(cmd); err != nil {
		return 0, "", err
	}
	if err := c.writer.Flush(); err != nil {
		return 0, "", err
	}
	return readResponse(c.reader)
}

// readResponse reads a (possibly multi-line) SMTP response.
func readResponse(r *bufio.Reader) (code int, full string, err error) {
	var lines []string
	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil {
			return 0, "", fmt.Errorf("read SMTP response: %w", readErr)
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return 0, "", errors.New("SMTP response line too short")
		}
		lines = append(lines, line)
		// If the 4th character is not '-', this is the last line
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	lastLine := lines[len(lines)-1]
	if _, err := fmt.Sscanf(lastLine[:3], "%d", &code); err != nil {
		return 0, "", fmt.Errorf("invalid SMTP response code %q: %w", lastLine[:3], err)
	}

	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		if len(l) > 4 {
			texts = append(texts, strings.TrimSpace(l[4:]))
		}
	}
	return code, strings.Join(texts, " "), nil
}
