package smtpprobe_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/emailvalidator/internal/smtpprobe"
)

// mockSMTPServer simulates an SMTP server on a net.Pipe connection.
// Commands without a matching prefix get no answer at all.
type mockSMTPServer struct {
	banner    string
	responses map[string]string

	mu       sync.Mutex
	commands []string
}

func (m *mockSMTPServer) serve(server net.Conn) {
	defer func() { _ = server.Close() }()

	_, _ = fmt.Fprintf(server, "%s\r\n", m.banner)

	buf := make([]byte, 4096)
	for {
		n, err := server.Read(buf)
		if err != nil {
			return
		}
		cmd := string(buf[:n])
		m.mu.Lock()
		m.commands = append(m.commands, strings.TrimSpace(cmd))
		m.mu.Unlock()

		if strings.HasPrefix(cmd, "QUIT") {
			_, _ = fmt.Fprintf(server, "221 Bye\r\n")
			return
		}
		for prefix, resp := range m.responses {
			if strings.HasPrefix(cmd, prefix) {
				_, _ = fmt.Fprintf(server, "%s\r\n", resp)
				break
			}
		}
	}
}

func (m *mockSMTPServer) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

func newProber(m *mockSMTPServer, commandTimeout time.Duration) *smtpprobe.Prober {
	return smtpprobe.New(smtpprobe.Config{
		HeloDomain:     "test.com",
		MailFrom:       "verify@test.com",
		ConnectTimeout: time.Second,
		CommandTimeout: commandTimeout,
		Dial: func(_ context.Context, network, address string) (net.Conn, error) {
			client, server := net.Pipe()
			go m.serve(server)
			return client, nil
		},
	})
}

func okResponses() map[string]string {
	return map[string]string{
		"EHLO":      "250-mx.example.com\r\n250 SIZE 1000000",
		"MAIL FROM": "250 OK",
		"RCPT TO":   "250 2.1.5 OK",
	}
}

func TestProbe_Accepted(t *testing.T) {
	m := &mockSMTPServer{banner: "220 mock.smtp ESMTP", responses: okResponses()}
	p := newProber(m, 2*time.Second)

	code, msg, err := p.Probe(context.Background(), "mx.example.com", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 250, code)
	assert.Equal(t, "2.1.5 OK", msg)

	sent := m.sent()
	require.Len(t, sent, 4)
	assert.Equal(t, "EHLO test.com", sent[0])
	assert.Equal(t, "MAIL FROM:<verify@test.com>", sent[1])
	assert.Equal(t, "RCPT TO:<user@example.com>", sent[2])
	assert.Equal(t, "QUIT", sent[3])
}

func TestProbe_RejectedRCPT(t *testing.T) {
	responses := okResponses()
	responses["RCPT TO"] = "550 5.1.1 User unknown"
	m := &mockSMTPServer{banner: "220 mock.smtp ESMTP", responses: responses}
	p := newProber(m, 2*time.Second)

	code, msg, err := p.Probe(context.Background(), "mx.example.com", "nobody@example.com")
	assert.NoError(t, err, "an answered RCPT is not an error")
	assert.Equal(t, 550, code)
	assert.Equal(t, "5.1.1 User unknown", msg)
}

func TestProbe_ConnectionError(t *testing.T) {
	p := smtpprobe.New(smtpprobe.Config{
		HeloDomain: "test.com",
		MailFrom:   "verify@test.com",
		Dial: func(_ context.Context, network, address string) (net.Conn, error) {
			assert.Equal(t, "mx.example.com:25", address)
			return nil, fmt.Errorf("connection refused")
		},
	})

	_, _, err := p.Probe(context.Background(), "mx.example.com", "user@example.com")
	var pe *smtpprobe.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "dial", pe.Op)
	assert.Equal(t, "mx.example.com", pe.Host)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestProbe_BannerRejected(t *testing.T) {
	m := &mockSMTPServer{banner: "554 no service", responses: okResponses()}
	p := newProber(m, 2*time.Second)

	_, _, err := p.Probe(context.Background(), "mx.example.com", "user@example.com")
	var pe *smtpprobe.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "banner", pe.Op)
}

func TestProbe_HELOFallback(t *testing.T) {
	responses := okResponses()
	responses["EHLO"] = "502 command not implemented"
	responses["HELO"] = "250 mx.example.com"
	m := &mockSMTPServer{banner: "220 mock.smtp", responses: responses}
	p := newProber(m, 2*time.Second)

	code, _, err := p.Probe(context.Background(), "mx.example.com", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 250, code)
	assert.Equal(t, "HELO test.com", m.sent()[1])
}

func TestProbe_SenderRejectedStillAsksForRecipient(t *testing.T) {
	responses := okResponses()
	responses["MAIL FROM"] = "550 5.7.1 sender rejected"
	responses["RCPT TO"] = "503 5.5.1 need MAIL first"
	m := &mockSMTPServer{banner: "220 mock.smtp", responses: responses}
	p := newProber(m, 2*time.Second)

	code, msg, err := p.Probe(context.Background(), "mx.example.com", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 503, code)
	assert.Equal(t, "5.5.1 need MAIL first", msg)
	assert.Equal(t, "RCPT TO:<user@example.com>", m.sent()[2])
}

func TestProbe_GreetingRejectedStillAsksForRecipient(t *testing.T) {
	responses := okResponses()
	responses["EHLO"] = "554 go away"
	responses["HELO"] = "554 go away"
	responses["RCPT TO"] = "503 bad sequence of commands"
	m := &mockSMTPServer{banner: "220 mock.smtp", responses: responses}
	p := newProber(m, 2*time.Second)

	code, _, err := p.Probe(context.Background(), "mx.example.com", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 503, code)
	assert.Equal(t, []string{"EHLO test.com", "HELO test.com", "MAIL FROM:<verify@test.com>", "RCPT TO:<user@example.com>", "QUIT"}, m.sent())
}

func TestProbe_CommandTimeout(t *testing.T) {
	responses := okResponses()
	delete(responses, "EHLO") // server goes silent after the banner
	m := &mockSMTPServer{banner: "220 mock.smtp", responses: responses}
	p := newProber(m, 100*time.Millisecond)

	start := time.Now()
	_, _, err := p.Probe(context.Background(), "mx.example.com", "user@example.com")
	var pe *smtpprobe.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "ehlo", pe.Op)
	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.True(t, ne.Timeout())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProbe_ContextCancel(t *testing.T) {
	responses := okResponses()
	delete(responses, "RCPT TO")
	m := &mockSMTPServer{banner: "220 mock.smtp", responses: responses}
	p := newProber(m, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := p.Probe(ctx, "mx.example.com", "user@example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
