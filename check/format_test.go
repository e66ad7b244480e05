package check_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/emailvalidator/check"
	"github.com/optimode/emailvalidator/internal/parse"
	"github.com/optimode/emailvalidator/types"
)

func TestFormatChecker(t *testing.T) {
	c := check.NewFormatChecker(check.FormatConfig{})
	ctx := context.Background()

	tests := []struct {
		name   string
		email  string
		wantOK bool
	}{
		{"valid simple", "user@gmail.com", true},
		{"valid with plus", "user+tag@gmail.com", true},
		{"valid with dots", "user.name@domain.com", true},
		{"valid percent", "user%list@example.org", true},
		{"valid subdomain", "user@mail.example.co.uk", true},
		{"uppercase is normalized", "USER@EXAMPLE.COM", true},
		{"surrounding whitespace", "  user@example.com  ", true},
		// the grammar is deliberately permissive about dots
		{"double dot local", "user..name@domain.com", true},
		{"double dot domain", "user@domain..com", true},

		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"no at sign", "invalid-email", false},
		{"no domain", "user@", false},
		{"no local", "@domain.com", false},
		{"no tld", "user@domain", false},
		{"trailing dot", "user@domain.", false},
		{"one letter tld", "user@domain.c", false},
		{"numeric tld", "user@example.123", false},
		{"quoted local", `"user name"@example.com`, false},
		{"two at signs", "a@b@example.com", false},
		{"unicode domain without IDN", "user@münchen.de", false},
		{"unicode local", "用户@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Check(ctx, parse.NewEmail(tt.email))
			assert.Equal(t, types.StageFormat, result.Stage)
			assert.Equal(t, tt.wantOK, result.Passed(), "Details: %s", result.Details)
		})
	}
}

func TestFormatChecker_Details(t *testing.T) {
	c := check.NewFormatChecker(check.FormatConfig{})
	ctx := context.Background()

	result := c.Check(ctx, parse.NewEmail(""))
	assert.Equal(t, types.OutcomeFail, result.Outcome)
	assert.Equal(t, "email is empty", result.Details)

	result = c.Check(ctx, parse.NewEmail("user@"))
	assert.Equal(t, types.OutcomeFail, result.Outcome)
	assert.Equal(t, "invalid email format", result.Details)
}

func TestFormatChecker_AllowIDN(t *testing.T) {
	c := check.NewFormatChecker(check.FormatConfig{AllowIDN: true})
	ctx := context.Background()

	tests := []struct {
		email  string
		wantOK bool
	}{
		{"user@münchen.de", true},
		{"user@xn--mnchen-3ya.de", true},
		{"user@почта.рф", true},
		{"user@example.com", true},
		{"用户@example.com", false},
		{"user@domain", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := c.Check(ctx, parse.NewEmail(tt.email))
			assert.Equal(t, tt.wantOK, result.Passed(), "Details: %s", result.Details)
		})
	}
}
