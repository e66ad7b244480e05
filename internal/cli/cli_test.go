package cli_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/emailvalidator"
	"github.com/optimode/emailvalidator/internal/cli"
)

type mxTable map[string]string

func (m mxTable) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	host, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, emailvalidator.ErrNXDomain)
	}
	return []*net.MX{{Host: host, Pref: 10}}, nil
}

type run struct {
	stdout, stderr bytes.Buffer
	err            error
}

func execute(t *testing.T, args ...string) *run {
	t.Helper()
	r := &run{}
	app := &cli.App{
		Stdout:   &r.stdout,
		Stderr:   &r.stderr,
		Resolver: mxTable{"example.com": "mx.example.com.", "corp.test": "mail.corp.test."},
	}
	r.err = app.Run(context.Background(), args)
	return r
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ee *cli.ExitError
	require.True(t, errors.As(err, &ee), "expected *cli.ExitError, got %v", err)
	return ee.Code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_VersionAndHelp(t *testing.T) {
	r := execute(t, "--version")
	require.NoError(t, r.err)
	assert.True(t, strings.HasPrefix(r.stdout.String(), "emailvalidator "))

	for _, args := range [][]string{nil, {"--help"}, {"-h"}} {
		r = execute(t, args...)
		require.NoError(t, r.err)
		assert.Contains(t, r.stderr.String(), "Usage:")
		assert.Contains(t, r.stderr.String(), "--progress-every")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"--frobnicate", "validate", "x.csv"}},
		{"validate without file", []string{"validate"}},
		{"check without address", []string{"check"}},
		{"serve with argument", []string{"serve", "extra"}},
		{"invalid workers", []string{"--workers", "0", "check", "a@example.com"}},
		{"smtp without identity", []string{"--smtp", "check", "a@example.com"}},
		{"bad log format", []string{"--log-format", "xml", "check", "a@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := execute(t, tt.args...)
			require.Error(t, r.err)
			assert.Equal(t, 2, exitCode(t, r.err))
		})
	}
}

func TestValidate_CSV(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "contacts.csv", "name,email\nAnn,ann@example.com\nBob,bob@nowhere.test\nCid,nope\n")
	out := filepath.Join(dir, "out")

	r := execute(t, "-o", out, "validate", in)
	require.NoError(t, r.err, r.stderr.String())

	assert.Equal(t, "3 addresses: 1 valid, 2 invalid\nresults: "+filepath.Join(out, "contacts_validated.csv")+"\n", r.stdout.String())
	assert.Contains(t, r.stderr.String(), "Starting validation...\n")
	assert.Contains(t, r.stderr.String(), "Validated 3/3 emails...\n")

	data, err := os.ReadFile(filepath.Join(out, "contacts_validated.csv"))
	require.NoError(t, err)
	assert.Equal(t, "name,email,valid\nAnn,ann@example.com,true\nBob,bob@nowhere.test,false\nCid,nope,false\n", string(data))
	assert.FileExists(t, in, "the CLI leaves its input alone")
}

func TestValidate_DetailedMbox(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "inbox.mbox",
		"From a Thu Jan  1 00:00:00 2025\nFrom: Ann <Ann@Corp.Test>\nSubject: hi\n\nbody\n")
	out := filepath.Join(dir, "out")

	r := execute(t, "--detailed", "--output-dir", out, "validate", in)
	require.NoError(t, r.err, r.stderr.String())

	data, err := os.ReadFile(filepath.Join(out, "inbox_detailed_validated.csv"))
	require.NoError(t, err)
	assert.Equal(t, "email,is_valid,format_valid,domain_valid,smtp_valid,errors\nann@corp.test,true,true,true,false,[]\n", string(data))
}

func TestValidate_UnsupportedInput(t *testing.T) {
	dir := t.TempDir()
	r := execute(t, "validate", writeFile(t, dir, "list.txt", "email\n"))
	assert.Equal(t, 2, exitCode(t, r.err))

	r = execute(t, "validate", filepath.Join(dir, "missing.csv"))
	assert.Equal(t, 2, exitCode(t, r.err))
}

func TestValidate_MissingColumnFails(t *testing.T) {
	dir := t.TempDir()
	r := execute(t, "-o", dir, "validate", writeFile(t, dir, "c.csv", "address\na@example.com\n"))
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), `"email"`)
}

func TestValidate_ConfigLayers(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "c.csv", "Address,Mail\na@example.com,bad\n")
	cfgFile := writeFile(t, dir, "ev.hcl", fmt.Sprintf("column = \"Address\"\noutput_dir = %q\n", filepath.Join(dir, "from-file")))

	// File only.
	r := execute(t, "--config", cfgFile, "validate", in)
	require.NoError(t, r.err, r.stderr.String())
	assert.FileExists(t, filepath.Join(dir, "from-file", "c_validated.csv"))
	assert.Contains(t, r.stdout.String(), "1 valid, 0 invalid")

	// Environment beats the file.
	t.Setenv("EMAILVALIDATOR_COLUMN", "Mail")
	r = execute(t, "--config", cfgFile, "validate", in)
	require.NoError(t, r.err, r.stderr.String())
	assert.Contains(t, r.stdout.String(), "0 valid, 1 invalid")

	// Flags beat the environment.
	r = execute(t, "--config", cfgFile, "--column", "Address", "validate", in)
	require.NoError(t, r.err, r.stderr.String())
	assert.Contains(t, r.stdout.String(), "1 valid, 0 invalid")
}

func TestValidate_EnvFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "c.csv", "email\na@example.com\n")
	out := filepath.Join(dir, "env-out")
	envFile := writeFile(t, dir, "test.env", "EMAILVALIDATOR_OUTPUT_DIR="+out+"\n")
	t.Setenv("EMAILVALIDATOR_OUTPUT_DIR", "")
	require.NoError(t, os.Unsetenv("EMAILVALIDATOR_OUTPUT_DIR"))

	r := execute(t, "--env-file", envFile, "validate", in)
	require.NoError(t, r.err, r.stderr.String())
	assert.FileExists(t, filepath.Join(out, "c_validated.csv"))
}

func TestCheck(t *testing.T) {
	r := execute(t, "check", "User@Example.com", "bad", "x@nowhere.test")
	require.Error(t, r.err)
	assert.Equal(t, 1, exitCode(t, r.err))
	assert.Equal(t, "2 of 3 addresses invalid", r.err.Error())

	var records []map[string]any
	sc := bufio.NewScanner(&r.stdout)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 3)
	assert.Equal(t, "user@example.com", records[0]["email"])
	assert.Equal(t, true, records[0]["is_valid"])
	assert.Equal(t, false, records[1]["is_valid"])
	assert.Equal(t, []any{"domain does not exist"}, records[2]["errors"])
}

func TestCheck_AllValid(t *testing.T) {
	r := execute(t, "check", "a@example.com")
	assert.NoError(t, r.err)
}
