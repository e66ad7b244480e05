package mboxsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emersion/go-imap/utf7"

	"github.com/optimode/emailvalidator/batch"
)

// DirColumns are the columns produced by Dir.
var DirColumns = []string{"email", "subject", "mailbox"}

// Dir is a batch.Source reading every mailbox file in a directory, as
// left by IMAP exports. File names are IMAP-UTF7 encoded; the decoded
// name goes into the mailbox column. Hidden files and subdirectories are
// skipped. Mailboxes are read in name order.
type Dir struct {
	Path string
}

func (d Dir) Read(ctx context.Context) (*batch.Table, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	tbl := &batch.Table{Columns: append([]string(nil), DirColumns...)}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name, err := MailboxName(e.Name())
		if err != nil {
			return nil, err
		}
		mb, err := File{Path: filepath.Join(d.Path, e.Name())}.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("mailbox %s: %w", name, err)
		}
		for _, row := range mb.Rows {
			tbl.Rows = append(tbl.Rows, append(row, name))
		}
	}
	return tbl, nil
}

// MailboxName decodes an IMAP-UTF7 mailbox file name.
func MailboxName(file string) (string, error) {
	name, err := utf7.Encoding.NewDecoder().String(file)
	if err != nil {
		return "", fmt.Errorf("mailbox name %q: %w", file, err)
	}
	return name, nil
}
