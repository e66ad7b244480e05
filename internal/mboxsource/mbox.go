// Package mboxsource turns an mbox mailbox into a batch table with one
// row per message: the sender address and the decoded subject.
package mboxsource

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"os"
	"strings"

	"github.com/emersion/go-mbox"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/optimode/emailvalidator/batch"
)

// Columns of the produced table.
var Columns = []string{"email", "subject"}

var decoder = &mime.WordDecoder{CharsetReader: charsetReader}

// Read reads every message of the mailbox. A message whose headers cannot
// be parsed is kept as a row with an empty address, so row numbers match
// message numbers.
func Read(ctx context.Context, r io.Reader) (*batch.Table, error) {
	tbl := &batch.Table{Columns: append([]string(nil), Columns...)}
	mr := mbox.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := mr.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mbox: message %d: %w", len(tbl.Rows)+1, err)
		}
		tbl.Rows = append(tbl.Rows, row(msg))
	}
	return tbl, nil
}

func row(msg io.Reader) []string {
	m, err := mail.ReadMessage(msg)
	if err != nil {
		return []string{"", ""}
	}
	return []string{sender(m.Header.Get("From")), decodeHeader(m.Header.Get("Subject"))}
}

// sender returns the first address of a From header. Unparseable headers
// are returned as they are, so the format stage reports them.
func sender(from string) string {
	if from == "" {
		return ""
	}
	p := mail.AddressParser{WordDecoder: decoder}
	addrs, err := p.ParseList(from)
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(from)
	}
	return addrs[0].Address
}

func decodeHeader(s string) string {
	dec, err := decoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return dec
}

// charsetReader converts encoded words in non-UTF-8 charsets, e.g.
// ISO-2022-JP, to UTF-8. Unknown charsets are passed through.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.MIME.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// File is a batch.Source reading an mbox file.
type File struct {
	Path string
}

func (f File) Read(ctx context.Context) (*batch.Table, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	return Read(ctx, fh)
}
