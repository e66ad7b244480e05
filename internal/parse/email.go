package parse

import (
	"strings"

	"golang.org/x/net/idna"
)

// Email is the internal representation of a normalized email address.
// The check/ packages receive this as parameter.
type Email struct {
	Raw           string // the original input, untouched
	Address       string // trimmed and lowercased form of Raw
	Local         string // the part before the last @
	Domain        string // the part after the last @, as typed (lowercased)
	DomainASCII   string // Domain in ASCII/Punycode form, "" if IDNA conversion failed
	DomainUnicode string // Domain in Unicode form (for display/typo detection)
	HasAt         bool   // false if Address contains no @
}

// NewEmail normalizes the given address: surrounding whitespace is
// trimmed and the address is lowercased. It never fails; whether the
// result is acceptable is decided by the format stage.
func NewEmail(raw string) Email {
	addr := strings.ToLower(strings.TrimSpace(raw))
	e := Email{Raw: raw, Address: addr}

	atIdx := strings.LastIndex(addr, "@")
	if atIdx < 0 {
		return e
	}
	e.HasAt = true
	e.Local = addr[:atIdx]
	e.Domain = addr[atIdx+1:]
	e.DomainASCII, e.DomainUnicode = convertDomain(e.Domain)
	return e
}

// Empty reports whether nothing but whitespace was given.
func (e Email) Empty() bool {
	return e.Address == ""
}

// ASCII returns the address with its domain in Punycode form.
// If the domain could not be converted, the normalized address is returned.
func (e Email) ASCII() string {
	if !e.HasAt || e.DomainASCII == "" || e.DomainASCII == e.Domain {
		return e.Address
	}
	return e.Local + "@" + e.DomainASCII
}

// convertDomain converts a domain to both ASCII/Punycode and Unicode forms.
// ascii is empty when the domain contains non-ASCII characters that fail
// IDNA2008 validation.
func convertDomain(domain string) (ascii, unicode string) {
	if domain == "" {
		return "", ""
	}

	hasNonASCII := false
	for _, r := range domain {
		if r > 127 {
			hasNonASCII = true
			break
		}
	}

	if hasNonASCII {
		a, err := idna.Lookup.ToASCII(domain)
		if err != nil {
			return "", domain
		}
		return a, domain
	}

	// Pure ASCII domain: try to get the Unicode display form
	// (xn--mnchen-3ya.de → münchen.de)
	u, err := idna.Display.ToUnicode(domain)
	if err != nil {
		u = domain
	}
	return domain, u
}
