package utils

import "strings"

const upperhex = "0123456789ABCDEF"

// Quote percent-encodes s for use in a request path. Letters, digits, "_.-~"
// and "/" pass through; every other byte of the UTF-8 encoding is escaped.
func Quote(s string) string {
	return quote(s, "/")
}

// QuoteAll escapes "/" as well, for single path segments and query values.
func QuoteAll(s string) string {
	return quote(s, "")
}

func quote(s, safe string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || strings.IndexByte(safe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-' || c == '~':
		return true
	}
	return false
}
