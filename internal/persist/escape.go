package persist

import (
	"fmt"
	"strings"
)

// illegalChars are the characters that cannot appear in a coaster file name.
const illegalChars = `%\/:"*?<>|`

// EscapeName turns a coaster name into a file-system-safe token by
// replacing every illegal character with %XX (uppercase hex).
func EscapeName(name string) string {
	if !strings.ContainsAny(name, illegalChars) {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 8)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if strings.IndexByte(illegalChars, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapeName reverses EscapeName. Only well-formed %XX sequences are
// decoded; anything else is kept literally.
func UnescapeName(token string) string {
	if !strings.Contains(token, "%") {
		return token
	}
	var b strings.Builder
	b.Grow(len(token))
	for i := 0; i < len(token); i++ {
		if token[i] == '%' && i+2 < len(token) {
			hi, ok1 := unhex(token[i+1])
			lo, ok2 := unhex(token[i+2])
			if ok1 && ok2 {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(token[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
