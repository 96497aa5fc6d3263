package stream

import (
	"strconv"
	"strings"
)

// recoveryKeys are the delta field names worth salvaging from a payload
// that failed to parse, in the order the intact paths are tried.
var recoveryKeys = []string{"content", "text", "generated_text"}

// recoverDelta scans a malformed payload — almost always the tail of a
// stream whose socket closed mid-object — for a known delta key followed
// by a quoted string value. The closing quote may be missing, in which
// case the value runs to the end of the buffer. Escaped characters in the
// recovered fragment are unescaped.
//
// Refusing to emit an unterminated tail would silently truncate content
// already promised to the consumer; emitting it is best-effort and may be
// imperfect for input cut mid-escape-sequence.
func recoverDelta(payload string) (string, bool) {
	for _, key := range recoveryKeys {
		marker := `"` + key + `"`
		idx := strings.Index(payload, marker)
		if idx < 0 {
			continue
		}

		rest := strings.TrimLeft(payload[idx+len(marker):], " \t")
		if !strings.HasPrefix(rest, ":") {
			continue
		}
		rest = strings.TrimLeft(rest[1:], " \t")
		if !strings.HasPrefix(rest, `"`) {
			continue
		}

		if fragment := unescapeUntilQuote(rest[1:]); fragment != "" {
			return fragment, true
		}
	}
	return "", false
}

// unescapeUntilQuote consumes s up to the first unescaped double quote, or
// to the end of s when none exists, resolving backslash escapes along the
// way.
func unescapeUntilQuote(s string) string {
	var sb strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			break
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}

		i++
		if i >= len(s) {
			// trailing lone backslash: the stream died mid-escape
			break
		}
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '"', '\\', '/':
			sb.WriteByte(s[i])
		case 'u':
			if i+5 <= len(s) {
				if code, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					sb.WriteRune(rune(code))
					i += 4
					continue
				}
			}
			// malformed or truncated \uXXXX: drop it
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
