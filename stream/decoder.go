package stream

import "unicode/utf8"

// textDecoder converts raw bytes into text incrementally. Bytes that end a
// read in the middle of a multi-byte UTF-8 sequence are held back and
// prepended to the next read, so a character split across two reads
// decodes to the correct rune instead of replacement garbage.
type textDecoder struct {
	partial []byte
}

// decode returns the longest decodable prefix of the held-back bytes plus
// p, retaining any trailing incomplete rune for the next call.
func (d *textDecoder) decode(p []byte) string {
	b := p
	if len(d.partial) > 0 {
		b = append(d.partial, p...)
		d.partial = nil
	}

	cut := len(b)
	for i := len(b) - 1; i >= 0 && len(b)-i < utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				cut = i
			}
			break
		}
	}

	if cut < len(b) {
		d.partial = append([]byte(nil), b[cut:]...)
	}
	return string(b[:cut])
}

// flush force-decodes whatever is still buffered. Called once at
// end-of-input; an incomplete trailing rune decodes to the replacement
// character, which is the best that can be done for a stream cut
// mid-character.
func (d *textDecoder) flush() string {
	if len(d.partial) == 0 {
		return ""
	}
	s := string(d.partial)
	d.partial = nil
	return s
}
