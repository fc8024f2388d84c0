package sim

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodeBytes converts captured subprocess output to a string. The simulator
// occasionally emits bytes that are not valid UTF-8 (locale-dependent
// messages, binary noise on crashes); each offending byte is replaced by its
// hex escape and decoding continues, so log capture never aborts.
func DecodeBytes(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&sb, `\x%02x`, b[0])
		} else {
			sb.WriteRune(r)
		}
		b = b[size:]
	}
	return sb.String()
}
