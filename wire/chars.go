package wire

// InvalidRune scans a string value against the codepoint ranges that survive
// XML transport and returns the first offending rune. Control characters
// outside whitespace are invalid XML and must be rejected client-side.
// Supplemental-plane codepoints (emoji and friends) are only allowed when the
// server is known to handle them; older servers corrupt those sequences
// silently.
func InvalidRune(value string, fullUnicode bool) (rune, bool) {
	for _, r := range value {
		switch {
		case r == 0x9 || r == 0xA || r == 0xD:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
			if !fullUnicode {
				return r, true
			}
		default:
			return r, true
		}
	}
	return 0, false
}
