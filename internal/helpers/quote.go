package helpers

import "unicode/utf8"

const hexChars = "0123456789ABCDEF"

// Returns a double-quoted JavaScript string literal. The result is also valid
// JSON. Line and paragraph separators are escaped since older engines treat
// them as line terminators inside string literals.
func QuoteForJS(text string) string {
	buffer := make([]byte, 0, len(text)+2)
	buffer = append(buffer, '"')

	for i := 0; i < len(text); {
		c, width := utf8.DecodeRuneInString(text[i:])
		i += width

		switch c {
		case '"':
			buffer = append(buffer, '\\', '"')
		case '\\':
			buffer = append(buffer, '\\', '\\')
		case '\n':
			buffer = append(buffer, '\\', 'n')
		case '\r':
			buffer = append(buffer, '\\', 'r')
		case '\t':
			buffer = append(buffer, '\\', 't')
		case '\b':
			buffer = append(buffer, '\\', 'b')
		case '\f':
			buffer = append(buffer, '\\', 'f')

		case '\u2028', '\u2029', '\uFEFF':
			buffer = append(buffer, '\\', 'u',
				hexChars[c>>12], hexChars[(c>>8)&15], hexChars[(c>>4)&15], hexChars[c&15])

		default:
			if c < 0x20 {
				buffer = append(buffer, '\\', 'u', '0', '0', hexChars[c>>4], hexChars[c&15])
			} else {
				// Invalid UTF-8 comes out as the replacement character
				buffer = utf8.AppendRune(buffer, c)
			}
		}
	}

	return string(append(buffer, '"'))
}
