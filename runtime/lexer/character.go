package lexer

// ASCII lookup tables for classifying the first bytes of a line.
//
//	if ch < 128 && isWordStart[ch] { ... }
//
// Bytes >= 128 never start a command.
var (
	isLineSpace  [128]bool // space, tab, carriage return, form feed, newline
	isWordStart  [128]bool // a-z, A-Z, 0-9, _
	isLowerStart [128]bool // a-z
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)

		isLineSpace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\n' || ch == '\v'

		isLowerStart[i] = 'a' <= ch && ch <= 'z'

		isWordStart[i] = isLowerStart[i] || ('A' <= ch && ch <= 'Z') || ('0' <= ch && ch <= '9') || ch == '_'
	}
}

// startsWithWord reports whether line begins with [A-Za-z0-9_].
func startsWithWord(line string) bool {
	return line != "" && line[0] < 128 && isWordStart[line[0]]
}

// startsWithLower reports whether line begins with [a-z].
func startsWithLower(line string) bool {
	return line != "" && line[0] < 128 && isLowerStart[line[0]]
}

// isBlank reports whether line holds only whitespace.
func isBlank(line string) bool {
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch >= 128 || !isLineSpace[ch] {
			return false
		}
	}
	return true
}

// trimLeadingSpace drops leading ASCII whitespace.
func trimLeadingSpace(line string) string {
	i := 0
	for i < len(line) && line[i] < 128 && isLineSpace[line[i]] {
		i++
	}
	return line[i:]
}
