// Package parser cleans raw terminal output before it enters the chat
// stream. It deliberately does not interpret escape sequences: every
// sequence is removed wholesale, which is all the chat surface needs.
package parser

// Strip removes ANSI escape sequences from s. A sequence starts at ESC
// (0x1b) and extends up to and including the first subsequent ASCII letter;
// an unterminated sequence consumes the rest of the input. Text containing
// no escapes is returned unchanged, which also makes Strip idempotent.
func Strip(s string) string {
	result := make([]rune, 0, len(s))
	inEscape := false

	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == 0x1b:
			inEscape = true
		default:
			result = append(result, r)
		}
	}
	return string(result)
}
