package transcoder

// Sanitize maps a video title to its storage identifier: every rune outside
// [A-Za-z0-9_-] becomes '_'. The result is the join key between storage
// paths and playback-URL reconstruction, so it must be computed identically
// wherever it is referenced. Total and idempotent.
func Sanitize(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
