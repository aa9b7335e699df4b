package transcoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Intro to Go!", "Intro_to_Go_"},
		{"already_safe-123", "already_safe-123"},
		{"", ""},
		{"spaces  and\ttabs", "spaces__and_tabs"},
		{"héllo wörld", "h_llo_w_rld"},
		{"a/b\\c:d", "a_b_c_d"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Sanitize(tc.in), "input %q", tc.in)
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{"Intro to Go!", "видео", "a b c", "safe", "!!!", "mixed Säfe-01_x"}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "sanitize(sanitize(%q))", in)
	}
}

func TestSanitizeOutputCharset(t *testing.T) {
	out := Sanitize("Some: weird/title (2024) — new✔")
	for _, r := range out {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
		assert.True(t, ok, "unexpected rune %q in output %q", r, out)
	}
}
