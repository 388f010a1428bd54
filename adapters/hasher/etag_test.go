package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestETag(t *testing.T) {
	tagger := New()
	body := []byte(`{"messages":[]}`)

	tag := tagger.ETag(body)
	assert.Regexp(t, `^"[A-Za-z0-9_-]{22}"$`, tag)
	assert.Equal(t, tag, tagger.ETag([]byte(`{"messages":[]}`)))
	assert.NotEqual(t, tag, tagger.ETag([]byte(`{"messages":[{"sender":"You","content":"hi"}]}`)))
}

func TestMatches(t *testing.T) {
	tagger := New()
	tag := tagger.ETag([]byte("history"))
	other := tagger.ETag([]byte("other"))

	testCases := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "empty", header: "", want: false},
		{name: "exact", header: tag, want: true},
		{name: "weak", header: "W/" + tag, want: true},
		{name: "list", header: other + ", " + tag, want: true},
		{name: "wildcard", header: "*", want: true},
		{name: "stale", header: other, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tagger.Matches(tc.header, tag))
		})
	}
}
