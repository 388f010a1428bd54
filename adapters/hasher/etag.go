package hasher

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/xak1234/Huntley/domain"
)

// etagBytes is how much of the SHA-256 sum ends up in the tag.
const etagBytes = 16

// New returns a domain.Tagger producing strong ETags from a truncated
// SHA-256 of the body.
func New() domain.Tagger { return sha256Tagger{} }

type sha256Tagger struct{}

func (sha256Tagger) ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + base64.RawURLEncoding.EncodeToString(sum[:etagBytes]) + `"`
}

// Matches uses weak comparison, as If-None-Match requires: "W/" prefixes are
// ignored, a list matches if any member does, and "*" matches anything.
func (sha256Tagger) Matches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
