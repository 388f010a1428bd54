package domain

// Tagger derives HTTP entity tags for a snapshot body and checks them
// against an If-None-Match header.
type Tagger interface {
	ETag(body []byte) string
	Matches(ifNoneMatch, etag string) bool
}
