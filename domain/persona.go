package domain

import "context"

// PersonaSource extracts the assistant background text from a document.
type PersonaSource interface {
	Extract(ctx context.Context) (string, error)
}
