package persona

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/viant/afs"

	"github.com/xak1234/Huntley/domain"
)

// Source downloads a persona document through afs and extracts its text
// according to the file extension.
type Source struct {
	fs       afs.Service
	location string
}

func NewSource(location string) *Source {
	location = strings.TrimSpace(location)
	if location != "" && !strings.Contains(location, "://") {
		if abs, err := filepath.Abs(location); err == nil {
			location = "file://" + filepath.ToSlash(abs)
		}
	}
	return &Source{fs: afs.New(), location: location}
}

func (s *Source) Extract(ctx context.Context) (string, error) {
	if s.location == "" {
		return "", fmt.Errorf("persona location must be provided")
	}
	data, err := s.fs.DownloadWithURL(ctx, s.location)
	if err != nil {
		return "", fmt.Errorf("download persona %s: %w", s.location, err)
	}

	var text string
	switch strings.ToLower(path.Ext(s.location)) {
	case ".docx":
		text, err = docxText(data)
	case ".pdf":
		text, err = pdfText(data)
	default:
		text = string(data)
	}
	if err != nil {
		return "", fmt.Errorf("extract persona %s: %w", s.location, err)
	}
	return strings.TrimSpace(text), nil
}

var _ domain.PersonaSource = (*Source)(nil)
