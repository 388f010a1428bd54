package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/xak1234/Huntley/domain"
)

// AFSStorage keeps the snapshot at an afs URL: a plain path, file://,
// mem://, or any scheme registered by an imported afsc provider.
type AFSStorage struct {
	fs  afs.Service
	URL string
}

func NewAFSStorage(location string) (*AFSStorage, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("storage location must be provided")
	}
	return &AFSStorage{fs: afs.New(), URL: normalizeURL(location)}, nil
}

func (s *AFSStorage) Read(ctx context.Context) ([]byte, error) {
	exists, err := s.fs.Exists(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", s.URL, err)
	}
	if !exists {
		return nil, domain.ErrSnapshotNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", s.URL, err)
	}
	return data, nil
}

func (s *AFSStorage) Write(ctx context.Context, data []byte) error {
	parent, _ := url.Split(s.URL, file.Scheme)
	if strings.TrimSpace(parent) != "" {
		exists, err := s.fs.Exists(ctx, parent)
		if err != nil {
			return fmt.Errorf("check %s: %w", parent, err)
		}
		if !exists {
			if err := s.fs.Create(ctx, parent, file.DefaultDirOsMode, true); err != nil {
				return fmt.Errorf("create %s: %w", parent, err)
			}
		}
	}
	if err := s.fs.Upload(ctx, s.URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload %s: %w", s.URL, err)
	}
	return nil
}

func (s *AFSStorage) Close() error { return nil }

// normalizeURL turns plain paths into absolute file:// URLs.
func normalizeURL(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	if abs, err := filepath.Abs(location); err == nil {
		location = abs
	}
	return "file://" + filepath.ToSlash(location)
}

var _ domain.SnapshotStorage = (*AFSStorage)(nil)
