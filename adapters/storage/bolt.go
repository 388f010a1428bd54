package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/xak1234/Huntley/domain"
)

var (
	transcriptBucket = []byte("transcript")
	snapshotKey      = []byte("snapshot")
)

// BoltStorage keeps the snapshot under a fixed key of a bbolt database.
// The database stays open until Close.
type BoltStorage struct {
	db *bolt.DB
}

func NewBoltStorage(path string) (*BoltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Read(_ context.Context) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(transcriptBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(snapshotKey); v != nil {
			// v is only valid inside the transaction.
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return out, nil
}

func (s *BoltStorage) Write(_ context.Context, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(transcriptBucket)
		if err != nil {
			return err
		}
		return b.Put(snapshotKey, data)
	})
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}

var _ domain.SnapshotStorage = (*BoltStorage)(nil)
