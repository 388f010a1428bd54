package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xak1234/Huntley/domain"
	"github.com/xak1234/Huntley/utils/log"
)

// Store persists the transcript as a single JSON document
// {"messages":[{"sender":...,"content":...}]} in a SnapshotStorage.
type Store struct {
	storage domain.SnapshotStorage
	// unreadable is set when the last Load hit a read error other than a
	// missing snapshot. Save refuses to overwrite until a Load succeeds.
	unreadable atomic.Bool
}

func NewStore(storage domain.SnapshotStorage) *Store {
	return &Store{storage: storage}
}

// Load never fails: a missing, unreadable or malformed snapshot yields an
// empty transcript. After a read error the next Save is refused so a
// transient backend outage cannot truncate the stored history.
func (s *Store) Load(ctx context.Context) (domain.Transcript, error) {
	data, err := s.storage.Read(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			s.unreadable.Store(false)
		} else {
			s.unreadable.Store(true)
			log.WithCtx(ctx).Warn("Failed to read transcript, starting empty", zap.Error(err))
		}
		return empty(), nil
	}
	s.unreadable.Store(false)

	var t domain.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		log.WithCtx(ctx).Warn("Transcript snapshot is invalid, starting empty", zap.Error(err))
		return empty(), nil
	}
	if t.Messages == nil {
		t.Messages = []domain.Turn{}
	}
	return t, nil
}

// Save overwrites the snapshot with the complete transcript.
func (s *Store) Save(ctx context.Context, t domain.Transcript) error {
	if s.unreadable.Load() {
		return &domain.StorageError{Op: "save", Err: domain.ErrSnapshotUnreadable}
	}
	if t.Messages == nil {
		t.Messages = []domain.Turn{}
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: "encode", Err: err}
	}
	if err := s.storage.Write(ctx, data); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	return nil
}

func empty() domain.Transcript {
	return domain.Transcript{Messages: []domain.Turn{}}
}

var _ domain.TranscriptStore = (*Store)(nil)
