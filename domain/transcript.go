package domain

import (
	"context"
	"time"
)

// Sender labels who produced a turn.
type Sender string

const (
	HumanSender     Sender = "You"
	AssistantSender Sender = "Bot"
)

// Turn is a single entry of the conversation.
type Turn struct {
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

// Transcript is the full ordered conversation, oldest first.
type Transcript struct {
	Messages []Turn `json:"messages"`
}

// Append returns a copy of the transcript with turns added at the end.
// The receiver's backing array is never shared with the result.
func (t Transcript) Append(turns ...Turn) Transcript {
	messages := make([]Turn, 0, len(t.Messages)+len(turns))
	messages = append(messages, t.Messages...)
	messages = append(messages, turns...)
	return Transcript{Messages: messages}
}

// Len returns the number of turns.
func (t Transcript) Len() int { return len(t.Messages) }

// TranscriptStore owns the durable copy of the conversation.
type TranscriptStore interface {
	// Load returns the stored transcript, or an empty one when nothing
	// readable has been saved yet.
	Load(ctx context.Context) (Transcript, error)
	// Save overwrites the stored transcript with t.
	Save(ctx context.Context, t Transcript) error
}

// SnapshotStorage is a single opaque blob slot that can be read and
// overwritten wholesale.
type SnapshotStorage interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// TurnEvent is published every time a turn is persisted.
type TurnEvent struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
