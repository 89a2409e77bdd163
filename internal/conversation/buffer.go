package conversation

import (
	"context"
	"sync"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// DefaultBufferSize is the number of messages remembered per channel.
const DefaultBufferSize = 50

// Buffer is an in-process MessageSource fed by the ingestion API. It keeps
// the most recent messages of every channel it has seen.
type Buffer struct {
	mu       sync.RWMutex
	size     int
	channels map[string][]HistoryMessage // oldest first
}

// NewBuffer creates a buffer keeping size messages per channel.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{size: size, channels: make(map[string][]HistoryMessage)}
}

// Add records msg as the newest message of its channel.
func (b *Buffer) Add(msg types.Message) {
	author := msg.AuthorTag
	if author == "" {
		author = msg.Author.UserID
	}
	h := HistoryMessage{ID: msg.ID, Author: author, Content: msg.Content, Timestamp: msg.Timestamp}

	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := append(b.channels[msg.ChannelID], h)
	if over := len(msgs) - b.size; over > 0 {
		msgs = append([]HistoryMessage(nil), msgs[over:]...)
	}
	b.channels[msg.ChannelID] = msgs
}

// FetchHistory returns up to limit messages before beforeID, newest first.
// An empty or unknown beforeID means "before now".
func (b *Buffer) FetchHistory(_ context.Context, channelID string, limit int, beforeID string) ([]HistoryMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msgs := b.channels[channelID]
	end := len(msgs)
	if beforeID != "" {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].ID == beforeID {
				end = i
				break
			}
		}
	}

	out := make([]HistoryMessage, 0, limit)
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

var _ MessageSource = (*Buffer)(nil)
