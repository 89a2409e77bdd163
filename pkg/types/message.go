package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidIdentity is returned when a message arrives without an author.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidMessage is returned when a message has no channel or content.
	ErrInvalidMessage = errors.New("invalid message")
)

// DirectCommunity is the partition used for messages outside any community.
const DirectCommunity = "dm"

// Identity identifies a message author and, optionally, the community the
// message was posted in.
type Identity struct {
	UserID      string `json:"user_id"`
	CommunityID string `json:"community_id,omitempty"`
}

// Key returns the rate-limit partition key for the identity. Malformed
// identities still produce a usable key.
func (i Identity) Key() string {
	return strings.TrimSpace(i.UserID)
}

// Community returns the community partition, falling back to DirectCommunity.
func (i Identity) Community() string {
	if c := strings.TrimSpace(i.CommunityID); c != "" {
		return c
	}
	return DirectCommunity
}

// Hash returns an anonymized, stable identifier for the user.
func (i Identity) Hash(salt string) string {
	sum := sha256.Sum256([]byte(salt + ":" + i.Key()))
	return hex.EncodeToString(sum[:8])
}

// Validate rejects identities that cannot enter the pipeline.
func (i Identity) Validate() error {
	if i.Key() == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidIdentity)
	}
	return nil
}

// Message is a single chat message delivered to the detector.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Author    Identity  `json:"author"`
	AuthorTag string    `json:"author_tag,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the caller contract for a message entering the pipeline.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	if err := m.Author.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(m.ChannelID) == "" {
		return fmt.Errorf("%w: channel id is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidMessage)
	}
	return nil
}

// ContextMessage is one entry of a ContextWindow.
type ContextMessage struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextWindow is an ordered (oldest first) set of prior channel messages.
type ContextWindow []ContextMessage

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
