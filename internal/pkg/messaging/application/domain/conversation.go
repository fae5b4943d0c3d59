package messaging

import (
	"sort"
	"strings"
	"time"
)

// LastMessage is the denormalized preview stored on a conversation. It is
// overwritten on every send (last-write-wins) and is advisory only: callers
// needing strict ordering must read the message log instead.
type LastMessage struct {
	Content   string      `json:"content"`
	Sender    string      `json:"sender"`
	MsgType   MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// Conversation is a persisted thread between a fixed set of participants,
// uniquely identified by that set. Conversations are created lazily on first
// contact and never deleted.
type Conversation struct {
	ID           string       `db:"id" json:"id"`
	Participants []string     `db:"participants" json:"participants"`
	Project      string       `db:"project" json:"project,omitempty"`
	LastMessage  *LastMessage `json:"lastMessage,omitempty"`
	// Per-participant state, keyed by user id.
	UnreadCounts map[string]int  `json:"unreadCounts"`
	Pinned       map[string]bool `json:"pinned"`
	Archived     map[string]bool `json:"archived"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// ParticipantKey derives the canonical identity of a conversation from its
// participant set: ids sorted and joined, so {A,B} and {B,A} map to the same
// key.
func ParticipantKey(ids ...string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return strings.Join(sorted, ":")
}

// HasParticipant tells whether userID is part of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	if c == nil {
		return false
	}
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the first participant that is not userID. Today
// conversations always hold exactly two members, but the model does not
// assume that.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, id := range c.Participants {
		if id != userID {
			return id
		}
	}
	return ""
}
