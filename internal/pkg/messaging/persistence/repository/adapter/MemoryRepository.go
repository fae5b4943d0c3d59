package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	messaging "marketchat/internal/pkg/messaging/application/domain"
)

// MemoryRepository is an in-process store implementing both the messaging
// repository and the user directory. It backs the test suite and local
// development without a database.
type MemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]*messaging.Conversation
	byKey         map[string]string // participant key -> conversation id
	messages      []*messaging.Message
	messagesByID  map[string]*messaging.Message
	notifications []messaging.Notification
	users         map[string]*messaging.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		conversations: make(map[string]*messaging.Conversation),
		byKey:         make(map[string]string),
		messagesByID:  make(map[string]*messaging.Message),
		users:         make(map[string]*messaging.User),
	}
}

func (r *MemoryRepository) CreateConversation(_ context.Context, c messaging.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.UnreadCounts == nil {
		c.UnreadCounts = make(map[string]int)
	}
	if c.Pinned == nil {
		c.Pinned = make(map[string]bool)
	}
	if c.Archived == nil {
		c.Archived = make(map[string]bool)
	}
	for _, uid := range c.Participants {
		if _, ok := c.UnreadCounts[uid]; !ok {
			c.UnreadCounts[uid] = 0
		}
	}
	stored := cloneConversation(&c)
	r.conversations[c.ID] = stored
	r.byKey[messaging.ParticipantKey(c.Participants...)] = c.ID
	return nil
}

func (r *MemoryRepository) GetConversation(_ context.Context, id string) (*messaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, messaging.ErrConversationNotFound
	}
	return cloneConversation(c), nil
}

func (r *MemoryRepository) FindConversationByKey(_ context.Context, key string) (*messaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[key]
	if !ok {
		return nil, messaging.ErrConversationNotFound
	}
	return cloneConversation(r.conversations[id]), nil
}

func (r *MemoryRepository) ListConversationsByUser(_ context.Context, userID string) ([]messaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []messaging.Conversation
	for _, c := range r.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lastActivity(&out[i]).After(lastActivity(&out[j]))
	})
	return out, nil
}

func lastActivity(c *messaging.Conversation) time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.Timestamp
	}
	return c.CreatedAt
}

func (r *MemoryRepository) UpdateLastMessage(_ context.Context, conversationID string, lm messaging.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return messaging.ErrConversationNotFound
	}
	snapshot := lm
	c.LastMessage = &snapshot
	return nil
}

func (r *MemoryRepository) IncrementUnread(_ context.Context, conversationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return messaging.ErrConversationNotFound
	}
	c.UnreadCounts[userID]++
	return nil
}

func (r *MemoryRepository) ResetUnread(_ context.Context, conversationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return messaging.ErrConversationNotFound
	}
	c.UnreadCounts[userID] = 0
	return nil
}

func (r *MemoryRepository) SetFlags(_ context.Context, conversationID, userID string, pinned, archived *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return messaging.ErrConversationNotFound
	}
	if pinned != nil {
		c.Pinned[userID] = *pinned
	}
	if archived != nil {
		c.Archived[userID] = *archived
	}
	return nil
}

func (r *MemoryRepository) SaveMessage(_ context.Context, m messaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := m
	r.messages = append(r.messages, &stored)
	r.messagesByID[m.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetMessage(_ context.Context, id string) (*messaging.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messagesByID[id]
	if !ok {
		return nil, messaging.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) FindMessageByDedupeKey(_ context.Context, conversationID, key string) (*messaging.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.DedupeKey != nil && *m.DedupeKey == key {
			cp := *m
			return &cp, nil
		}
	}
	return nil, messaging.ErrMessageNotFound
}

func (r *MemoryRepository) ListMessagesByConversation(_ context.Context, conversationID string) ([]messaging.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []messaging.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	// Insertion order is already chronological for equal timestamps; a stable
	// sort keeps it that way.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateMessageStatus(_ context.Context, id string, status messaging.MessageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messagesByID[id]
	if !ok {
		return messaging.ErrMessageNotFound
	}
	m.Status = status
	return nil
}

func (r *MemoryRepository) SaveNotification(_ context.Context, n messaging.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *MemoryRepository) ListNotificationsByUser(_ context.Context, userID string) ([]messaging.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []messaging.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

// PutUser seeds a directory entry. Used by tests and local bootstrap.
func (r *MemoryRepository) PutUser(u messaging.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := u
	r.users[u.ID] = &cp
}

func (r *MemoryRepository) GetUser(_ context.Context, id string) (*messaging.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, messaging.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetUsers(_ context.Context, ids []string) ([]messaging.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []messaging.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, id string, status messaging.PresenceStatus, lastActive time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return messaging.ErrUserNotFound
	}
	u.Status = status
	u.LastActive = lastActive
	return nil
}

func cloneConversation(c *messaging.Conversation) *messaging.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		cp.UnreadCounts[k] = v
	}
	cp.Pinned = make(map[string]bool, len(c.Pinned))
	for k, v := range c.Pinned {
		cp.Pinned[k] = v
	}
	cp.Archived = make(map[string]bool, len(c.Archived))
	for k, v := range c.Archived {
		cp.Archived[k] = v
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	return &cp
}
