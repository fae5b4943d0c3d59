// Package client provides a websocket client for the messaging gateway with
// optimistic local state: sends appear immediately with a "sending" status and
// are reconciled against the server acknowledgement or the room broadcast,
// whichever arrives first.
package client

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	messaging "marketchat/internal/pkg/messaging/application/domain"
)

// StatusSending is the client-only placeholder status shown before the server
// confirms a send. It never appears on the wire.
const StatusSending messaging.MessageStatus = "sending"

// DefaultGracePeriod bounds how long a send may stay in "sending". After it
// elapses the message is shown as "sent" even without confirmation: on a flaky
// network we prefer claiming "sent" over a permanently ambiguous state.
const DefaultGracePeriod = 10 * time.Second

// Handlers receives server-pushed events. Nil fields are ignored. Handlers
// run on the read loop goroutine and must not block.
type Handlers struct {
	OnMessage      func(messaging.Message)
	OnNotification func(messaging.Message)
	OnUserStatus   func(userID string, status messaging.PresenceStatus)
	OnStatusUpdate func(messageID string, status messaging.MessageStatus)
	OnError        func(code, message string)
}

type outboundFrame struct {
	Type           string                `json:"type"`
	AckID          string                `json:"ackId,omitempty"`
	UserID         string                `json:"userId,omitempty"`
	ConversationID string                `json:"conversationId,omitempty"`
	Sender         string                `json:"sender,omitempty"`
	Recipient      string                `json:"recipient,omitempty"`
	Content        string                `json:"content,omitempty"`
	MsgType        string                `json:"msgType,omitempty"`
	Attachment     *messaging.Attachment `json:"attachment,omitempty"`
	DedupeKey      *string               `json:"dedupeKey,omitempty"`
	MessageID      string                `json:"messageId,omitempty"`
	Status         string                `json:"status,omitempty"`
}

type inboundFrame struct {
	Type      string             `json:"type"`
	AckID     string             `json:"ackId,omitempty"`
	Status    string             `json:"status,omitempty"`
	Code      string             `json:"code,omitempty"`
	Error     string             `json:"error,omitempty"`
	Message   *messaging.Message `json:"message,omitempty"`
	UserID    string             `json:"userId,omitempty"`
	MessageID string             `json:"messageId,omitempty"`
}

type pendingSend struct {
	ackID string
	frame outboundFrame
	timer *time.Timer
}

// Client is a connected gateway session. All exported methods are safe for
// concurrent use.
type Client struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	handlers Handlers
	grace    time.Duration

	pending  map[string]*pendingSend            // ackId -> in-flight optimistic send
	timeline map[string][]messaging.Message     // conversationID -> local view
	index    map[string]int                     // message id (or ackId while pending) -> slot
	closed   chan struct{}
}

// Dial connects to the gateway websocket endpoint.
func Dial(url string, handlers Handlers) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:     conn,
		handlers: handlers,
		grace:    DefaultGracePeriod,
		pending:  make(map[string]*pendingSend),
		timeline: make(map[string][]messaging.Message),
		index:    make(map[string]int),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SetGracePeriod overrides the optimistic-send timeout. Must be called before
// the first Send.
func (c *Client) SetGracePeriod(d time.Duration) {
	c.mu.Lock()
	c.grace = d
	c.mu.Unlock()
}

// Close tears down the connection. Pending sends are abandoned.
func (c *Client) Close() error {
	c.mu.Lock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	for _, p := range c.pending {
		p.timer.Stop()
	}
	c.mu.Unlock()
	return c.conn.Close()
}

// JoinUser registers this connection under the user's room and marks the user
// online.
func (c *Client) JoinUser(userID string) error {
	return c.write(outboundFrame{Type: "join", UserID: userID})
}

// JoinConversation subscribes to a conversation room.
func (c *Client) JoinConversation(conversationID string) error {
	return c.write(outboundFrame{Type: "join", ConversationID: conversationID})
}

// Leave mirrors join; either id may be empty.
func (c *Client) Leave(userID, conversationID string) error {
	return c.write(outboundFrame{Type: "leave", UserID: userID, ConversationID: conversationID})
}

// MarkStatus requests a delivery transition for a message.
func (c *Client) MarkStatus(messageID string, status messaging.MessageStatus) error {
	return c.write(outboundFrame{Type: "messageStatus", MessageID: messageID, Status: string(status)})
}

// Send issues an optimistic send and returns the ack id identifying the
// attempt. A placeholder message with status "sending" is visible in
// Messages immediately; it is reconciled when the ack or the broadcast
// arrives, upgraded to "sent" after the grace period either way, and removed
// if the server reports an error for this attempt.
//
// The ack id doubles as the dedupe key, so Retry after a timeout cannot
// produce a duplicate on the server.
func (c *Client) Send(conversationID, sender, recipient, content string, msgType messaging.MessageType, attachment *messaging.Attachment) (string, error) {
	ackID := uuid.NewString()
	dedupe := ackID
	frame := outboundFrame{
		Type:           "sendMessage",
		AckID:          ackID,
		ConversationID: conversationID,
		Sender:         sender,
		Recipient:      recipient,
		Content:        content,
		MsgType:        string(msgType),
		Attachment:     attachment,
		DedupeKey:      &dedupe,
	}

	placeholder := messaging.Message{
		ID:             ackID,
		ConversationID: conversationID,
		Sender:         sender,
		Recipient:      recipient,
		Content:        content,
		MsgType:        msgType,
		Attachment:     attachment,
		Status:         StatusSending,
		CreatedAt:      time.Now().UTC(),
	}

	c.mu.Lock()
	c.appendLocked(placeholder, ackID)
	p := &pendingSend{ackID: ackID, frame: frame}
	p.timer = time.AfterFunc(c.grace, func() { c.graceExpired(ackID) })
	c.pending[ackID] = p
	c.mu.Unlock()

	if err := c.write(frame); err != nil {
		c.rollback(ackID)
		return "", err
	}
	return ackID, nil
}

// Retry re-issues a pending send as a new network attempt. The dedupe key is
// unchanged, so the server returns the original message if the first attempt
// actually landed.
func (c *Client) Retry(ackID string) error {
	c.mu.Lock()
	p, ok := c.pending[ackID]
	if !ok {
		c.mu.Unlock()
		return errors.New("client: no pending send for ack id")
	}
	frame := p.frame
	c.mu.Unlock()
	return c.write(frame)
}

// Messages returns the local view of a conversation sorted by timestamp.
// Ordering is best-effort: the caller tolerates eventual consistency.
func (c *Client) Messages(conversationID string) []messaging.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]messaging.Message(nil), c.timeline[conversationID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (c *Client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return errors.New("client: closed")
	default:
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame inboundFrame) {
	switch frame.Type {
	case "ack":
		if frame.Status == "ok" && frame.Message != nil {
			c.reconcile(frame.AckID, *frame.Message)
			return
		}
		// A reported failure rolls the optimistic message back; the UI shows
		// a generic failure, never the raw internals.
		c.rollback(frame.AckID)
		if c.handlers.OnError != nil {
			c.handlers.OnError("send_failed", frame.Error)
		}
	case "newMessage":
		if frame.Message == nil {
			return
		}
		c.ingest(*frame.Message)
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(*frame.Message)
		}
	case "notification":
		if frame.Message != nil && c.handlers.OnNotification != nil {
			c.handlers.OnNotification(*frame.Message)
		}
	case "userStatus":
		if c.handlers.OnUserStatus != nil {
			c.handlers.OnUserStatus(frame.UserID, messaging.PresenceStatus(frame.Status))
		}
	case "messageStatusUpdate":
		c.applyStatus(frame.MessageID, messaging.MessageStatus(frame.Status))
		if c.handlers.OnStatusUpdate != nil {
			c.handlers.OnStatusUpdate(frame.MessageID, messaging.MessageStatus(frame.Status))
		}
	case "error":
		if c.handlers.OnError != nil {
			c.handlers.OnError(frame.Code, frame.Error)
		}
	}
}

// ingest folds a broadcast message into the local timeline, reconciling it
// against a pending optimistic send when the dedupe key matches an ack id.
func (c *Client) ingest(msg messaging.Message) {
	if msg.DedupeKey != nil {
		c.mu.Lock()
		_, isPending := c.pending[*msg.DedupeKey]
		c.mu.Unlock()
		if isPending {
			c.reconcile(*msg.DedupeKey, msg)
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.index[msg.ID]; seen {
		return
	}
	c.appendLocked(msg, msg.ID)
}

// reconcile replaces the optimistic placeholder with the persisted message.
func (c *Client) reconcile(ackID string, msg messaging.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[ackID]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(c.pending, ackID)

	slot, ok := c.index[ackID]
	if !ok {
		c.appendLocked(msg, msg.ID)
		return
	}
	delete(c.index, ackID)
	c.timeline[msg.ConversationID][slot] = msg
	c.index[msg.ID] = slot
}

// rollback drops the placeholder for a failed attempt.
func (c *Client) rollback(ackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[ackID]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(c.pending, ackID)

	slot, ok := c.index[ackID]
	if !ok {
		return
	}
	delete(c.index, ackID)
	convID := p.frame.ConversationID
	line := c.timeline[convID]
	c.timeline[convID] = append(line[:slot], line[slot+1:]...)
	c.reindexLocked(convID)
}

// graceExpired upgrades a still-unconfirmed send to "sent". The pending entry
// stays so a late ack or broadcast can still swap in the real message.
func (c *Client) graceExpired(ackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[ackID]; !ok {
		return
	}
	if slot, ok := c.index[ackID]; ok {
		p := c.pending[ackID]
		c.timeline[p.frame.ConversationID][slot].Status = messaging.MessageStatusSent
	}
}

func (c *Client) applyStatus(messageID string, status messaging.MessageStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for convID, line := range c.timeline {
		for i := range line {
			if line[i].ID == messageID {
				// Monotonic on the client too: a stale update never moves a
				// message backward.
				if messaging.CanTransition(line[i].Status, status) {
					c.timeline[convID][i].Status = status
				}
				return
			}
		}
	}
}

func (c *Client) appendLocked(msg messaging.Message, key string) {
	line := c.timeline[msg.ConversationID]
	c.index[key] = len(line)
	c.timeline[msg.ConversationID] = append(line, msg)
}

func (c *Client) reindexLocked(conversationID string) {
	for i, m := range c.timeline[conversationID] {
		c.index[m.ID] = i
	}
}
