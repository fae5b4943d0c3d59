package realtime

import (
	"context"
	"sync"
)

// Room name helpers. Two logical room kinds exist: per-user rooms for direct
// notification delivery and per-conversation rooms for broadcasting to all
// current viewers of a thread.

func UserRoom(userID string) string { return "user:" + userID }

func ConversationRoom(conversationID string) string { return "conversation:" + conversationID }

// Hub coordinates websocket sessions and logical rooms. A session belongs to
// at most one user room plus any number of conversation rooms. Join and leave
// are idempotent.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection            // sessionID -> connection
	rooms        map[string]map[string]*Connection // room -> sessionID -> connection
	sessionRooms map[string]map[string]struct{}    // sessionID -> set of rooms

	presence Presence
}

// NewHub constructs a Hub routing user lookups through the given presence tracker.
func NewHub(presence Presence) *Hub {
	return &Hub{
		sessions:     make(map[string]*Connection),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
		presence:     presence,
	}
}

// Attach registers a connection and starts its write loop.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.sessions[conn.ID] = conn
	h.sessionRooms[conn.ID] = make(map[string]struct{})
	h.mu.Unlock()

	conn.Start()
}

// Detach removes a connection from all rooms and sweeps its presence entries.
// It returns the user ids that went offline as a result, so the caller can
// emit the same offline transition as an explicit leave.
func (h *Hub) Detach(ctx context.Context, conn *Connection) []string {
	h.mu.Lock()
	if _, ok := h.sessions[conn.ID]; ok {
		delete(h.sessions, conn.ID)
		for room := range h.sessionRooms[conn.ID] {
			h.leaveLocked(room, conn.ID)
		}
		delete(h.sessionRooms, conn.ID)
	}
	h.mu.Unlock()

	removed, err := h.presence.UnregisterSession(ctx, conn.ID)
	if err != nil {
		return nil
	}
	return removed
}

// JoinUser binds the connection to its user room and records the presence
// entry. Joining twice is a no-op.
func (h *Hub) JoinUser(ctx context.Context, conn *Connection, userID string) error {
	if err := h.presence.Register(ctx, userID, conn.ID); err != nil {
		return err
	}
	h.JoinRoom(UserRoom(userID), conn)
	return nil
}

// LeaveUser removes the presence entry and the user-room membership.
func (h *Hub) LeaveUser(ctx context.Context, conn *Connection, userID string) error {
	h.LeaveRoom(UserRoom(userID), conn)
	return h.presence.Unregister(ctx, userID)
}

// JoinRoom adds the connection to a room. Unknown sessions are ignored.
func (h *Hub) JoinRoom(room string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[conn.ID]; !ok {
		return
	}

	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Connection)
		h.rooms[room] = members
	}
	members[conn.ID] = conn

	memberships := h.sessionRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.sessionRooms[conn.ID] = memberships
	}
	memberships[room] = struct{}{}
}

// LeaveRoom removes the connection from a room.
func (h *Hub) LeaveRoom(room string, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(room, conn.ID)
	h.mu.Unlock()
}

// Broadcast writes payload to every member of the room and reports how many
// sends were accepted.
func (h *Hub) Broadcast(room string, payload []byte) int {
	h.mu.RLock()
	members := h.rooms[room]
	if len(members) == 0 {
		h.mu.RUnlock()
		return 0
	}
	conns := make([]*Connection, 0, len(members))
	for _, conn := range members {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// BroadcastAll writes payload to every attached connection. Used for presence
// change events visible to everyone.
func (h *Hub) BroadcastAll(payload []byte) int {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// NotifyUser delivers payload to the user's current connection. A missing or
// stale presence entry means the user is unreachable right now; the emit is
// dropped silently and false is returned.
func (h *Hub) NotifyUser(ctx context.Context, userID string, payload []byte) bool {
	sessionID, ok, err := h.presence.Lookup(ctx, userID)
	if err != nil || !ok {
		return false
	}

	h.mu.RLock()
	conn := h.sessions[sessionID]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		conns = append(conns, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.rooms = make(map[string]map[string]*Connection)
	h.sessionRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(1001, "hub shutdown")
	}
}

func (h *Hub) leaveLocked(room string, sessionID string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, room)
	}
}
