package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// dialPair upgrades a real websocket against an httptest server, attaches the
// server side to the hub, and returns both ends.
func dialPair(t *testing.T, hub *Hub) (*Connection, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	attached := make(chan *Connection, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(ws)
		hub.Attach(conn)
		attached <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-attached:
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("server connection never attached")
		return nil, nil
	}
}

func readFrame(t *testing.T, client *websocket.Conn) string {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestHubBroadcastReachesRoomMembersOnce(t *testing.T) {
	hub := NewHub(NewLocalPresence())
	defer hub.Close()

	connA, clientA := dialPair(t, hub)
	connB, clientB := dialPair(t, hub)
	_, clientC := dialPair(t, hub)

	room := ConversationRoom("c1")
	hub.JoinRoom(room, connA)
	hub.JoinRoom(room, connA) // idempotent
	hub.JoinRoom(room, connB)

	delivered := hub.Broadcast(room, []byte(`{"n":1}`))
	require.Equal(t, 2, delivered)

	require.Equal(t, `{"n":1}`, readFrame(t, clientA))
	require.Equal(t, `{"n":1}`, readFrame(t, clientB))

	// The non-member sees nothing.
	require.NoError(t, clientC.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := clientC.ReadMessage()
	require.Error(t, err)
}

func TestHubLeaveRoomStopsDelivery(t *testing.T) {
	hub := NewHub(NewLocalPresence())
	defer hub.Close()

	connA, clientA := dialPair(t, hub)
	room := ConversationRoom("c1")
	hub.JoinRoom(room, connA)
	hub.LeaveRoom(room, connA)

	require.Equal(t, 0, hub.Broadcast(room, []byte("x")))

	require.NoError(t, clientA.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := clientA.ReadMessage()
	require.Error(t, err)
}

func TestHubNotifyUser(t *testing.T) {
	hub := NewHub(NewLocalPresence())
	defer hub.Close()
	ctx := context.Background()

	connA, clientA := dialPair(t, hub)
	require.NoError(t, hub.JoinUser(ctx, connA, "u1"))

	require.True(t, hub.NotifyUser(ctx, "u1", []byte("hello")))
	require.Equal(t, "hello", readFrame(t, clientA))

	// Absent users drop silently.
	require.False(t, hub.NotifyUser(ctx, "nobody", []byte("hello")))
}

func TestHubDetachSweepsRoomsAndPresence(t *testing.T) {
	presence := NewLocalPresence()
	hub := NewHub(presence)
	defer hub.Close()
	ctx := context.Background()

	connA, _ := dialPair(t, hub)
	require.NoError(t, hub.JoinUser(ctx, connA, "u1"))
	hub.JoinRoom(ConversationRoom("c1"), connA)

	offline := hub.Detach(ctx, connA)
	require.Equal(t, []string{"u1"}, offline)

	_, ok, _ := presence.Lookup(ctx, "u1")
	require.False(t, ok)
	require.Equal(t, 0, hub.Broadcast(ConversationRoom("c1"), []byte("x")))
	require.False(t, hub.NotifyUser(ctx, "u1", []byte("x")))
}

func TestHubBroadcastAll(t *testing.T) {
	hub := NewHub(NewLocalPresence())
	defer hub.Close()

	_, clientA := dialPair(t, hub)
	_, clientB := dialPair(t, hub)

	require.Equal(t, 2, hub.BroadcastAll([]byte("status")))
	require.Equal(t, "status", readFrame(t, clientA))
	require.Equal(t, "status", readFrame(t, clientB))
}
