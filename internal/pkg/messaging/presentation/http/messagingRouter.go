package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	qport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/infrastructure/realtime"
	"marketchat/internal/pkg/messaging/presentation/controller"
	repoAdapter "marketchat/internal/pkg/messaging/persistence/repository/adapter"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// RegisterRoutes registers messaging endpoints under the given router group,
// backed by Postgres adapters built from the pool.
func RegisterRoutes(g *gin.RouterGroup, pool *pgxpool.Pool, queue qport.Client, hub *realtime.Hub) {
	repo := repoAdapter.NewPgMessagingRepository(pool)
	dir := repoAdapter.NewPgUserDirectory(pool)
	RegisterRoutesWith(g, repo, dir, queue, hub)
}

// RegisterRoutesWith wires the endpoints against explicit ports. Split out so
// tests can mount the same routes over the in-memory store.
func RegisterRoutesWith(g *gin.RouterGroup, repo repository.MessagingRepository, dir repository.UserDirectory, queue qport.Client, hub *realtime.Hub) {
	createCtl := controller.NewCreateConversationController(repo)
	listCtl := controller.NewListConversationsController(repo, dir)
	messagesCtl := controller.NewGetMessagesController(repo)
	sendCtl := controller.NewSendMessageController(repo)
	statusCtl := controller.NewUpdateMessageStatusController(repo)
	readCtl := controller.NewMarkConversationReadController(repo)
	flagsCtl := controller.NewSetConversationFlagsController(repo)
	notifCtl := controller.NewListNotificationsController(repo)
	socketCtl := controller.NewMessageSocketController(repo, dir, hub, queue)

	m := g.Group("/messages")

	// POST /api/v1/messages/conversation -> get-or-create a conversation
	m.POST("/conversation", createCtl.Handle())

	// GET /api/v1/messages/conversations/:userId -> a user's inbox
	m.GET("/conversations/:userId", listCtl.Handle())

	// GET /api/v1/messages/conversation/:conversationId -> message log
	m.GET("/conversation/:conversationId", messagesCtl.Handle())

	// POST /api/v1/messages -> send a message (socketless path)
	m.POST("", sendCtl.Handle())

	// PUT /api/v1/messages/status/:messageId -> delivery transition
	m.PUT("/status/:messageId", statusCtl.Handle())

	// PUT /api/v1/messages/read/:conversationId/:userId -> clear unread counter
	m.PUT("/read/:conversationId/:userId", readCtl.Handle())

	// PUT /api/v1/messages/flags/:conversationId/:userId -> pin/archive toggles
	m.PUT("/flags/:conversationId/:userId", flagsCtl.Handle())

	// GET /api/v1/messages/notifications/:userId -> offline notification inbox
	m.GET("/notifications/:userId", notifCtl.Handle())

	// GET /api/v1/messages/ws -> websocket endpoint for realtime traffic
	m.GET("/ws", socketCtl.Handle())
}
