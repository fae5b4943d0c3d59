package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	qport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/infrastructure/realtime"
	httpHandler "marketchat/internal/pkg/messaging/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, pool *pgxpool.Pool, queue qport.Client, hub *realtime.Hub) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, pool, queue, hub)
}
