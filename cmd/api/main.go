package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	v1 "marketchat/cmd/api/router/v1"
	cacheAdapter "marketchat/internal/infrastructure/cache/adapter"
	"marketchat/internal/infrastructure/database"
	queueAdapter "marketchat/internal/infrastructure/queue/adapter"
	qport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/infrastructure/realtime"
	"marketchat/internal/pkg/messaging/application/task"
	repoAdapter "marketchat/internal/pkg/messaging/persistence/repository/adapter"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database on startup
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := database.NewPoolFromEnv(connectCtx)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Presence is process-local by default; PRESENCE_BACKEND=redis switches to
	// the shared cache so multiple instances see each other's registrations.
	var presence realtime.Presence = realtime.NewLocalPresence()
	if os.Getenv("PRESENCE_BACKEND") == "redis" {
		cache, err := cacheAdapter.NewRedisAdapter()
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()
		presence = realtime.NewCachePresence(cache, 0)
	}

	hub := realtime.NewHub(presence)
	defer hub.Close()

	// The offline-notification pipeline needs Redis; without it the gateway
	// simply skips enqueueing and recipients rely on the HTTP path.
	var queueClient qport.Client
	if os.Getenv("REDIS_URL") != "" {
		client, err := queueAdapter.NewAsynqClientFromEnv()
		if err != nil {
			log.Fatalf("failed to create queue client: %v", err)
		}
		defer client.Close()
		queueClient = client

		server, err := queueAdapter.NewAsynqServer()
		if err != nil {
			log.Fatalf("failed to create queue server: %v", err)
		}
		task.RegisterOfflineNotificationTask(server, repoAdapter.NewPgMessagingRepository(pool))
		go func() {
			if err := server.Run(ctx); err != nil {
				log.Printf("queue server stopped: %v", err)
			}
		}()
	}

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1.RegisterRoutes(r, pool, queueClient, hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()
	log.Printf("listening on :%s", port)

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
