package transport

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcusai/marcus/internal/domain/event"
	porteventbus "github.com/marcusai/marcus/internal/port/eventbus"
	"github.com/marcusai/marcus/internal/service/coordinator"

	markhttp "github.com/marcusai/marcus/internal/transport/http"
	mcptransport "github.com/marcusai/marcus/internal/transport/mcp"
	wshandler "github.com/marcusai/marcus/internal/transport/ws"
)

// broadcastedEvents are the event types forwarded to WebSocket subscribers.
var broadcastedEvents = []event.Type{
	event.TypeTaskCreated,
	event.TypeTaskAssigned,
	event.TypeTaskProgress,
	event.TypeTaskCompleted,
	event.TypeTaskBlocked,
	event.TypeBlockerReported,
	event.TypeAgentRegistered,
	event.TypeDecisionLogged,
	event.TypeArtifactLogged,
	event.TypeLeaseWarning,
	event.TypeLeaseExpired,
	event.TypeTaskStuck,
}

func NewRouter(
	ctx context.Context,
	coord *coordinator.Coordinator,
	mcpServer *mcptransport.Server,
	eventBus porteventbus.EventBus,
	pingDB func(ctx context.Context) error,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())
	r.Use(IdempotencyMiddleware())

	api := r.Group("/api")
	markhttp.Register(api, coord, pingDB)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Any("/mcp", gin.WrapH(mcpServer.Handler()))
	r.Any("/mcp/*any", gin.WrapH(mcpServer.Handler()))

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	for _, topic := range broadcastedEvents {
		t := topic
		if _, err := eventBus.Subscribe(ctx, t, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe event to WS hub", "topic", t, "error", err)
		}
	}

	return r
}
