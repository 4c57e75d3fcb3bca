package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/services"
)

// HealthHandler reports the state of the kiosk subsystems. A kiosk with an
// unreachable backend is degraded, not down: registrations still queue.
type HealthHandler struct {
	conn  *services.Connectivity
	queue *services.OfflineQueue
	tasks services.TaskQueue
	hub   *services.SSEHub
}

func NewHealthHandler(conn *services.Connectivity, queue *services.OfflineQueue, tasks services.TaskQueue, hub *services.SSEHub) *HealthHandler {
	return &HealthHandler{conn: conn, queue: queue, tasks: tasks, hub: hub}
}

// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	online, _ := h.conn.Check(c.Request.Context())
	backend := "ok"
	if !online {
		backend = "unreachable"
		overall = "degraded"
	}

	localStore := "ok"
	pending, err := h.queue.PendingCount(c.Request.Context())
	if err != nil {
		localStore = "error: " + err.Error()
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.tasks != nil && h.tasks.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "mealkiosk",
		"components": gin.H{
			"backend":         backend,
			"local_store":     localStore,
			"pending_offline": pending,
			"queue_mode":      queueMode,
			"sse_clients":     h.hub.ClientCount(),
		},
	})
}
