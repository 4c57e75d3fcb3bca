package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/pkg/response"
)

// KioskHandler serves the unauthenticated kiosk screen.
type KioskHandler struct {
	groups       *services.GroupService
	users        *services.UserCache
	settings     *services.SettingsService
	registration *services.RegistrationService
	queue        *services.OfflineQueue
	scheduler    *services.SyncScheduler
	conn         *services.Connectivity
	loc          *time.Location
	now          func() time.Time
}

type KioskDeps struct {
	Groups       *services.GroupService
	Users        *services.UserCache
	Settings     *services.SettingsService
	Registration *services.RegistrationService
	Queue        *services.OfflineQueue
	Scheduler    *services.SyncScheduler
	Conn         *services.Connectivity
	Location     *time.Location
}

func NewKioskHandler(deps KioskDeps) *KioskHandler {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &KioskHandler{
		groups:       deps.Groups,
		users:        deps.Users,
		settings:     deps.Settings,
		registration: deps.Registration,
		queue:        deps.Queue,
		scheduler:    deps.Scheduler,
		conn:         deps.Conn,
		loc:          loc,
		now:          time.Now,
	}
}

// ListGroups returns the active groups for the first kiosk step.
// GET /api/kiosk/groups
func (h *KioskHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.List(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, groups)
}

// ListUsers returns active users of a group, from the local cache when the
// backend is unreachable.
// GET /api/kiosk/users?group_type=staff
func (h *KioskHandler) ListUsers(c *gin.Context) {
	users, fromCache, err := h.users.FetchWithCache(c.Request.Context(), c.Query("group_type"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"items":      users,
		"from_cache": fromCache,
	})
}

// GetWindows reports which meal slots accept registrations right now.
// GET /api/kiosk/windows
func (h *KioskHandler) GetWindows(c *gin.Context) {
	now := h.now().In(h.loc)
	settings, fromCache := h.settings.Current(c.Request.Context())
	response.Success(c, gin.H{
		"date":       now.Format(models.DateLayout),
		"time":       now.Format(models.TimeLayout),
		"windows":    services.MealWindows(settings, now),
		"configured": settings != nil,
		"from_cache": fromCache,
	})
}

// Register records a meal for a user or a visitor.
// POST /api/kiosk/meals
func (h *KioskHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.registration.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	switch result.Outcome {
	case services.OutcomeSaved:
		response.Created(c, result)
	case services.OutcomeQueued:
		response.Accepted(c, "saved offline, will sync when the connection returns", result)
	default:
		c.JSON(http.StatusInternalServerError, response.Response{
			Code:    500,
			Message: "registration could not be saved, please try again",
			Data:    result,
		})
	}
}

// Status reports connectivity and the offline backlog.
// GET /api/kiosk/status
func (h *KioskHandler) Status(c *gin.Context) {
	pending, err := h.queue.PendingCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"online":  h.conn.Online(),
		"pending": pending,
		"syncing": h.queue.IsSyncing(),
	})
}

// ListPending returns the offline queue in submission order.
// GET /api/kiosk/pending
func (h *KioskHandler) ListPending(c *gin.Context) {
	pending, err := h.queue.Pending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, pending)
}

// Sync pushes the offline queue now instead of waiting for the next tick.
// POST /api/kiosk/sync
func (h *KioskHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()
	if online, _ := h.conn.Check(ctx); !online {
		response.Error(c, response.NewServiceUnavailable("backend is unreachable"))
		return
	}
	response.Success(c, h.scheduler.SyncNow(ctx))
}
