package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/config"
	"github.com/huangang/mealkiosk/internal/localstore"
	"github.com/huangang/mealkiosk/internal/middleware"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/internal/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-handler-testing")
}

// testEnv is a kiosk wired against an in-memory backend and local store.
type testEnv struct {
	db     *gorm.DB
	store  *localstore.MemoryStore
	conn   *services.Connectivity
	queue  *services.OfflineQueue
	auth   *services.AuthService
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.Migrate(db))
	require.NoError(t, models.Seed(db))

	// Whole-day windows keep registrations open whenever the test runs.
	require.NoError(t, db.Model(&models.SystemSettings{}).Where("id = ?", models.SystemSettingsID).Updates(map[string]interface{}{
		"breakfast_start_time": "00:00", "breakfast_deadline": "23:59",
		"lunch_start_time": "00:00", "lunch_deadline": "23:59",
	}).Error)

	store := localstore.NewMemoryStore()
	hub := services.NewSSEHub()
	conn := services.NewConnectivity(func(context.Context) error { return nil })
	records := services.NewMealRecordService(db)
	queue := services.NewOfflineQueue(store, records)
	syncer := services.NewSyncScheduler(queue, conn, hub, time.Minute)
	settings := services.NewSettingsService(db, store)
	users := services.NewUserService(db)
	groups := services.NewGroupService(db)
	auth := services.NewAuthService(db, store, &config.JWTConfig{ExpireHour: 1}, time.Hour)
	calendar := services.NewWorkdayCalendar(services.CountryNone)
	reports := services.NewReportService(db, calendar, time.Local)

	kiosk := NewKioskHandler(KioskDeps{
		Groups:       groups,
		Users:        services.NewUserCache(users, store, time.Hour),
		Settings:     settings,
		Registration: services.NewRegistrationService(records, queue, settings, conn, hub, time.Local),
		Queue:        queue,
		Scheduler:    syncer,
		Conn:         conn,
		Location:     time.Local,
	})
	authHandler := NewAuthHandler(auth)
	userHandler := NewUserHandler(users)
	groupHandler := NewGroupHandler(groups)
	settingsHandler := NewSettingsHandler(settings)
	reportHandler := NewReportHandler(reports)
	recordHandler := NewMealRecordHandler(records)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/kiosk/groups", kiosk.ListGroups)
	api.GET("/kiosk/users", kiosk.ListUsers)
	api.GET("/kiosk/windows", kiosk.GetWindows)
	api.GET("/kiosk/status", kiosk.Status)
	api.GET("/kiosk/pending", kiosk.ListPending)
	api.POST("/kiosk/meals", kiosk.Register)
	api.POST("/kiosk/sync", kiosk.Sync)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/session", authHandler.GetSession)

	protected := api.Group("", middleware.AuthRequired(auth))
	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/admin/users", userHandler.List)
	protected.POST("/admin/users", userHandler.Create)
	protected.PUT("/admin/users/:id", userHandler.Update)
	protected.DELETE("/admin/users/:id", userHandler.Delete)
	protected.POST("/admin/groups", groupHandler.Create)
	protected.POST("/admin/groups/:id/deactivate", groupHandler.Deactivate)
	protected.GET("/admin/settings", settingsHandler.Get)
	protected.PUT("/admin/settings", settingsHandler.Update)
	protected.GET("/admin/meal-records", recordHandler.List)
	protected.GET("/admin/reports/summary", reportHandler.GetSummary)
	protected.GET("/admin/reports/records/export", reportHandler.ExportRecords)

	return &testEnv{db: db, store: store, conn: conn, queue: queue, auth: auth, router: r}
}

func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// login creates the default admin and returns a token for it.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	_, err := e.auth.EnsureDefaultAdmin(context.Background())
	require.NoError(t, err)
	w := e.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": "admin"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.Token
}

// envelope decodes the response envelope with data left raw.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
