package main

import (
	"context"
	"time"

	"github.com/huangang/mealkiosk/internal/config"
	"github.com/huangang/mealkiosk/internal/handlers"
	"github.com/huangang/mealkiosk/internal/localstore"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/internal/utils"
	"github.com/huangang/mealkiosk/pkg/logger"
)

// appServices holds every long-lived service, scheduler and handler.
type appServices struct {
	store         localstore.Store
	hub           *services.SSEHub
	conn          *services.Connectivity
	auth          *services.AuthService
	syncer        *services.SyncScheduler
	summaries     *services.DailySummaryService
	systemLogs    *services.SystemLogService
	taskQueue     services.TaskQueue
	worker        *services.Worker
	registerRPS   float64
	registerBurst int

	kioskHandler        *handlers.KioskHandler
	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	groupHandler        *handlers.GroupHandler
	adminUserHandler    *handlers.AdminUserHandler
	mealRecordHandler   *handlers.MealRecordHandler
	settingsHandler     *handlers.SettingsHandler
	reportHandler       *handlers.ReportHandler
	dailySummaryHandler *handlers.DailySummaryHandler
	dashboardHandler    *handlers.DashboardHandler
	systemLogHandler    *handlers.SystemLogHandler
	healthHandler       *handlers.HealthHandler
	sseHandler          *handlers.SSEHandler
}

// bootstrap connects the backend and the local store, wires the services and
// starts the schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)
	ctx := context.Background()
	loc := cfg.Kiosk.Location()

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	store, err := localstore.New(&cfg.LocalStore, &cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to open local store: %v", err)
	}

	services.InitSystemLogger(db)
	systemLogs := services.NewSystemLogService(db)
	if err := systemLogs.StartCleanupScheduler(cfg.Kiosk.LogRetentionDays); err != nil {
		logger.Warn().Err(err).Msg("Failed to start log cleanup")
	}

	hub := services.NewSSEHub()
	conn := services.NewConnectivity(services.DBPinger(db))

	mealRecords := services.NewMealRecordService(db)
	queue := services.NewOfflineQueue(store, mealRecords)
	syncer := services.NewSyncScheduler(queue, conn, hub, cfg.Kiosk.SyncEvery())
	if err := syncer.Start(); err != nil {
		logger.Fatalf("Failed to start offline sync: %v", err)
	}

	userService := services.NewUserService(db)
	groupService := services.NewGroupService(db)
	settingsService := services.NewSettingsService(db, store)
	if _, err := settingsService.Get(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to load registration windows")
	}
	registration := services.NewRegistrationService(mealRecords, queue, settingsService, conn, hub, loc)
	userCache := services.NewUserCache(userService, store, cfg.Kiosk.CacheTTL())

	auth := services.NewAuthService(db, store, &cfg.JWT, cfg.Kiosk.SessionMaxAge())
	if created, err := auth.EnsureDefaultAdmin(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	} else if created {
		logger.Warn().Msg("Default admin account admin/admin created, change its password")
	}

	calendar := services.NewWorkdayCalendar(cfg.Kiosk.HolidayCountry)
	reports := services.NewReportService(db, calendar, loc)
	summaries := services.NewDailySummaryService(db, reports, calendar, cfg.Kiosk.DailySummaryTime, loc)

	taskQueue := services.NewTaskQueue(&cfg.Redis)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(summaries.ProcessTask)
	}
	summaries.SetQueue(taskQueue)

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, summaries.ProcessTask)
		if worker != nil {
			worker.Start()
		}
	}
	if err := summaries.StartScheduler(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start daily summary scheduler")
	}

	return &appServices{
		store:         store,
		hub:           hub,
		conn:          conn,
		auth:          auth,
		syncer:        syncer,
		summaries:     summaries,
		systemLogs:    systemLogs,
		taskQueue:     taskQueue,
		worker:        worker,
		registerRPS:   cfg.Kiosk.RegisterRPS,
		registerBurst: cfg.Kiosk.RegisterBurst,

		kioskHandler: handlers.NewKioskHandler(handlers.KioskDeps{
			Groups:       groupService,
			Users:        userCache,
			Settings:     settingsService,
			Registration: registration,
			Queue:        queue,
			Scheduler:    syncer,
			Conn:         conn,
			Location:     loc,
		}),
		authHandler:         handlers.NewAuthHandler(auth),
		userHandler:         handlers.NewUserHandler(userService),
		groupHandler:        handlers.NewGroupHandler(groupService),
		adminUserHandler:    handlers.NewAdminUserHandler(services.NewAdminUserService(db)),
		mealRecordHandler:   handlers.NewMealRecordHandler(mealRecords),
		settingsHandler:     handlers.NewSettingsHandler(settingsService),
		reportHandler:       handlers.NewReportHandler(reports),
		dailySummaryHandler: handlers.NewDailySummaryHandler(summaries),
		dashboardHandler:    handlers.NewDashboardHandler(services.NewDashboardService(db, reports, queue, conn, loc)),
		systemLogHandler:    handlers.NewSystemLogHandler(systemLogs),
		healthHandler:       handlers.NewHealthHandler(conn, queue, taskQueue, hub),
		sseHandler:          handlers.NewSSEHandler(hub),
	}
}

// shutdown stops the schedulers, then gives the offline queue one last
// chance to reach the backend before the local store is closed.
func (s *appServices) shutdown() {
	s.syncer.Stop()
	s.summaries.StopScheduler()
	s.systemLogs.StopCleanupScheduler()
	logger.Info().Msg("All schedulers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if online, _ := s.conn.Check(ctx); online {
		result := s.syncer.SyncNow(ctx)
		logger.Info().Int("synced", result.Synced).Int("failed", result.Failed).Msg("Final offline sync")
	}

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if err := s.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close local store")
	}
}
