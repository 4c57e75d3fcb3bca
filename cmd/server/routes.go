package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/middleware"
	"github.com/huangang/mealkiosk/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine and returns
// the registration rate limiter so the caller can stop it.
func registerRoutes(r *gin.Engine, svc *appServices) *middleware.RateLimiter {
	r.Use(logger.GinLogger("/health", "/api/admin/events"), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	registerLimiter := middleware.NewRateLimiter(svc.registerRPS, svc.registerBurst)

	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		// Kiosk screen (public)
		kiosk := api.Group("/kiosk")
		{
			kiosk.GET("/groups", svc.kioskHandler.ListGroups)
			kiosk.GET("/users", svc.kioskHandler.ListUsers)
			kiosk.GET("/windows", svc.kioskHandler.GetWindows)
			kiosk.GET("/status", svc.kioskHandler.Status)
			kiosk.GET("/pending", svc.kioskHandler.ListPending)
			kiosk.POST("/meals", registerLimiter.Middleware(), svc.kioskHandler.Register)
			kiosk.POST("/sync", registerLimiter.Middleware(), svc.kioskHandler.Sync)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.GET("/session", svc.authHandler.GetSession)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.auth), middleware.AuditLog())
		{
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.PUT("/auth/password", svc.authHandler.ChangePassword)

			admin := protected.Group("/admin")

			admin.GET("/dashboard", svc.dashboardHandler.GetStats)
			admin.GET("/events", svc.sseHandler.StreamEvents)

			admin.GET("/users", svc.userHandler.List)
			admin.GET("/users/:id", svc.userHandler.Get)
			admin.POST("/users", svc.userHandler.Create)
			admin.PUT("/users/:id", svc.userHandler.Update)
			admin.POST("/users/:id/deactivate", svc.userHandler.Deactivate)
			admin.DELETE("/users/:id", svc.userHandler.Delete)

			admin.GET("/groups", svc.groupHandler.List)
			admin.POST("/groups", svc.groupHandler.Create)
			admin.PUT("/groups/:id", svc.groupHandler.Update)
			admin.POST("/groups/:id/deactivate", svc.groupHandler.Deactivate)
			admin.DELETE("/groups/:id", svc.groupHandler.Delete)

			admin.GET("/admins", svc.adminUserHandler.List)
			admin.POST("/admins", svc.adminUserHandler.Create)
			admin.PUT("/admins/:id", svc.adminUserHandler.Update)
			admin.DELETE("/admins/:id", svc.adminUserHandler.Delete)

			admin.GET("/meal-records", svc.mealRecordHandler.List)
			admin.GET("/meal-records/:id", svc.mealRecordHandler.Get)
			admin.DELETE("/meal-records/:id", svc.mealRecordHandler.Delete)

			admin.GET("/settings", svc.settingsHandler.Get)
			admin.PUT("/settings", svc.settingsHandler.Update)

			admin.GET("/reports/summary", svc.reportHandler.GetSummary)
			admin.GET("/reports/summary/export", svc.reportHandler.ExportSummary)
			admin.GET("/reports/records/export", svc.reportHandler.ExportRecords)

			admin.GET("/daily-summaries", svc.dailySummaryHandler.List)
			admin.POST("/daily-summaries/regenerate", svc.dailySummaryHandler.Regenerate)
			admin.GET("/daily-summaries/:date", svc.dailySummaryHandler.Get)
			admin.POST("/daily-summaries/:date", svc.dailySummaryHandler.Generate)

			admin.GET("/system-logs", svc.systemLogHandler.List)
			admin.GET("/system-logs/modules", svc.systemLogHandler.GetModules)
		}
	}

	return registerLimiter
}
