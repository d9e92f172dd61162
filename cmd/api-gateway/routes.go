package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/config"
	"github.com/noah-isme/agenda-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/agenda-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/agenda-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", a.metricsHandler.Health)
	r.GET("/ready", a.metricsHandler.Ready)
	r.GET("/metrics", a.metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(a.users, logr, action, resource)
	}
	admin := middleware.RequireRoles(models.RoleAdmin)
	editor := middleware.RequireEditor()

	auth := api.Group("/auth")
	auth.POST("/login", a.authHandler.Login)
	auth.POST("/refresh", a.authHandler.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(a.auth))

	secured.POST("/auth/logout", a.authHandler.Logout)
	secured.POST("/auth/change-password", a.authHandler.ChangePassword)
	secured.GET("/auth/me", a.authHandler.Me)

	users := secured.Group("/users", admin)
	users.GET("", a.userHandler.List)
	users.GET("/:id", a.userHandler.Get)
	users.POST("", a.userHandler.Create)
	users.PUT("/:id", a.userHandler.Update)
	users.DELETE("/:id", a.userHandler.Delete)

	resources := secured.Group("/resources")
	resources.GET("", a.resourceHandler.List)
	resources.GET("/:id", a.resourceHandler.Get)
	resources.POST("", admin, audit(models.AuditActionResourceCreate, "resources"), a.resourceHandler.Create)
	resources.PUT("/:id", admin, audit(models.AuditActionResourceUpdate, "resources"), a.resourceHandler.Update)
	resources.DELETE("/:id", admin, audit(models.AuditActionResourceDelete, "resources"), a.resourceHandler.Delete)

	clients := secured.Group("/clients")
	clients.GET("", a.clientHandler.List)
	clients.GET("/:id", a.clientHandler.Get)
	clients.POST("", editor, audit(models.AuditActionClientCreate, "clients"), a.clientHandler.Create)
	clients.PUT("/:id", editor, audit(models.AuditActionClientUpdate, "clients"), a.clientHandler.Update)
	clients.DELETE("/:id", editor, audit(models.AuditActionClientDelete, "clients"), a.clientHandler.Delete)

	appointments := secured.Group("/appointments")
	appointments.GET("", a.appointmentHandler.List)
	appointments.GET("/:id", a.appointmentHandler.Get)
	appointments.POST("", editor, audit(models.AuditActionAppointmentCreate, "appointments"), a.appointmentHandler.Create)
	appointments.POST("/series", editor, audit(models.AuditActionAppointmentCreate, "appointments"), a.appointmentHandler.CreateSeries)
	appointments.PATCH("/:id", editor, audit(models.AuditActionAppointmentUpdate, "appointments"), a.appointmentHandler.Update)
	appointments.DELETE("/:id", editor, audit(models.AuditActionAppointmentDelete, "appointments"), a.appointmentHandler.Delete)

	schedule := secured.Group("/schedule")
	schedule.GET("/window", a.scheduleHandler.Window)
	schedule.GET("/grid", a.scheduleHandler.Grid)
	schedule.GET("/grid/pdf", a.scheduleHandler.GridPDF)
	schedule.POST("/exports", audit(models.AuditActionExportRequest, "exports"), a.exportHandler.Create)
	schedule.GET("/exports/:id", a.exportHandler.Status)
	secured.GET("/metrics/snapshot", admin, a.metricsHandler.Snapshot)

	// Signed download links carry their own authorization.
	api.GET("/schedule/exports/download/:token", a.exportHandler.Download)

	return r
}
