package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/agenda-api/api/swagger"
	"github.com/noah-isme/agenda-api/internal/handler"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/pkg/cache"
	"github.com/noah-isme/agenda-api/pkg/config"
	"github.com/noah-isme/agenda-api/pkg/database"
	"github.com/noah-isme/agenda-api/pkg/jobs"
	"github.com/noah-isme/agenda-api/pkg/logger"
	"github.com/noah-isme/agenda-api/pkg/storage"
)

// @title Agenda API
// @version 1.0.0
// @description Appointment scheduling API: resources, clients, appointments and laid out schedule grids.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	serviceName     = "agenda-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Grid.Location()
	if err != nil {
		return err
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		}
	}

	app, err := buildApp(ctx, cfg, logr, db, redisClient, loc)
	if err != nil {
		return err
	}
	defer app.close()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, logr, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// app holds the wired services and handlers of one server process.
type app struct {
	users   *repository.UserRepository
	auth    *service.AuthService
	metrics *service.MetricsService

	authHandler        *handler.AuthHandler
	userHandler        *handler.UserHandler
	resourceHandler    *handler.ResourceHandler
	clientHandler      *handler.ClientHandler
	appointmentHandler *handler.AppointmentHandler
	scheduleHandler    *handler.ScheduleHandler
	exportHandler      *handler.ExportHandler
	metricsHandler     *handler.MetricsHandler

	queue *jobs.Queue
	cache *repository.CacheRepository
}

func buildApp(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, loc *time.Location) (*app, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	clientRepo := repository.NewClientRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.GridTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, resourceRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             serviceName,
		Audience:           []string{serviceName},
	})
	userSvc := service.NewUserService(userRepo, resourceRepo, validate, logr)
	resourceSvc := service.NewResourceService(resourceRepo, cacheSvc, cfg.Cache.ResourceTTL, validate, logr)
	clientSvc := service.NewClientService(clientRepo, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, resourceRepo, cacheSvc, metrics, validate, logr, service.AppointmentServiceConfig{
		SeriesLimit: cfg.Series.MaxOccurrences,
	})

	store := service.NewLocalScheduleStore(resourceSvc, appointmentSvc)
	gridSvc := service.NewGridService(store, cacheSvc, metrics, logr, service.GridServiceConfig{
		Grid:     gridConfig(cfg.Grid),
		Location: loc,
		CacheTTL: cfg.Cache.GridTTL,
	})

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportRepo, gridSvc, files, signer, metrics, logr, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupSchedule: cfg.Exports.CleanupSchedule,
		ICSDomain:       serviceName,
		Location:        loc,
	})

	a := &app{
		users:   userRepo,
		auth:    authSvc,
		metrics: metrics,
		cache:   cacheRepo,

		authHandler:        handler.NewAuthHandler(authSvc),
		userHandler:        handler.NewUserHandler(userSvc),
		resourceHandler:    handler.NewResourceHandler(resourceSvc),
		clientHandler:      handler.NewClientHandler(clientSvc),
		appointmentHandler: handler.NewAppointmentHandler(appointmentSvc),
		scheduleHandler:    handler.NewScheduleHandler(gridSvc, exportSvc),
		exportHandler:      handler.NewExportHandler(exportSvc),
	}

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}
	a.metricsHandler = handler.NewMetricsHandler(metrics, checks)

	if cfg.Exports.Enabled {
		attempts := cfg.Exports.WorkerRetries
		if attempts < 1 {
			attempts = 1
		}
		worker := service.NewExportWorker(exportRepo, exportSvc, metrics, attempts, logr)
		a.queue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: attempts - 1,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
			OnExhausted: func(job jobs.Job, err error) {
				logr.Warn("export job exhausted", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			},
		})
		exportSvc.SetQueue(a.queue)
		a.queue.Start(ctx)
		exportSvc.RecoverPendingJobs(ctx)
		if err := exportSvc.StartCleanup(ctx); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *app) close() {
	if a.queue != nil {
		a.queue.Stop()
	}
	_ = a.cache.Close()
}

func gridConfig(cfg config.GridConfig) service.GridConfig {
	return service.GridConfig{
		Day:            models.GridGeometry{SlotStartHour: cfg.DayStartHour, SlotCount: cfg.DaySlotCount, SlotHeightPx: cfg.SlotHeightPx},
		Week:           models.GridGeometry{SlotStartHour: cfg.WeekStartHour, SlotCount: cfg.WeekSlotCount, SlotHeightPx: cfg.SlotHeightPx},
		HeaderOffsetPx: cfg.HeaderOffsetPx,
	}
}
