package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/admissions-api/api/swagger"
	"github.com/noah-isme/admissions-api/internal/handler"
	"github.com/noah-isme/admissions-api/internal/middleware"
	"github.com/noah-isme/admissions-api/internal/repository"
	"github.com/noah-isme/admissions-api/internal/service"
	"github.com/noah-isme/admissions-api/pkg/cache"
	"github.com/noah-isme/admissions-api/pkg/config"
	"github.com/noah-isme/admissions-api/pkg/database"
	"github.com/noah-isme/admissions-api/pkg/logger"
	"github.com/noah-isme/admissions-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/admissions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/admissions-api/pkg/middleware/requestid"
	"github.com/noah-isme/admissions-api/pkg/oauth"
	"github.com/noah-isme/admissions-api/pkg/storage"
)

// @title ETEEAP Admissions API
// @version 1.0.0
// @description Applicant submissions, admin review, trash recovery and session-backed authentication.
// @BasePath /
// @schemes http https

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	files, err := storage.NewLocalStorage(cfg.Upload.Dir, cfg.Upload.PublicPrefix)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	users := repository.NewUserRepository(db)
	apps := repository.NewApplicationRepository(db)
	ledger := repository.NewVerifiedFileRepository(db)
	remarks := repository.NewRemarkRepository(db)
	trashRepo := repository.NewTrashRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	resets := repository.NewPasswordResetRepository(db)
	registry := repository.NewSessionRegistryRepository(db)
	sessionStore := repository.NewSessionStore(redisClient)
	limiter := repository.NewRateLimitRepository(redisClient)
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Dashboard.CacheTTL, logr, true)

	var sender mail.Sender = mail.NewLogSender(logr)
	if cfg.Mail.SendGridAPIKey != "" {
		sender = mail.NewSendGridSender(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	} else {
		logr.Warn("SENDGRID_API_KEY not set, outgoing mail is only logged")
	}
	mailer := mail.NewDispatcher(sender, mail.DispatcherConfig{Workers: cfg.Mail.Workers, Retries: cfg.Mail.Retries, RetryDelay: 2 * time.Second}, logr)
	mailer.Start(ctx)
	defer mailer.Stop()

	google := oauth.NewGoogle(oauth.GoogleConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
	})
	if !google.Configured() {
		logr.Warn("google sign-in disabled, GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET missing")
	}

	activitySvc := service.NewActivityService(activityRepo, users, validate, logr)
	sessionSvc := service.NewSessionService(sessionStore, registry, cfg.Session.TTL, logr)
	authSvc := service.NewAuthService(users, resets, sessionSvc, mailer, google, validate, logr, service.AuthConfig{
		FrontendURL: cfg.FrontendURL,
		StateSecret: cfg.OAuth.StateSecret,
		StateTTL:    cfg.OAuth.StateTTL,
	})
	appSvc := service.NewApplicationService(apps, ledger, users, files, cacheSvc, validate, logr, service.ApplicationServiceConfig{
		MaxFileSizeBytes: cfg.Upload.MaxFileSizeBytes,
	})
	reviewSvc := service.NewReviewService(db, apps, ledger, remarks, activitySvc, cacheSvc, logr)
	trashSvc := service.NewTrashService(db, apps, ledger, trashRepo, activitySvc, cacheSvc, logr, service.TrashConfig{
		Retention:     cfg.Trash.Retention,
		SweepInterval: cfg.Trash.SweepInterval,
		Metrics:       metrics,
	})
	profileSvc := service.NewProfileService(users, files, activitySvc, validate, logr, cfg.Upload.MaxFileSizeBytes)
	dashboardSvc := service.NewDashboardService(apps, ledger, cacheSvc, logr, service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL})
	exportSvc := service.NewExportService(reviewSvc, activitySvc, logr)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		account := service.AdminAccount{Email: cfg.Admin.Email, Password: cfg.Admin.Password, Name: cfg.Admin.Name}
		if err := authSvc.EnsureAdmin(ctx, account, false); err != nil {
			logr.Error("failed to ensure admin account", zap.Error(err))
		}
	}

	trashSvc.StartSweep(ctx)

	cookie := middleware.CookieConfig{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.TTL,
		Secure: cfg.Session.Secure,
		Domain: cfg.Session.Domain,
	}
	limit := middleware.RateLimitConfig{Enabled: cfg.RateLimit.Enabled, Limit: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Session(sessionSvc, cookie, metrics, logr))
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))

	r.Static("/"+strings.Trim(files.PublicPrefix(), "/"), files.Dir())
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc, handler.AuthHandlerConfig{Cookie: cookie, FrontendOrigin: cfg.FrontendURL}, logr),
		Applications: handler.NewApplicationHandler(appSvc),
		Review:       handler.NewReviewHandler(reviewSvc),
		Trash:        handler.NewTrashHandler(trashSvc),
		Activity:     handler.NewActivityHandler(activitySvc),
		Profile:      handler.NewProfileHandler(profileSvc),
		Dashboard:    handler.NewDashboardHandler(dashboardSvc),
		Export:       handler.NewExportHandler(exportSvc),
		Metrics:      handler.NewMetricsHandler(metrics, db),
	}, handler.RouteGuards{
		RequireUser:  middleware.RequireUser(users, cfg.AllowUserIDHeader),
		RequireAdmin: middleware.RequireAdmin(users),
		LoginLimit:   middleware.RateLimit(limiter, limit, "login", metrics, logr),
		SignupLimit:  middleware.RateLimit(limiter, limit, "signup", metrics, logr),
		LoginAudit:   middleware.Audit(activitySvc, "login", "User logged in"),
		LogoutAudit:  middleware.Audit(activitySvc, "logout", "User logged out"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
