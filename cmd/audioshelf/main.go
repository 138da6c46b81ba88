package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audioshelf/internal/config"
	"audioshelf/internal/ffmpeg"
	"audioshelf/internal/handler"
	"audioshelf/internal/middleware"
	"audioshelf/internal/observability"
	"audioshelf/internal/repository/postgres"
	"audioshelf/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(logLevel, logFormat)

	slog.Info("starting audioshelf server")

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	db, err := config.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(connCtx); err != nil {
		slog.Error("database ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to postgresql")

	if err := postgres.Migrate(connCtx, db); err != nil {
		slog.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("migrations applied")

	prober := ffmpeg.NewProber(cfg.FFprobePath)
	if err := prober.Check(); err != nil {
		slog.Error("ffprobe not available", slog.String("path", cfg.FFprobePath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(db)
	sessionRepo, err := postgres.NewSessionRepository(db)
	if err != nil {
		slog.Error("failed to prepare session statements", slog.String("error", err.Error()))
		os.Exit(1)
	}
	bookRepo := postgres.NewBookRepository(db)
	libraryRepo, err := postgres.NewLibraryRepository(db)
	if err != nil {
		slog.Error("failed to prepare library statements", slog.String("error", err.Error()))
		os.Exit(1)
	}

	authService := service.NewAuthService(userRepo, sessionRepo, cfg.SessionTTL, config.RenewalThreshold)
	defer authService.Close()
	catalogService := service.NewCatalogService(bookRepo, prober)
	libraryService := service.NewLibraryService(libraryRepo, bookRepo)

	ensureAdminUser(authService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go startSessionCleanup(ctx, authService)
	slog.Info("session cleanup task started")

	go observability.CollectDBStats(db, 15*time.Second, ctx.Done())

	authHandler := handler.NewAuthHandler(authService, cfg)
	bookHandler := handler.NewBookHandler(catalogService)
	libraryHandler := handler.NewLibraryHandler(libraryService)
	userHandler := handler.NewUserHandler(authService)
	fsHandler := handler.NewFSHandler(cfg.DefaultDir, prober)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogContext)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.Metrics())
	r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig()))
	r.Use(middleware.Session(authService, cfg.CookieSecure))

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db))
	r.Handle("/metrics", promhttp.Handler())

	loginLimiter := middleware.NewRateLimiter(5, 10)
	defer loginLimiter.Stop()

	r.Group(func(r chi.Router) {
		r.Use(loginLimiter.Middleware())
		r.Post("/login", authHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)

		r.Delete("/logout", authHandler.Logout)
		r.Get("/session/info", authHandler.Info)

		r.Get("/book", bookHandler.List)
		r.Get("/book/{id}", bookHandler.Get)
		r.Get("/book/{id}/cover", bookHandler.Cover)
		r.Get("/book/{id}/audio/{fileId}", bookHandler.Audio)
		r.Post("/book/{id}/library", libraryHandler.SetLibrary)
		r.Post("/book/{id}/progress", libraryHandler.SetProgress)

		r.Get("/user", userHandler.List)
		r.Get("/user/{id}", userHandler.Get)
		r.Patch("/user/{id}", userHandler.Update)
		r.Get("/user/{id}/library", libraryHandler.GetLibrary)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Use(middleware.RequireAdmin)

		r.Post("/book", bookHandler.Create)
		r.Post("/rediscover-chapters", bookHandler.RediscoverChapters)
		r.Post("/user", userHandler.Create)
		r.Get("/fs", fsHandler.List)
		r.Get("/fs/info", fsHandler.Info)
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: audio streams legitimately run for hours.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("audioshelf listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	slog.Info("server stopped gracefully")
}

// ensureAdminUser seeds the first admin account on an empty install. The
// generated password is printed to the log exactly once; the operator is
// expected to change it.
func ensureAdminUser(authService *service.AuthService) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := authService.CountUsers(ctx)
	if err != nil {
		slog.Error("failed to count users", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if count > 0 {
		return
	}

	password := generatePassword()
	user, err := authService.CreateUser(ctx, "admin", password, true)
	if err != nil {
		slog.Error("failed to seed admin user", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seeded initial admin user",
		slog.String("username", user.Username),
		slog.String("password", password))
}

func generatePassword() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// startSessionCleanup runs a background task to delete expired sessions
func startSessionCleanup(ctx context.Context, authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping session cleanup task")
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := authService.CleanupExpired(cleanupCtx)
			if err != nil {
				slog.Error("session cleanup failed", slog.String("error", err.Error()))
			} else {
				slog.Info("session cleanup completed",
					slog.Int64("sessions_deleted", count))
			}
			cancel()
		}
	}
}
