package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-session-auth/internal/config"
	"go-session-auth/internal/csrf"
	"go-session-auth/internal/database"
	"go-session-auth/internal/handler"
	"go-session-auth/internal/hashing"
	"go-session-auth/internal/middleware"
	"go-session-auth/internal/repository"
	"go-session-auth/internal/router"
	"go-session-auth/internal/service"
)

type App struct {
	server *http.Server
	db     *database.DB
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	userRepo := repository.NewUserRepository(db.Pool)
	authService := service.NewAuthService(userRepo, hashing.Default(), cfg.MaxFailedLogins, cfg.LockoutDuration)

	if cfg.AdminPassword != "" {
		if err := authService.SeedDefaultAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed admin account: %w", err)
		}
	}

	guard := csrf.NewGuard(csrf.Options{
		Secure:        cfg.SecureCookies,
		IgnoreMethods: []string{http.MethodPost},
	})

	login, err := middleware.NewLogin(middleware.LoginOptions{
		GetUser:       authService.GetUser,
		Secret:        cfg.JWTSecret,
		TTL:           cfg.AccessTokenTTL,
		LoginHook:     authService.OnLoginSuccess,
		OnFailure:     authService.OnLoginFailure,
		Rehash:        authService.Rehash,
		CSRF:          guard,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build login pipeline: %w", err)
	}

	identify, err := middleware.NewIdentify(middleware.IdentifyOptions{Secret: cfg.JWTSecret})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build identify middleware: %w", err)
	}

	authHandler := handler.NewAuthHandler(authService, guard)
	appRouter := router.New(cfg, login, identify, authHandler)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, db: db}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.db.Close()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
