package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helmdesk/helmdesk/internal/app"
	"github.com/helmdesk/helmdesk/internal/auth"
	"github.com/helmdesk/helmdesk/internal/menu"
	"github.com/helmdesk/helmdesk/internal/observability"
	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	authMW := auth.Middleware{Codec: codec, Logger: logger}

	menuService := menu.NewService(menu.NewRepository(pool))
	authService := auth.NewService(auth.NewRepository(pool), codec, auth.BcryptHasher{}, menuService)

	rbacService := rbac.NewService(rbac.NewRepository(pool))
	rbacMW := rbac.Middleware{Service: rbacService, Logger: logger}

	usersService := users.NewService(users.NewRepository(pool))

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, authService, authMW, metrics, cfg.LoginRateLimit, cfg.LoginRateWindow),
		AuthMiddleware:     authMW,
		RolesHandler:       rbac.NewHandler(logger, rbacService, rbacMW),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMW),
		UserRolesHandler:   rbac.NewUserRolesHandler(logger, rbacService, rbacMW),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMW),
		MenuHandler:        menu.NewHandler(logger, menuService, rbacMW),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("helmdesk listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("helmdesk stopped")
}
