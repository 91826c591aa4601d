package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/db"
	"focusflow/backend/internal/engine"
	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/router"
	"focusflow/backend/internal/service"
)

func main() {
	cfg := config.Load()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	prefsRepo := repository.NewPreferencesRepository(database)
	sessionRepo := repository.NewSessionRepository(database)

	authService := service.NewAuthService(userRepo, prefsRepo, cfg.JWTSecret, cfg.TokenTTL)
	focusService := service.NewFocusService(prefsRepo, sessionRepo, engine.Options{
		TickInterval: cfg.TickInterval,
		SyncInterval: cfg.SyncInterval,
	})

	midnight := engine.NewMidnightScheduler(time.Now, focusService.MarkDayRollover)
	midnight.Start()

	authHandler := handler.NewAuthHandler(authService)
	focusHandler := handler.NewFocusHandler(focusService)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.New(authService, authHandler, focusHandler, cfg.CORSOrigins),
	}

	go func() {
		log.Printf("backend listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown server: %v", err)
	}

	midnight.Stop()
	focusService.StopAll()
}
