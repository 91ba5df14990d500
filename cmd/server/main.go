package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geoauth/internal/api"
	"geoauth/internal/api/middleware"
	"geoauth/internal/app/service"
	"geoauth/internal/common/security"
	"geoauth/internal/domain/repository"
	"geoauth/internal/platform/config"
	"geoauth/internal/platform/database"
	"geoauth/internal/platform/geo"
	"geoauth/internal/platform/metrics"
)

func main() {
	// 1. Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// 3. Open the embedded store
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	// 4. Initialize components
	userRepo := repository.NewSQLiteUserRepository(db)
	tokens := security.NewTokenService(cfg.SecretKey, cfg.TokenTTL)
	collector := metrics.NewCollector()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	geocoder := geo.NewGeocoder(httpClient, slog.Default(), cfg.GeocodeBaseURL, collector)
	directions := geo.NewDirections(httpClient, slog.Default(), cfg.RouteBaseURL, cfg.ORSAPIKey, collector)

	authService := service.NewAuthService(userRepo, tokens)
	userService := service.NewUserService(userRepo, tokens)
	geoService := service.NewGeoService(geocoder, directions)

	limiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst)
	defer limiter.Stop()

	// 5. Router & HTTP Server
	router := api.NewRouter(authService, userService, geoService, tokens, userRepo, collector, limiter)

	server := &http.Server{
		Addr:         ":" + cfg.ListenPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", slog.String("port", cfg.ListenPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", cfg.ListenPort, err)
		}
	}()

	<-stop

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	slog.Info("server stopped gracefully")
}
