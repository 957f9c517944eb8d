package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/Diegogtz03/kofy-app/internal/credentials"
	"github.com/Diegogtz03/kofy-app/internal/prescriptions"
	"github.com/Diegogtz03/kofy-app/internal/reminders"
	"github.com/Diegogtz03/kofy-app/internal/session"
	"github.com/Diegogtz03/kofy-app/internal/visits"
	"github.com/Diegogtz03/kofy-app/pkg/config"
	"github.com/Diegogtz03/kofy-app/pkg/database"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/monitoring"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

func main() {
	// Load .env file if present, real environment wins
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateSchema(ctx); err != nil {
		cancel()
		appLogger.WithError(err).Fatal("Failed to create database schema")
	}

	// Initialize stores
	visitStore := visits.NewStore(db, appLogger)
	reminderStore := reminders.NewStore(db, appLogger)
	credentialStore := credentials.NewStore(db, appLogger)

	// Load stored credentials; an empty value means the backend will answer
	// unauthorized until the user signs in again
	creds := &types.Credentials{}
	if stored, err := credentialStore.Load(ctx); err != nil {
		if types.IsType(err, types.ErrorTypeNotFound) {
			appLogger.Info("No stored credentials, starting unauthenticated")
		} else {
			appLogger.WithError(err).Fatal("Failed to load credentials")
		}
	} else {
		creds = stored
		appLogger.WithField("user_id", creds.UserID).Info("Loaded stored credentials")
	}
	cancel()

	// Initialize remote clients
	backendClient := session.NewClient(&cfg.Backend, appLogger)
	notificationGateway := reminders.NewGateway(&cfg.Notifications, appLogger)

	// Initialize domain services
	controller := session.NewController(backendClient, visitStore, *creds, appLogger)
	reminderScheduler := reminders.NewScheduler(notificationGateway, reminderStore, appLogger)
	ingestor := prescriptions.NewIngestor(backendClient, visitStore, *creds, appLogger)

	// Start the expired-reminder sweeper
	sweeper := reminders.NewSweeper(reminderScheduler, cfg.Notifications.PurgeSchedule, appLogger)
	if err := sweeper.Start(); err != nil {
		appLogger.WithError(err).Fatal("Failed to start reminder sweeper")
	}

	// Initialize handlers
	handlers := session.NewHandlers(controller, visitStore, reminderScheduler, ingestor, appLogger)

	// Setup router
	router := mux.NewRouter()

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	handlers.RegisterRoutes(apiRouter)

	// Add middleware
	router.Use(loggingMiddleware(appLogger))
	router.Use(corsMiddleware)
	if cfg.Monitoring.Enabled {
		router.Use(monitoring.HTTPMiddleware)
		router.Handle(cfg.Monitoring.MetricsPath, monitoring.MetricsHandler()).Methods("GET")
	}

	// Health check endpoint
	router.HandleFunc(cfg.Monitoring.HealthPath, healthCheckHandler(db)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		appLogger.WithField("addr", server.Addr).Info("Starting companion service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down companion service...")
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Error during shutdown")
	}
	appLogger.Info("Companion service stopped")
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.WithFields(map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Info("HTTP Request")
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheckHandler reports service and database health
func healthCheckHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := db.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "service": "companion-service"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "companion-service"}`))
	}
}
