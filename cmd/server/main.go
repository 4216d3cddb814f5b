/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the inconvenience allowance claims server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (.env + environment), then apply command-line flags
  2. Build the logger
  3. Open the SQLite store (migrations run on open)
  4. Start the notification dispatcher
  5. Import the calendar file, load a demo scenario if asked
  6. Configure HTTP router and serve with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (overrides PORT)
  -db        SQLite database path (overrides DATABASE_PATH)
             Use ":memory:" for in-memory database
  -calendar  JSON calendar to import (overrides CALENDAR_FILE)
  -scenario  Demo scenario to load into an empty database
  -dev       Development mode: scenario routes, fallback JWT secret

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM, or when the listener fails:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Drain queued notifications
  4. Close database connection

  Startup failures after the store is open take the same path: run returns
  the error and main exits only once the deferred cleanup has finished.

EXAMPLES:
  # Demo with in-memory database
  ./server -dev -db=":memory:" -scenario=approval-pipeline

  # Production
  JWT_SECRET=... ./server -db="./data/allowance.db" -calendar=./calendar-2025.json

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/api"
	"github.com/sarahuu/EGBIN-SSP/config"
	"github.com/sarahuu/EGBIN-SSP/factory"
	"github.com/sarahuu/EGBIN-SSP/notify"
	"github.com/sarahuu/EGBIN-SSP/store/sqlite"
)

const devSecret = "dev-only-secret"

type options struct {
	port         int
	dbPath       string
	calendarFile string
	scenario     string
	dev          bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags
	var opts options
	flag.IntVar(&opts.port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&opts.dbPath, "db", cfg.DatabasePath, "SQLite database path")
	flag.StringVar(&opts.calendarFile, "calendar", cfg.CalendarFile, "JSON calendar to import on start")
	flag.StringVar(&opts.scenario, "scenario", "", "Demo scenario to load into an empty database")
	flag.BoolVar(&opts.dev, "dev", false, "Development mode")
	flag.Parse()

	log := cfg.Logger()

	if cfg.JWTSecret == "" {
		if !opts.dev {
			log.Fatal("JWT_SECRET is required (or run with -dev)")
		}
		cfg.JWTSecret = devSecret
		log.Warn("Using the development JWT secret")
	}

	if err := run(cfg, opts, log); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config, opts options, log *logrus.Logger) error {
	// Initialize store
	store, err := sqlite.New(opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Notifications
	dispatcher := notify.NewDispatcher(store.Directory(), notify.LogSender{Log: log}, cfg.NotifyBuffer, log)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Services
	allocator := allowance.NewAllocator(cfg.Rates)
	requests := allowance.NewRequestService(store, allowance.NewBulkValidator(allocator, cfg.UnknownDatePolicy), dispatcher, log)
	calendar := allowance.NewCalendarService(store, allocator, log)
	auth := api.NewAuthenticator(cfg.JWTSecret, store.Directory())
	handler := api.NewHandler(store, requests, calendar, auth, log)

	ctx := context.Background()
	if opts.calendarFile != "" {
		days, err := factory.NewCalendarFactory().LoadFile(opts.calendarFile)
		if err != nil {
			return fmt.Errorf("failed to read calendar: %w", err)
		}
		added, err := calendar.ImportDays(ctx, days)
		if err != nil {
			return fmt.Errorf("failed to import calendar: %w", err)
		}
		log.WithFields(logrus.Fields{"file": opts.calendarFile, "added": added}).Info("Calendar imported")
	}
	if opts.scenario != "" {
		loaded, err := handler.Seed(ctx, opts.scenario)
		if err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
		for _, e := range loaded.Employees {
			log.WithFields(logrus.Fields{"employee": e.ID, "name": e.Name, "role": e.Role}).Infof("Token: %s", e.Token)
		}
	}

	// Create router
	router := api.NewRouter(handler, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Scenarios:      opts.dev,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on http://localhost:%d", opts.port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
	return nil
}
