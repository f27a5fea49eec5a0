package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"Daybook_V0.1/internal/analysis"
	"Daybook_V0.1/internal/auth"
	"Daybook_V0.1/internal/calendar"
	"Daybook_V0.1/internal/config"
	"Daybook_V0.1/internal/database"
	"Daybook_V0.1/internal/geminiservice"
	"Daybook_V0.1/internal/logger"
	"Daybook_V0.1/internal/schedule"
	"Daybook_V0.1/internal/server"
	"Daybook_V0.1/internal/utility"
	"github.com/rs/zerolog/log"
)

// storeHealth is a document store that can report its health.
type storeHealth interface {
	schedule.DocumentStore
	server.HealthChecker
}

func gracefulShutdown(apiServer *http.Server, hub *utility.Hub, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Close()

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// openStore connects the configured document store. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (storeHealth, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		dbService, err := database.NewService(ctx, cfg.Postgres())
		if err != nil {
			return nil, nil, err
		}
		if err := dbService.Migrate(ctx); err != nil {
			dbService.Close()
			return nil, nil, err
		}
		return dbService, dbService.Close, nil

	case config.StoreRedis:
		docs, err := database.NewRedisDocuments(ctx, cfg.RedisURL, "date")
		if err != nil {
			return nil, nil, err
		}
		return docs, func() { docs.Close() }, nil
	}

	log.Warn().Msg("Using the in-memory document store; schedules are lost on restart")
	return schedule.NewMemoryStore(), func() {}, nil
}

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Logger = logger.New("daybook", cfg.LogLevel)
	cfg.LogSummary(log.Logger)

	ctx := context.Background()

	// 1. Document store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Could not open document store")
	}
	defer closeStore()

	// 2. Generative backend; without a key the analysis routes answer 503
	var gen analysis.Generator
	if cfg.AnalysisEnabled() {
		client, err := geminiservice.NewClient(ctx, geminiservice.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			log.Error().Err(err).Msg("Gemini client unavailable, analysis disabled")
		} else {
			gen = client
			log.Info().Str("model", client.Model()).Msg("Gemini client ready")
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY is not set, analysis disabled")
	}

	trackers, err := analysis.NewTrackers(cfg.FormTrackerSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create form trackers")
	}

	// 3. Calendar reference data
	cal, err := calendar.Load(cfg.CalendarDataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load calendar data")
	}
	log.Info().Int("events", cal.Len()).Msg("Calendar data loaded")

	authenticator := auth.NewAuthenticator(cfg.JWTSecret)
	if !authenticator.Enabled() {
		log.Warn().Msg("AUTH_JWT_SECRET is not set, every request is treated as signed out")
	}

	hub := utility.NewHub()

	apiServer := server.NewServer(server.Deps{
		Port:      cfg.Port,
		Store:     store,
		Schedules: schedule.NewService(store),
		Invoker:   analysis.NewInvoker(gen, cfg.AnalysisTimeout),
		Trackers:  trackers,
		Calendar:  cal,
		Auth:      authenticator,
		Hub:       hub,
		Limiter:   utility.NewIPRateLimiter(cfg.AnalysisRatePerMinute),
		Location:  cfg.Location(),
	})

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, hub, done)

	log.Info().Str("addr", apiServer.Addr).Msg("Server listening")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
