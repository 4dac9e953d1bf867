package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-catalog/internal/config"
	"github.com/lexiqai/voice-catalog/internal/events"
	"github.com/lexiqai/voice-catalog/internal/manifest"
	"github.com/lexiqai/voice-catalog/internal/observability"
	"github.com/lexiqai/voice-catalog/internal/resilience"
	"github.com/lexiqai/voice-catalog/internal/rpc"
	"github.com/lexiqai/voice-catalog/internal/tts"
	"github.com/lexiqai/voice-catalog/internal/voices"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.WithCorrelationID(observability.NewCorrelationID())

	logger.Info().
		Str("port", cfg.Port).
		Str("grpc_port", cfg.GRPCPort).
		Str("registration_mode", cfg.Policy().String()).
		Str("manifest", cfg.VoiceManifest).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice Catalog Service starting")

	m, err := manifest.Load(cfg.VoiceManifest, cfg.VoiceDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load voice manifest")
	}

	engine := newEngine(cfg, logger)

	observers := voices.Observers{observability.NewCatalogLogger(logger)}
	if cfg.MetricsEnabled {
		observers = append(observers, observability.NewCatalogMetrics())
	}
	var hub *events.Hub
	if cfg.EventsEnabled {
		hub = events.NewHub(logger)
		observers = append(observers, hub)
	}

	catalog := voices.NewCatalog(cfg.Policy(), voices.WithObserver(observers))
	for _, err := range m.Populate(catalog, engine.Register, engine.Unregister) {
		logger.Warn().Err(err).Msg("Voice failed to register")
	}
	logger.Info().
		Int("voices", catalog.Len()).
		Int("registered", catalog.Registered()).
		Msg("Voice catalog populated")

	if cfg.DefaultLocale != "" {
		warmDefault(catalog, cfg.DefaultLocale, logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(
		observability.NamedCheck{Name: "catalog", Check: catalogCheck(catalog)},
		observability.NamedCheck{Name: "engine", Check: engineCheck(cfg, catalog, engine)},
	))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}
	if hub != nil {
		mux.Handle("/events", hub)
		logger.Info().Msg("Catalog event stream enabled at /events")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthSrv := rpc.NewHealthServer(func() bool { return catalog.Len() > 0 }, logger)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		logger.Fatal().Err(err).Str("grpc_port", cfg.GRPCPort).Msg("Failed to listen for gRPC")
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	go healthSrv.Watch(watchCtx, 5*time.Second)

	go func() {
		if err := healthSrv.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server stopped")
		}
	}()

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopWatch()
	healthSrv.Stop()
	if hub != nil {
		hub.Close()
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	releaseVoices(catalog, engine, logger)

	logger.Info().Msg("Server exited gracefully")
}

// voiceEngine is the part of the engine used at shutdown
type voiceEngine interface {
	Loaded() int
	Close() error
}

// releaseVoices closes the catalog, then unloads whatever the engine still holds
func releaseVoices(catalog *voices.Catalog, engine voiceEngine, logger zerolog.Logger) {
	if err := catalog.Close(); err != nil {
		logger.Error().Err(err).Msg("Voices failed to unregister cleanly")
	}
	if n := engine.Loaded(); n > 0 {
		logger.Warn().Int("loaded", n).Msg("Engine still holds voices after catalog close")
		if err := engine.Close(); err != nil {
			logger.Error().Err(err).Msg("Engine failed to unload voices cleanly")
		}
	}
}

func newEngine(cfg *config.Config, logger zerolog.Logger) *tts.FileEngine {
	breaker := resilience.NewCircuitBreaker("voice-engine", cfg.CircuitBreakerMaxFailures, cfg.CircuitBreakerTimeout())
	breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(to))
		logger.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit breaker state changed")
	})

	return tts.NewFileEngine(
		tts.WithLogger(logger),
		tts.WithMaxLoaded(cfg.EngineMaxLoaded),
		tts.WithCircuitBreaker(breaker),
		tts.WithRetry(&resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    cfg.RetryBackoff(),
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		}),
	)
}

// warmDefault loads the default voice so the first request does not pay for it
func warmDefault(catalog *voices.Catalog, locale string, logger zerolog.Logger) {
	l, err := voices.ParseLocale(locale)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid default locale")
		return
	}
	if _, err := catalog.HandleFor(l); err != nil {
		logger.Warn().Err(err).Str("locale", l.String()).Msg("Default voice unavailable")
		return
	}
	logger.Info().Str("locale", l.String()).Msg("Default voice loaded")
}

func catalogCheck(catalog *voices.Catalog) observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		if catalog.Len() == 0 {
			return false, fmt.Errorf("voice catalog is empty")
		}
		return true, nil
	}
}

// engineCheck verifies the loaded voices match the registration policy
func engineCheck(cfg *config.Config, catalog *voices.Catalog, engine *tts.FileEngine) observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		loaded := engine.Loaded()
		if cfg.Policy() == voices.ExclusiveSingle && loaded > 1 {
			return false, fmt.Errorf("%d voices loaded under exclusive registration", loaded)
		}
		if cfg.Policy() == voices.AllRegistered && catalog.Registered() < catalog.Len() {
			return false, fmt.Errorf("%d of %d voices registered", catalog.Registered(), catalog.Len())
		}
		return true, nil
	}
}
