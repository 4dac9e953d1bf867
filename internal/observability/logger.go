package observability

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lexiqai/voice-catalog/internal/voices"
)

var (
	globalLogger zerolog.Logger
	initialized  bool
)

// InitLogger initializes the global structured logger
func InitLogger(level string, pretty bool) {
	if initialized {
		return
	}

	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		// Pretty console output for development
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		globalLogger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	log.Logger = globalLogger
	initialized = true
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	if !initialized {
		InitLogger("info", false)
	}
	return globalLogger
}

// WithCorrelationID creates a logger with a correlation ID
func WithCorrelationID(correlationID string) zerolog.Logger {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}
	return GetLogger().With().Str("correlation_id", correlationID).Logger()
}

// NewCorrelationID generates a new correlation ID
func NewCorrelationID() string {
	return uuid.New().String()
}

// CatalogLogger logs catalog events. Lookups and successful transitions go
// to debug, failures to warn.
type CatalogLogger struct {
	logger zerolog.Logger
}

// NewCatalogLogger creates a catalog observer writing to logger
func NewCatalogLogger(logger zerolog.Logger) *CatalogLogger {
	return &CatalogLogger{logger: logger.With().Str("component", "catalog").Logger()}
}

// Observe implements voices.Observer
func (l *CatalogLogger) Observe(e voices.Event) {
	var ev *zerolog.Event
	switch {
	case e.Err != nil:
		ev = l.logger.Warn().Err(e.Err)
	case e.Kind == voices.EventRegistered:
		ev = l.logger.Debug().Dur("latency", e.Latency)
	default:
		ev = l.logger.Debug()
	}
	ev.Str("event", e.Kind.String()).
		Str("locale", e.Locale.String()).
		Msg("Voice catalog event")
}
