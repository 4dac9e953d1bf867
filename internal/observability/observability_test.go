package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-catalog/internal/voices"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "healthy" || status.Service != "voice-catalog" {
		t.Errorf("Unexpected health status %+v", status)
	}
}

func TestReadinessHandler(t *testing.T) {
	ok := func(ctx context.Context) (bool, error) { return true, nil }
	failing := func(ctx context.Context) (bool, error) { return false, errors.New("no voices loaded") }

	tests := []struct {
		name         string
		checks       []NamedCheck
		expectedCode int
		expectedStat string
	}{
		{"no checks", nil, http.StatusOK, "ready"},
		{"all healthy", []NamedCheck{{"catalog", ok}, {"engine", ok}}, http.StatusOK, "ready"},
		{"one failing", []NamedCheck{{"catalog", failing}, {"engine", ok}}, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler(tt.checks...)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.expectedCode {
				t.Errorf("Expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if status.Status != tt.expectedStat {
				t.Errorf("Expected status %q, got %q", tt.expectedStat, status.Status)
			}
			if len(status.Dependencies) != len(tt.checks) {
				t.Errorf("Expected %d dependencies, got %d", len(tt.checks), len(status.Dependencies))
			}
			if dep, ok := status.Dependencies["catalog"]; ok && dep.Status == "unhealthy" && dep.Message != "no voices loaded" {
				t.Errorf("Expected failure message, got %q", dep.Message)
			}
		})
	}
}

func TestCatalogMetrics(t *testing.T) {
	m := NewCatalogMetrics()
	l := voices.NewLocale("de", "DE", "metrics")

	beforeHits := testutil.ToFloat64(lookups.WithLabelValues("hit"))
	beforeMiss := testutil.ToFloat64(lookups.WithLabelValues("miss"))
	beforeRegistered := testutil.ToFloat64(registeredVoices)

	m.Observe(voices.Event{Kind: voices.EventLookupHit, Locale: l})
	m.Observe(voices.Event{Kind: voices.EventRegistered, Locale: l, Latency: 20 * time.Millisecond})
	m.Observe(voices.Event{Kind: voices.EventRegisterFailed, Locale: l, Err: errors.New("boom")})
	m.Observe(voices.Event{Kind: voices.EventLookupMiss, Locale: l})

	if got := testutil.ToFloat64(lookups.WithLabelValues("hit")) - beforeHits; got != 1 {
		t.Errorf("Expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(lookups.WithLabelValues("miss")) - beforeMiss; got != 1 {
		t.Errorf("Expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(registrations.WithLabelValues("de-DE-metrics", "success")); got != 1 {
		t.Errorf("Expected 1 successful registration, got %v", got)
	}
	if got := testutil.ToFloat64(registrations.WithLabelValues("de-DE-metrics", "error")); got != 1 {
		t.Errorf("Expected 1 failed registration, got %v", got)
	}
	if got := testutil.ToFloat64(registeredVoices) - beforeRegistered; got != 1 {
		t.Errorf("Expected registered gauge to rise by 1, got %v", got)
	}

	m.Observe(voices.Event{Kind: voices.EventUnregistered, Locale: l})
	if got := testutil.ToFloat64(registeredVoices) - beforeRegistered; got != 0 {
		t.Errorf("Expected registered gauge back to start, got %v", got)
	}
}

func TestCatalogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCatalogLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	logger.Observe(voices.Event{
		Kind:   voices.EventRegisterFailed,
		Locale: voices.NewLocale("en", "US", ""),
		Err:    errors.New("model missing"),
	})

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"event":"register_failed"`, `"locale":"en-US"`, "model missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log line to contain %s, got %s", want, out)
		}
	}
}

func TestWithCorrelationID(t *testing.T) {
	if NewCorrelationID() == NewCorrelationID() {
		t.Error("Expected unique correlation IDs")
	}
	// should not panic with an empty id
	l := WithCorrelationID("")
	l.Debug().Msg("test")
}
