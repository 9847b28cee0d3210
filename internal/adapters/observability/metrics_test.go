package observability_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dealership/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors show up in the exposition
	observability.ObserveHTTP("/v1/dealers", "GET", 200, 12*time.Millisecond)
	observability.ObserveExternal("cloudfn", "/dealerships/get", 0, 3*time.Millisecond)
	observability.ObserveMappingError("review")
	observability.ObserveSentiment("neutral", true)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"dealership_http_requests_total",
		"dealership_external_requests_total",
		"dealership_mapping_errors_total",
		"dealership_sentiment_results_total",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	if got := observability.NewLogger("prod", "warn").GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("level: got %s, want warn", got)
	}
	if got := observability.NewLogger("dev", "bogus").GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("fallback level: got %s, want info", got)
	}
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := observability.NewLoggerTo(&buf, "prod", "debug")
	l.Debug().Int64("dealer_id", 5).Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"service":"dealership"`) || !strings.Contains(out, `"dealer_id":5`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}
