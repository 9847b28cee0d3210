package nlu_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/go-sdk-core/v5/core"

	"dealership/internal/adapters/nlu"
	"dealership/internal/domain"
)

func newAnalyzer(t *testing.T, url string, timeout time.Duration) *nlu.Analyzer {
	t.Helper()
	a, err := nlu.NewWithAuthenticator(url, "", &core.NoAuthAuthenticator{}, timeout)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return a
}

func TestAnalyzeSentiment_ReturnsDocumentLabel(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if r.URL.Query().Get("version") != nlu.DefaultVersion {
			t.Errorf("version: got %q", r.URL.Query().Get("version"))
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"language":"en","sentiment":{"document":{"score":0.93,"label":"Positive"}}}`))
	}))
	defer ts.Close()

	a := newAnalyzer(t, ts.URL, time.Second)
	got := a.AnalyzeSentiment(context.Background(), "Great car, friendly staff")
	if got != domain.SentimentPositive {
		t.Fatalf("got %q, want positive", got)
	}

	// the review text is both the analyzed text and the sentiment target
	if body["text"] != "Great car, friendly staff" {
		t.Fatalf("unexpected text in request: %+v", body)
	}
	features, _ := body["features"].(map[string]any)
	sentiment, _ := features["sentiment"].(map[string]any)
	targets, _ := sentiment["targets"].([]any)
	if len(targets) != 1 || targets[0] != "Great car, friendly staff" {
		t.Fatalf("unexpected sentiment options: %+v", sentiment)
	}
}

func TestAnalyzeSentiment_FailuresAreNeutral(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":500,"error":"boom"}`))
		}},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"error":"Unauthorized"}`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sentiment": {"document": `))
		}},
		{"missing label", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"language":"en"}`))
		}},
		{"unknown label", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sentiment":{"document":{"score":0.1,"label":"mixed"}}}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			a := newAnalyzer(t, ts.URL, 100*time.Millisecond)
			if got := a.AnalyzeSentiment(context.Background(), "It was fine I guess"); got != domain.SentimentNeutral {
				t.Fatalf("got %q, want neutral", got)
			}
		})
	}
}

func TestAnalyzeSentiment_EmptyTextSkipsService(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	a := newAnalyzer(t, ts.URL, time.Second)
	if got := a.AnalyzeSentiment(context.Background(), "   "); got != domain.SentimentNeutral {
		t.Fatalf("got %q, want neutral", got)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no calls for empty text, got %d", hits)
	}
}

func TestAnalyzeSentiment_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	a := newAnalyzer(t, url, time.Second)
	if got := a.AnalyzeSentiment(context.Background(), "Terrible service"); got != domain.SentimentNeutral {
		t.Fatalf("got %q, want neutral", got)
	}
}

func TestNew_RequiresKeyAndURL(t *testing.T) {
	if _, err := nlu.New("https://nlu.example.com", "", "", time.Second); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := nlu.New("", "key", "", time.Second); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
