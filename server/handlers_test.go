package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/onnwee/quote-tender/backend/quote"
	"github.com/onnwee/quote-tender/backend/telemetry"
	"github.com/onnwee/quote-tender/backend/testutil"
)

func TestMain(m *testing.M) {
	telemetry.Init()
	os.Exit(m.Run())
}

func strp(s string) *string { return &s }

func newTestServer(t *testing.T) (*quote.Store, http.Handler) {
	t.Helper()
	store := quote.NewStore(testutil.NewMemDocStore())
	return store, NewMux(nil, store, "quotes")
}

func seedQuotes(t *testing.T, store *quote.Store, texts ...string) {
	t.Helper()
	for _, text := range texts {
		if _, err := store.Add(context.Background(), "quotes", quote.Record{Text: strp(text)}); err != nil {
			t.Fatal(err)
		}
	}
}

func doRequest(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("no correlation id header")
	}
}

func TestHealthzReusesCorrelationID(t *testing.T) {
	_, h := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("correlation id = %q, want caller's id", got)
	}
}

func TestReadyz(t *testing.T) {
	_, h := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d: %s", rec.Code, rec.Body)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestReadyzStoreFailure(t *testing.T) {
	docs := testutil.NewMemDocStore()
	docs.FailGets = 4
	h := NewMux(nil, quote.NewStore(docs), "quotes")
	rec := doRequest(t, h, http.MethodGet, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["failed_check"] != "quote_store" {
		t.Errorf("failed_check = %q", body["failed_check"])
	}
}

func TestStatus(t *testing.T) {
	store, h := newTestServer(t)
	seedQuotes(t, store, "one", "two", "three")
	if _, err := store.Hide(context.Background(), "quotes", "2"); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["quotes"].(float64) != 3 || body["hidden"].(float64) != 1 {
		t.Errorf("status body = %v", body)
	}
}

func TestQuotesList(t *testing.T) {
	store, h := newTestServer(t)
	seedQuotes(t, store, "cake is a lie", "hello there")
	if _, err := store.Hide(context.Background(), "quotes", "2"); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodGet, "/quotes")
	if rec.Code != http.StatusOK {
		t.Fatalf("quotes = %d", rec.Code)
	}
	var records []quote.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != "1" {
		t.Errorf("visible list = %+v", records)
	}

	rec = doRequest(t, h, http.MethodGet, "/quotes?include_hidden=1")
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("raw list has %d records, want 2", len(records))
	}

	rec = doRequest(t, h, http.MethodGet, "/quotes?q=cake")
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || *records[0].Text != "cake is a lie" {
		t.Errorf("search list = %+v", records)
	}

	rec = doRequest(t, h, http.MethodPost, "/quotes")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /quotes = %d", rec.Code)
	}
}

func TestQuoteRandom(t *testing.T) {
	store, h := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/quotes/random")
	if rec.Code != http.StatusNotFound {
		t.Errorf("random on empty store = %d, want 404", rec.Code)
	}

	seedQuotes(t, store, "only one")
	rec = doRequest(t, h, http.MethodGet, "/quotes/random")
	if rec.Code != http.StatusOK {
		t.Fatalf("random = %d", rec.Code)
	}
	var r quote.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatal(err)
	}
	if r.Text == nil || *r.Text != "only one" {
		t.Errorf("random = %+v", r)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}
}
