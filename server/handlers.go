package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/quote-tender/backend/quote"
)

// Handlers carries the shared dependencies of the HTTP endpoints.
type Handlers struct {
	db       *sql.DB
	store    *quote.Store
	location string
	started  time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(db *sql.DB, store *quote.Store, location string) *Handlers {
	return &Handlers{db: db, store: store, location: location, started: time.Now().UTC()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks: the
// database must answer and the quote document must be readable.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error {
			if h.db == nil {
				return nil
			}
			return h.db.PingContext(r.Context())
		}},
		{"quote_store", func() error {
			_, err := h.store.ReadAllRaw(r.Context(), h.location)
			return err
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStatus reports store counts and uptime.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ReadAllRaw(r.Context(), h.location)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	hidden := 0
	for _, rec := range records {
		if rec.Hidden {
			hidden++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location":       h.location,
		"quotes":         len(records),
		"hidden":         hidden,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// HandleQuotesList returns the visible quotes in insertion order. With
// ?include_hidden=1 the raw sequence is returned, hidden records included.
func (h *Handlers) HandleQuotesList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var (
		records []quote.Record
		err     error
	)
	if r.URL.Query().Get("include_hidden") == "1" {
		records, err = h.store.ReadAllRaw(r.Context(), h.location)
	} else {
		records, err = h.store.ReadAll(r.Context(), h.location)
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		records, err = h.store.Search(r.Context(), h.location, q)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleQuoteRandom returns one random visible quote, or 404 when the store
// is empty.
func (h *Handlers) HandleQuoteRandom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rec, err := h.store.Random(r.Context(), h.location)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no quotes"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
