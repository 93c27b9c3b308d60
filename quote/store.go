package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/onnwee/quote-tender/backend/telemetry"
)

// ErrStoreUnavailable wraps backing storage failures that must be surfaced to
// the caller as a failed confirmation rather than swallowed.
var ErrStoreUnavailable = errors.New("quote store unavailable")

// EditFields names the mutable fields of a record for Edit. A nil field is
// left unchanged. Id and scribe fields are immutable by contract.
type EditFields struct {
	Text        *string
	SpeakerName *string
	SpeakerID   *string
}

// Store provides CRUD over quote documents. Read-modify-write sequences are
// serialized per location so concurrent adds never assign duplicate ids and
// no writer clobbers another. Cross-location operations do not block each
// other.
type Store struct {
	docs DocumentStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore returns a Store backed by the given document store.
func NewStore(docs DocumentStore) *Store {
	return &Store{docs: docs, locks: make(map[string]*sync.Mutex)}
}

func (s *Store) lock(location string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[location]
	if !ok {
		l = &sync.Mutex{}
		s.locks[location] = l
	}
	return l
}

// getDoc reads and decodes a document with one bounded retry on transient
// I/O errors.
func (s *Store) getDoc(ctx context.Context, location string) ([]Record, error) {
	body, err := s.docs.Get(ctx, location)
	if err != nil {
		body, err = s.docs.Get(ctx, location)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	telemetry.StoreReads.Inc()
	records, err := decodeDocument(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

func (s *Store) putDoc(ctx context.Context, location string, records []Record) error {
	body, err := encodeDocument(records)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.docs.Put(ctx, location, body); err != nil {
		if err = s.docs.Put(ctx, location, body); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	telemetry.StoreWrites.Inc()
	telemetry.SetQuoteCount(location, len(records))
	return nil
}

// ReadAll returns the visible (non-hidden) records at location in insertion
// order. A missing or empty document yields an empty sequence.
func (s *Store) ReadAll(ctx context.Context, location string) ([]Record, error) {
	records, err := s.getDoc(ctx, location)
	if err != nil {
		return nil, err
	}
	visible := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Hidden {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

// ReadAllRaw returns every record at location, hidden ones included.
func (s *Store) ReadAllRaw(ctx context.Context, location string) ([]Record, error) {
	return s.getDoc(ctx, location)
}

// Append appends an already-assembled record. A nil record is a silent no-op.
func (s *Store) Append(ctx context.Context, location string, rec *Record) error {
	if rec == nil {
		return nil
	}
	l := s.lock(location)
	l.Lock()
	defer l.Unlock()
	records, err := s.getDoc(ctx, location)
	if err != nil {
		return err
	}
	return s.putDoc(ctx, location, append(records, *rec))
}

// Add assigns the next id to rec, appends it, and returns the assigned id.
// Id computation and the append happen under the same per-location lock.
func (s *Store) Add(ctx context.Context, location string, rec Record) (string, error) {
	l := s.lock(location)
	l.Lock()
	defer l.Unlock()
	records, err := s.getDoc(ctx, location)
	if err != nil {
		return "", err
	}
	rec.ID = nextID(records)
	if err := s.putDoc(ctx, location, append(records, rec)); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Delete removes the record with the given id. It reports whether a record
// was removed; an absent id is a no-op, not an error.
func (s *Store) Delete(ctx context.Context, location, id string) (bool, error) {
	l := s.lock(location)
	l.Lock()
	defer l.Unlock()
	records, err := s.getDoc(ctx, location)
	if err != nil {
		return false, err
	}
	kept := records[:0]
	found := false
	for _, r := range records {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return false, nil
	}
	return true, s.putDoc(ctx, location, kept)
}

// Edit replaces the named fields on the record with the given id.
func (s *Store) Edit(ctx context.Context, location, id string, fields EditFields) (bool, error) {
	l := s.lock(location)
	l.Lock()
	defer l.Unlock()
	records, err := s.getDoc(ctx, location)
	if err != nil {
		return false, err
	}
	for i := range records {
		if records[i].ID != id {
			continue
		}
		if fields.Text != nil {
			records[i].Text = fields.Text
		}
		if fields.SpeakerName != nil {
			records[i].SpeakerName = fields.SpeakerName
		}
		if fields.SpeakerID != nil {
			records[i].SpeakerID = fields.SpeakerID
		}
		return true, s.putDoc(ctx, location, records)
	}
	return false, nil
}

// Hide flags the record with the given id as hidden without removing it.
// Hidden records are excluded from ReadAll, Random, Search, and GetByID.
func (s *Store) Hide(ctx context.Context, location, id string) (bool, error) {
	l := s.lock(location)
	l.Lock()
	defer l.Unlock()
	records, err := s.getDoc(ctx, location)
	if err != nil {
		return false, err
	}
	for i := range records {
		if records[i].ID == id {
			records[i].Hidden = true
			return true, s.putDoc(ctx, location, records)
		}
	}
	return false, nil
}

// Random returns a uniformly random visible record, or nil when the store
// has none.
func (s *Store) Random(ctx context.Context, location string) (*Record, error) {
	visible, err := s.ReadAll(ctx, location)
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		return nil, nil
	}
	//nolint:gosec // G404: math/rand is sufficient for quote selection, not used for security
	r := visible[rand.Intn(len(visible))]
	return &r, nil
}

// Search returns the visible records whose text or speaker name contains the
// query, case-insensitively, in insertion order.
func (s *Store) Search(ctx context.Context, location, query string) ([]Record, error) {
	visible, err := s.ReadAll(ctx, location)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return visible, nil
	}
	var matches []Record
	for _, r := range visible {
		if r.Text != nil && strings.Contains(strings.ToLower(*r.Text), q) {
			matches = append(matches, r)
			continue
		}
		if r.SpeakerName != nil && strings.Contains(strings.ToLower(*r.SpeakerName), q) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// GetByID returns the visible record with the given id, or nil.
func (s *Store) GetByID(ctx context.Context, location, id string) (*Record, error) {
	visible, err := s.ReadAll(ctx, location)
	if err != nil {
		return nil, err
	}
	for i := range visible {
		if visible[i].ID == id {
			return &visible[i], nil
		}
	}
	return nil, nil
}

// nextID computes the id for a new record: latest numeric id plus one, or
// "1" for an empty store. A latest id that fails to parse is recovered
// locally by restarting at "1"; the condition is logged but never propagated.
func nextID(records []Record) string {
	latest := Latest(records)
	if latest == nil || latest.ID == "" {
		if len(records) > 0 {
			slog.Warn("no parseable quote id in store, assigning id 1", slog.Int("records", len(records)), slog.String("component", "quote_store"))
		}
		return "1"
	}
	n, err := strconv.Atoi(latest.ID)
	if err != nil {
		slog.Warn("latest quote id is not numeric, assigning id 1", slog.String("id", latest.ID), slog.String("component", "quote_store"))
		return "1"
	}
	return strconv.Itoa(n + 1)
}
