package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/quorum/internal/domain"
)

const jsonFileName = "decisions.json"

// JSONFileStore keeps history as a single JSON array, rewritten in full on every append.
type JSONFileStore struct {
	path string

	mu     sync.RWMutex
	ring   *ring
	closed bool
}

// NewJSONFileStore opens dir/decisions.json, loading any records already there.
func NewJSONFileStore(dir string, limit int) (*JSONFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create history dir")
	}

	s := &JSONFileStore{
		path: filepath.Join(dir, jsonFileName),
		ring: newRing(limit),
	}

	existing, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range existing {
		s.ring.push(rec)
	}

	return s, nil
}

// Path returns the location of the history document.
func (s *JSONFileStore) Path() string {
	return s.path
}

func (s *JSONFileStore) load() ([]domain.DecisionRecord, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read history")
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var records []domain.DecisionRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, errors.Wrap(err, "decode history")
	}

	return records, nil
}

// Append adds rec and rewrites the file via temp file and rename.
// The in-memory view only changes once the file is persisted.
func (s *JSONFileStore) Append(rec domain.DecisionRecord) error {
	if s == nil {
		return ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotInitialized
	}

	next := &ring{limit: s.ring.limit, entries: append([]domain.DecisionEventRecord(nil), s.ring.entries...), last: s.ring.last}
	next.push(rec)

	if err := s.save(next.records()); err != nil {
		return err
	}

	s.ring = next
	return nil
}

func (s *JSONFileStore) save(records []domain.DecisionRecord) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode history")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write history temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist history")
	}

	return nil
}

func (s *JSONFileStore) List() ([]domain.DecisionRecord, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ring.records(), nil
}

// EventsAfter returns retained records appended after index.
// Indexes count from the records found on open.
func (s *JSONFileStore) EventsAfter(index uint64) ([]domain.DecisionEventRecord, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ring.after(index), nil
}

// CurrentIndex returns the index of the latest append.
func (s *JSONFileStore) CurrentIndex() uint64 {
	if s == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ring.last
}

func (s *JSONFileStore) Close() error {
	if s == nil {
		return ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
