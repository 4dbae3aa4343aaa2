// Package history keeps the bounded, append-only log of decision records.
package history

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/quorum/internal/domain"
)

const (
	// DefaultLimit is the number of records retained when no limit is configured.
	DefaultLimit = 100
	// DefaultDir is the directory used by file-backed stores when none is configured.
	DefaultDir = "./data/history"

	BackendMemory = "memory"
	BackendJSON   = "json"
	BackendWAL    = "wal"
)

// ErrNotInitialized is returned by methods of a nil or closed store.
var ErrNotInitialized = errors.New("history store is not initialized")

// Store is a bounded append-only log. Appending past the limit drops the oldest records.
type Store interface {
	Append(rec domain.DecisionRecord) error
	// List returns retained records, most recent last.
	List() ([]domain.DecisionRecord, error)
	Close() error
}

// EventSource is a store that can replay records with their log index.
type EventSource interface {
	EventsAfter(index uint64) ([]domain.DecisionEventRecord, error)
	CurrentIndex() uint64
}

// Config selects and sizes a backend.
type Config struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	Limit   int    `yaml:"limit"`
}

// Open creates the store described by cfg.
// QUORUM_HISTORY_DIR overrides an empty Dir.
func Open(cfg Config) (Store, error) {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	dir := cfg.Dir
	if dir == "" {
		dir = os.Getenv("QUORUM_HISTORY_DIR")
	}
	if dir == "" {
		dir = DefaultDir
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemory(limit), nil
	case BackendJSON:
		return NewJSONFileStore(dir, limit)
	case BackendWAL:
		return NewWALStore(dir, limit)
	default:
		return nil, errors.Errorf("unknown history backend %q", cfg.Backend)
	}
}

// ring is a bounded buffer of indexed records shared by the in-process stores.
type ring struct {
	limit   int
	entries []domain.DecisionEventRecord
	last    uint64
}

func newRing(limit int) *ring {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &ring{limit: limit, entries: make([]domain.DecisionEventRecord, 0, limit)}
}

func (r *ring) push(rec domain.DecisionRecord) {
	r.last++
	r.entries = append(r.entries, domain.DecisionEventRecord{Index: r.last, Record: rec.Clone()})
	if over := len(r.entries) - r.limit; over > 0 {
		// copy so the dropped prefix is released
		r.entries = append(make([]domain.DecisionEventRecord, 0, r.limit), r.entries[over:]...)
	}
}

func (r *ring) records() []domain.DecisionRecord {
	out := make([]domain.DecisionRecord, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Record.Clone())
	}
	return out
}

func (r *ring) after(index uint64) []domain.DecisionEventRecord {
	var out []domain.DecisionEventRecord
	for _, e := range r.entries {
		if e.Index > index {
			out = append(out, domain.DecisionEventRecord{Index: e.Index, Record: e.Record.Clone()})
		}
	}
	return out
}
