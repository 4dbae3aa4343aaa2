package history

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/quorum/internal/domain"
)

const (
	segmentLimit = 100

	walPrefix         = "decision_"
	decisionKeyPrefix = "decision:"
)

// WALStore persists history in a write-ahead log. Old segments are pruned by the WAL,
// reads are capped to the last limit records.
type WALStore struct {
	wal   *gowal.Wal
	limit int
	mu    sync.RWMutex
}

// NewWALStore opens or creates a WAL in dir.
func NewWALStore(dir string, limit int) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// enough segments that pruning never eats into the retained window
	maxSegments := limit/segmentLimit + 2

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           walPrefix,
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init history WAL")
	}

	return &WALStore{wal: wal, limit: limit}, nil
}

// decisionKey embeds the log index so it can be recovered while iterating.
func decisionKey(index uint64) string {
	return fmt.Sprintf("%s%020d:%s", decisionKeyPrefix, index, uuid.NewString())
}

func parseDecisionKey(key string) (uint64, bool) {
	rest, ok := strings.CutPrefix(key, decisionKeyPrefix)
	if !ok {
		return 0, false
	}
	raw, _, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, false
	}
	idx, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// Append writes rec at the next WAL index.
func (s *WALStore) Append(rec domain.DecisionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal decision record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return ErrNotInitialized
	}

	next := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(next, decisionKey(next), payload); err != nil {
		return errors.Wrap(err, "write decision record")
	}

	return nil
}

// List returns the last limit records, most recent last.
func (s *WALStore) List() ([]domain.DecisionRecord, error) {
	events, err := s.EventsAfter(0)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DecisionRecord, 0, len(events))
	for _, e := range events {
		out = append(out, e.Record)
	}
	return out, nil
}

// EventsAfter returns retained records written after index, oldest first.
func (s *WALStore) EventsAfter(index uint64) ([]domain.DecisionEventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal == nil {
		return nil, ErrNotInitialized
	}

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	// records older than the window are ignored even if their segment survived
	floor := index
	if current > uint64(s.limit) && current-uint64(s.limit) > floor {
		floor = current - uint64(s.limit)
	}

	var records []domain.DecisionEventRecord
	for msg := range s.wal.Iterator() {
		idx, ok := parseDecisionKey(msg.Key)
		if !ok || idx <= floor {
			continue
		}

		var rec domain.DecisionRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			return nil, errors.Wrapf(err, "decode decision record %d", idx)
		}
		records = append(records, domain.DecisionEventRecord{Index: idx, Record: rec})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal == nil {
		return 0
	}
	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return ErrNotInitialized
	}

	err := s.wal.Close()
	s.wal = nil
	return err
}
