package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage"
)

var (
	_ storage.FactStore       = (*Store)(nil)
	_ storage.AggregateStore  = (*Store)(nil)
	_ storage.StalenessLedger = (*Store)(nil)
)

// Store is an in-process implementation of the fact store, aggregate store
// and staleness ledger. It is used by tests and by the "memory" database type
// for local runs; it honours the same commit rules as the Postgres adapters.
type Store struct {
	mu sync.Mutex

	facts      map[completion.Pair]map[string]completion.Fact
	aggregates map[completion.Pair]map[string]completion.Aggregate
	snapshots  map[completion.Pair]time.Time
	markers    []completion.Marker
	nextID     int64

	nowFn func() time.Time
}

// NewStore creates an empty store using the wall clock.
func NewStore() *Store {
	return &Store{
		facts:      make(map[completion.Pair]map[string]completion.Fact),
		aggregates: make(map[completion.Pair]map[string]completion.Aggregate),
		snapshots:  make(map[completion.Pair]time.Time),
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// SetClock replaces the time source used for read and marker timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = now
}

// SaveFact inserts or overwrites the fact for (learner, block).
func (s *Store) SaveFact(ctx context.Context, fact completion.Fact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := completion.Pair{LearnerID: fact.LearnerID, CourseID: fact.CourseID}
	if s.facts[pair] == nil {
		s.facts[pair] = make(map[string]completion.Fact)
	}
	if fact.ModifiedAt.IsZero() {
		fact.ModifiedAt = s.nowFn()
	}
	s.facts[pair][fact.BlockID] = fact
	return nil
}

// FactsFor returns a copy of the pair's facts.
func (s *Store) FactsFor(ctx context.Context, pair completion.Pair) (completion.FactSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return completion.FactSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := completion.FactSnapshot{
		Facts:  make(map[string]completion.Fact, len(s.facts[pair])),
		ReadAt: s.nowFn(),
	}
	for blockID, fact := range s.facts[pair] {
		snapshot.Facts[blockID] = fact
	}
	return snapshot, nil
}

// LoadAggregates returns a copy of the pair's rows.
func (s *Store) LoadAggregates(ctx context.Context, pair completion.Pair) (map[string]completion.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]completion.Aggregate, len(s.aggregates[pair]))
	for blockID, agg := range s.aggregates[pair] {
		out[blockID] = agg
	}
	return out, nil
}

// CommitRun applies all rows of a run at once, skipping runs older than the
// last committed snapshot for the pair. Prior is read under the same lock.
func (s *Store) CommitRun(ctx context.Context, pair completion.Pair, snapshotAt time.Time, aggregates []completion.Aggregate) (storage.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.CommitResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if durable, ok := s.snapshots[pair]; ok && snapshotAt.Before(durable) {
		slog.Warn("[MemoryStore] Skipping stale commit",
			"pair", pair.String(),
			"snapshot_at", snapshotAt,
			"durable_snapshot_at", durable,
		)
		return storage.CommitResult{}, nil
	}

	stored := s.aggregates[pair]
	if stored == nil {
		stored = make(map[string]completion.Aggregate, len(aggregates))
		s.aggregates[pair] = stored
	}
	prior := make(map[string]completion.Aggregate, len(stored))
	for blockID, agg := range stored {
		prior[blockID] = agg
	}

	rows := storage.Preserve(prior, aggregates)
	for _, agg := range rows {
		stored[agg.BlockID] = agg
	}
	s.snapshots[pair] = snapshotAt
	return storage.CommitResult{Applied: true, Prior: prior, Rows: rows}, nil
}

// DeleteAggregates removes the named rows of a pair.
func (s *Store) DeleteAggregates(ctx context.Context, pair completion.Pair, blockIDs []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range blockIDs {
		if _, ok := s.aggregates[pair][id]; ok {
			delete(s.aggregates[pair], id)
			deleted++
		}
	}
	return deleted, nil
}

// MarkStale appends a marker stamped with the store clock.
func (s *Store) MarkStale(ctx context.Context, pair completion.Pair, blockID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.markers = append(s.markers, completion.Marker{
		ID:        s.nextID,
		LearnerID: pair.LearnerID,
		CourseID:  pair.CourseID,
		BlockID:   blockID,
		CreatedAt: s.nowFn(),
	})
	return nil
}

// SelectBatch returns distinct pairs ordered by their oldest unresolved marker.
func (s *Store) SelectBatch(ctx context.Context, limit int) ([]completion.Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	oldest := make(map[completion.Pair]completion.Marker)
	for _, m := range s.markers {
		if m.Resolved {
			continue
		}
		cur, ok := oldest[m.Pair()]
		if !ok || m.CreatedAt.Before(cur.CreatedAt) || (m.CreatedAt.Equal(cur.CreatedAt) && m.ID < cur.ID) {
			oldest[m.Pair()] = m
		}
	}

	firsts := make([]completion.Marker, 0, len(oldest))
	for _, m := range oldest {
		firsts = append(firsts, m)
	}
	sort.Slice(firsts, func(i, j int) bool {
		if firsts[i].CreatedAt.Equal(firsts[j].CreatedAt) {
			return firsts[i].ID < firsts[j].ID
		}
		return firsts[i].CreatedAt.Before(firsts[j].CreatedAt)
	})

	pairs := make([]completion.Pair, 0, len(firsts))
	for _, m := range firsts {
		if limit > 0 && len(pairs) >= limit {
			break
		}
		pairs = append(pairs, m.Pair())
	}
	return pairs, nil
}

// Resolve marks matching markers resolved.
func (s *Store) Resolve(ctx context.Context, pair completion.Pair, notBefore time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	var resolved int64
	for i := range s.markers {
		m := &s.markers[i]
		if m.Resolved || m.Pair() != pair || m.CreatedAt.After(notBefore) {
			continue
		}
		m.Resolved = true
		m.ResolvedAt = now
		resolved++
	}
	return resolved, nil
}

// PurgeResolved drops resolved markers resolved before olderThan.
func (s *Store) PurgeResolved(ctx context.Context, olderThan time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.markers[:0]
	var purged int64
	for _, m := range s.markers {
		if m.Resolved && m.ResolvedAt.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, m)
	}
	s.markers = kept
	return purged, nil
}

// HasUnresolved reports whether the pair has any unresolved marker.
func (s *Store) HasUnresolved(ctx context.Context, pair completion.Pair) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.markers {
		if !m.Resolved && m.Pair() == pair {
			return true, nil
		}
	}
	return false, nil
}

// Markers returns a copy of every marker, resolved or not.
func (s *Store) Markers() []completion.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]completion.Marker(nil), s.markers...)
}
