// Package memory implements the tiered key/value memory store backing the
// remember/recall/memoryGet/forget builtins. Ephemeral and session entries
// are held in process; persistent entries are written to SQLite.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	animaotel "github.com/timmeromberg/anima-sub000/internal/otel"
)

var tracer = animaotel.Tracer("anima/memory")

// Entry is a single remembered fact.
type Entry struct {
	ID        string
	Key       string
	Value     string
	Tier      Tier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the interface the interpreter's memory builtins are written
// against.
type Store interface {
	Store(ctx context.Context, key, value string, tier Tier) error
	Get(ctx context.Context, key string) (Entry, bool, error)
	Recall(ctx context.Context, query string, limit int) ([]Entry, error)
	Forget(ctx context.Context, key string) error
}

// TieredStore keeps ephemeral and session entries in memory and, when opened
// with a database path, persistent entries in SQLite. A store created with
// NewInMemory keeps all three tiers in process, which is what the REPL and
// the tests use.
type TieredStore struct {
	mu        sync.RWMutex
	ephemeral map[string]Entry
	session   map[string]Entry

	db *sqliteBackend // nil when running fully in memory
	// fallback persistent tier when no database is attached
	persistent map[string]Entry
}

var _ Store = (*TieredStore)(nil)

// Open creates a store whose persistent tier lives in the SQLite database at
// dbPath. The file and schema are created on first use.
func Open(dbPath string) (*TieredStore, error) {
	backend, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	s := newTiered()
	s.db = backend
	return s, nil
}

// NewInMemory creates a store with no disk backing. Entries in the
// persistent tier still outlive session resets, but not the process.
func NewInMemory() *TieredStore {
	return newTiered()
}

func newTiered() *TieredStore {
	return &TieredStore{
		ephemeral:  make(map[string]Entry),
		session:    make(map[string]Entry),
		persistent: make(map[string]Entry),
	}
}

// Close releases the SQLite handle, if any.
func (s *TieredStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.close()
}

func newEntryID() string {
	return "mem_" + uuid.New().String()[:12]
}

// Store writes key=value into the given tier. A key is unique across tiers:
// storing it again, even in a different tier, replaces the old entry.
func (s *TieredStore) Store(ctx context.Context, key, value string, tier Tier) error {
	ctx, span := tracer.Start(ctx, "memory.store", trace.WithAttributes(
		attribute.String("memory.key", key),
		attribute.String("memory.tier", tier.String()),
	))
	defer span.End()

	now := time.Now().UTC()
	entry := Entry{
		ID:        newEntryID(),
		Key:       key,
		Value:     value,
		Tier:      tier,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	if prev, ok := s.lookupLocked(key); ok {
		entry.ID = prev.ID
		entry.CreatedAt = prev.CreatedAt
	}
	delete(s.ephemeral, key)
	delete(s.session, key)
	delete(s.persistent, key)
	switch tier {
	case TierEphemeral:
		s.ephemeral[key] = entry
	case TierSession:
		s.session[key] = entry
	case TierPersistent:
		if s.db == nil {
			s.persistent[key] = entry
		}
	}
	s.mu.Unlock()

	if s.db != nil {
		if tier == TierPersistent {
			return s.db.upsert(ctx, entry)
		}
		// the key may have been persistent before this write
		return s.db.delete(ctx, key)
	}
	return nil
}

// Get returns the entry stored under key, checking the shortest-lived tier
// first. The second result reports whether the key was found.
func (s *TieredStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	ctx, span := tracer.Start(ctx, "memory.get", trace.WithAttributes(
		attribute.String("memory.key", key),
	))
	defer span.End()

	s.mu.RLock()
	entry, ok := s.lookupLocked(key)
	s.mu.RUnlock()
	if ok {
		return entry, true, nil
	}
	if s.db != nil {
		return s.db.get(ctx, key)
	}
	return Entry{}, false, nil
}

func (s *TieredStore) lookupLocked(key string) (Entry, bool) {
	if e, ok := s.ephemeral[key]; ok {
		return e, true
	}
	if e, ok := s.session[key]; ok {
		return e, true
	}
	e, ok := s.persistent[key]
	return e, ok
}

// Forget removes key from every tier. Forgetting an absent key is not an
// error.
func (s *TieredStore) Forget(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "memory.forget", trace.WithAttributes(
		attribute.String("memory.key", key),
	))
	defer span.End()

	s.mu.Lock()
	delete(s.ephemeral, key)
	delete(s.session, key)
	delete(s.persistent, key)
	s.mu.Unlock()

	if s.db != nil {
		return s.db.delete(ctx, key)
	}
	return nil
}

// Recall returns up to limit entries ranked against query. Ranking blends
// keyword overlap with the query, recency, and tier durability; entries with
// no keyword overlap at all are dropped.
func (s *TieredStore) Recall(ctx context.Context, query string, limit int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "memory.recall", trace.WithAttributes(
		attribute.String("memory.query", query),
		attribute.Int("memory.limit", limit),
	))
	defer span.End()

	if limit <= 0 {
		limit = 5
	}

	candidates := s.snapshot()
	if s.db != nil {
		persisted, err := s.db.all(ctx)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, persisted...)
	}

	scored := rankEntries(query, candidates)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	span.SetAttributes(attribute.Int("memory.results", len(scored)))
	return scored, nil
}

func (s *TieredStore) snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.ephemeral)+len(s.session)+len(s.persistent))
	for _, e := range s.ephemeral {
		out = append(out, e)
	}
	for _, e := range s.session {
		out = append(out, e)
	}
	for _, e := range s.persistent {
		out = append(out, e)
	}
	return out
}

// ClearEphemeral drops the ephemeral tier. The interpreter calls this
// between evaluations.
func (s *TieredStore) ClearEphemeral() {
	s.mu.Lock()
	s.ephemeral = make(map[string]Entry)
	s.mu.Unlock()
}

// EndSession drops both the ephemeral and session tiers.
func (s *TieredStore) EndSession() {
	s.mu.Lock()
	s.ephemeral = make(map[string]Entry)
	s.session = make(map[string]Entry)
	s.mu.Unlock()
}

type scoredEntry struct {
	entry Entry
	score float64
}

// rankEntries scores candidates against query as
// relevance*0.5 + recency*0.3 + tier*0.2 and returns them best first.
func rankEntries(query string, candidates []Entry) []Entry {
	now := time.Now().UTC()
	scored := make([]scoredEntry, 0, len(candidates))
	for _, e := range candidates {
		relevance := keywordSimilarity(query, e.Key+" "+e.Value)
		if relevance == 0 {
			continue
		}
		score := relevance*0.5 + recencyScore(now, e.UpdatedAt)*0.3 + tierWeight(e.Tier)*0.2
		scored = append(scored, scoredEntry{entry: e, score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	out := make([]Entry, len(scored))
	for i, se := range scored {
		out[i] = se.entry
	}
	return out
}

// recencyScore decays linearly over 30 days; anything newer than an hour
// scores 1.0.
func recencyScore(now, updated time.Time) float64 {
	age := now.Sub(updated)
	if age <= time.Hour {
		return 1.0
	}
	const horizon = 30 * 24 * time.Hour
	if age >= horizon {
		return 0
	}
	return 1 - float64(age)/float64(horizon)
}
