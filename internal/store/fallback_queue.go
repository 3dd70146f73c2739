package store

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

// queuedRecord is a write held while the durable store was unavailable.
type queuedRecord struct {
	Record models.Record `json:"record"`
	// Partial marks a patch queued without a readable base record. A nil
	// payload keeps the durable payload on flush.
	Partial bool `json:"partial,omitempty"`
	// KeepTimestamp keeps the durable timestamp when merging a partial patch.
	KeepTimestamp bool `json:"keepTimestamp,omitempty"`
}

// fallbackQueue is a bounded, file-backed holding area for writes that could
// not reach SQLite. It keeps one LRU per entity type: a write for an id that
// is already queued replaces it unless it is older, and when a type is full
// the oldest write is evicted.
type fallbackQueue struct {
	mu       sync.Mutex
	path     string
	capacity int
	queues   map[models.EntityType]*lru.Cache[string, queuedRecord]
	logger   *logger.Logger
}

func newFallbackQueue(path string, capacity int, log *logger.Logger) (*fallbackQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid fallback capacity %d", capacity)
	}

	q := &fallbackQueue{
		path:     path,
		capacity: capacity,
		queues:   make(map[models.EntityType]*lru.Cache[string, queuedRecord]),
		logger:   log,
	}

	if err := q.load(); err != nil {
		return nil, err
	}
	return q, nil
}

// put queues entry unless the queued copy of the same id is newer. The queue
// file is rewritten before returning; on failure the in-memory queue is
// restored, including any write the new entry evicted.
func (q *fallbackQueue) put(entry queuedRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entityType := entry.Record.EntityType
	cache, err := q.cacheFor(entityType)
	if err != nil {
		return err
	}

	previous, existed := cache.Peek(entry.Record.ID)
	if existed && previous.Record.UpdatedAt > entry.Record.UpdatedAt {
		return nil
	}

	// snapshot in LRU order so a failed persist can undo an eviction too
	keys, values := cache.Keys(), cache.Values()

	if evicted := cache.Add(entry.Record.ID, entry); evicted {
		q.logger.Warn().
			Str("func", "fallbackQueue.put").
			Str("entity_type", entityType.String()).
			Int("capacity", q.capacity).
			Msg("fallback queue full, oldest write evicted")
	}

	if err = q.persist(); err != nil {
		cache.Purge()
		for i, key := range keys {
			cache.Add(key, values[i])
		}
		return err
	}

	return nil
}

func (q *fallbackQueue) get(entityType models.EntityType, id string) (queuedRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cache, ok := q.queues[entityType]
	if !ok {
		return queuedRecord{}, false
	}
	return cache.Peek(id)
}

func (q *fallbackQueue) remove(entityType models.EntityType, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cache, ok := q.queues[entityType]
	if !ok || !cache.Remove(id) {
		return nil
	}
	return q.persist()
}

// removeFlushed drops entries that were written to SQLite, unless they were
// replaced by a newer write in the meantime.
func (q *fallbackQueue) removeFlushed(entityType models.EntityType, flushed []queuedRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cache, ok := q.queues[entityType]
	if !ok {
		return nil
	}

	for _, entry := range flushed {
		current, ok := cache.Peek(entry.Record.ID)
		if ok && current.Record.UpdatedAt == entry.Record.UpdatedAt {
			cache.Remove(entry.Record.ID)
		}
	}
	return q.persist()
}

// entries returns the queued writes of one type, oldest first.
func (q *fallbackQueue) entries(entityType models.EntityType) []queuedRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	cache, ok := q.queues[entityType]
	if !ok {
		return nil
	}

	keys := cache.Keys()
	out := make([]queuedRecord, 0, len(keys))
	for _, key := range keys {
		if entry, ok := cache.Peek(key); ok {
			out = append(out, entry)
		}
	}
	return out
}

// types lists entity types that have queued writes, in push order.
func (q *fallbackQueue) types() []models.EntityType {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []models.EntityType
	for _, entityType := range models.AllEntityTypes() {
		if cache, ok := q.queues[entityType]; ok && cache.Len() > 0 {
			out = append(out, entityType)
		}
	}
	return out
}

func (q *fallbackQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for _, cache := range q.queues {
		total += cache.Len()
	}
	return total
}

func (q *fallbackQueue) cacheFor(entityType models.EntityType) (*lru.Cache[string, queuedRecord], error) {
	if cache, ok := q.queues[entityType]; ok {
		return cache, nil
	}

	cache, err := lru.New[string, queuedRecord](q.capacity)
	if err != nil {
		return nil, fmt.Errorf("error creating fallback queue: %w", err)
	}
	q.queues[entityType] = cache
	return cache, nil
}

// load restores the queue file. Entries are re-added in updatedAt order so
// that eviction keeps dropping the oldest writes.
func (q *fallbackQueue) load() error {
	if q.path == "" {
		return nil
	}

	data, err := os.ReadFile(q.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read fallback queue file: %w", err)
	}

	var state map[models.EntityType]map[string]queuedRecord
	if err = json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode fallback queue file: %w", err)
	}

	for entityType, byID := range state {
		if !entityType.Valid() {
			q.logger.Warn().
				Str("func", "fallbackQueue.load").
				Str("entity_type", string(entityType)).
				Msg("dropping queued writes of unknown entity type")
			continue
		}

		entries := make([]queuedRecord, 0, len(byID))
		for _, entry := range byID {
			entries = append(entries, entry)
		}
		slices.SortFunc(entries, func(a, b queuedRecord) int {
			return cmp.Compare(a.Record.UpdatedAt, b.Record.UpdatedAt)
		})

		cache, err := q.cacheFor(entityType)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			cache.Add(entry.Record.ID, entry)
		}
	}

	return nil
}

// persist writes the queue to a temp file and renames it over the old one.
// Caller must hold q.mu.
func (q *fallbackQueue) persist() error {
	if q.path == "" {
		return nil
	}

	state := make(map[models.EntityType]map[string]queuedRecord, len(q.queues))
	for entityType, cache := range q.queues {
		if cache.Len() == 0 {
			continue
		}
		byID := make(map[string]queuedRecord, cache.Len())
		for _, key := range cache.Keys() {
			if entry, ok := cache.Peek(key); ok {
				byID[key] = entry
			}
		}
		state[entityType] = byID
	}

	dir := filepath.Dir(q.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create fallback queue dir: %w", err)
		}
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fallback queue: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(q.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create fallback queue temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write fallback queue file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write fallback queue file: %w", err)
	}

	if err = os.Rename(tmp.Name(), q.path); err != nil {
		return fmt.Errorf("replace fallback queue file: %w", err)
	}

	return nil
}
