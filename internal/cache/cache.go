// Package cache provides the persistent TTL cache every external
// collaborator goes through. Payloads are stored as msgpack blobs keyed by
// (class, key) with per-class TTLs; writes to the same key are serialised,
// reads are snapshots.
package cache

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// allClasses lists the valid cache classes for validation and cleanup.
var allClasses = []string{
	ClassPrice, ClassNews, ClassSentiment, ClassMLPrediction,
	ClassMacro, ClassBreadth, ClassIntermarket, ClassFearGreed,
	ClassAnalyst, ClassEarnings, ClassOptions, ClassShortInterest,
	ClassSector, ClassWeights,
}

// validClasses is a set for O(1) class validation.
var validClasses = func() map[string]bool {
	m := make(map[string]bool, len(allClasses))
	for _, c := range allClasses {
		m[c] = true
	}
	return m
}()

const writeShards = 64

// Cache is the shared TTL cache service. The scheduler holds exactly one
// instance; per-symbol workers use it concurrently.
type Cache struct {
	db  *sql.DB
	log zerolog.Logger

	// Striped locks serialise concurrent writers of the same key.
	shards [writeShards]sync.Mutex
}

// New creates a cache service on the given database.
func New(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("component", "cache").Logger(),
	}
}

func validateClass(class string) error {
	if !validClasses[class] {
		return fmt.Errorf("invalid cache class: %s", class)
	}
	return nil
}

func (c *Cache) shardFor(class, key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(class))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return &c.shards[h.Sum32()%writeShards]
}

// Store saves a value under (class, key) with the class TTL.
func (c *Cache) Store(class, key string, value interface{}) error {
	if err := validateClass(class); err != nil {
		return err
	}

	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload for %s/%s: %w", class, key, err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(TTLFor(class))

	mu := c.shardFor(class, key)
	mu.Lock()
	defer mu.Unlock()

	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO data_cache (class, key, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, class, key, payload, now.Format(sqliteTime), expiresAt.Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s/%s: %w", class, key, err)
	}
	return nil
}

// GetFresh decodes the cached value into out if it exists and has not
// expired. Returns false on a miss; an unreadable payload is reported as
// corruption, never silently skipped.
func (c *Cache) GetFresh(class, key string, out interface{}) (bool, error) {
	if err := validateClass(class); err != nil {
		return false, err
	}

	now := time.Now().UTC().Format(sqliteTime)
	var payload []byte
	err := c.db.QueryRow(`
		SELECT payload FROM data_cache
		WHERE class = ? AND key = ? AND expires_at > ?
	`, class, key, now).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s/%s: %w", class, key, err)
	}

	if err := msgpack.Unmarshal(payload, out); err != nil {
		c.log.Error().Err(err).Str("class", class).Str("key", key).
			Msg("Corrupted cache payload")
		return false, fmt.Errorf("corrupted cache entry %s/%s: %w", class, key, err)
	}
	return true, nil
}

// GetStale decodes the cached value regardless of expiration. Stale data
// is better than no data when a vendor call fails.
func (c *Cache) GetStale(class, key string, out interface{}) (bool, error) {
	if err := validateClass(class); err != nil {
		return false, err
	}

	var payload []byte
	err := c.db.QueryRow(`
		SELECT payload FROM data_cache WHERE class = ? AND key = ?
	`, class, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s/%s: %w", class, key, err)
	}

	if err := msgpack.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("corrupted cache entry %s/%s: %w", class, key, err)
	}
	return true, nil
}

// Delete removes one entry. Idempotent.
func (c *Cache) Delete(class, key string) error {
	if err := validateClass(class); err != nil {
		return err
	}
	_, err := c.db.Exec("DELETE FROM data_cache WHERE class = ? AND key = ?", class, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %s/%s: %w", class, key, err)
	}
	return nil
}

// DeleteExpired removes all expired entries. Returns rows deleted.
func (c *Cache) DeleteExpired() (int64, error) {
	now := time.Now().UTC().Format(sqliteTime)
	result, err := c.db.Exec("DELETE FROM data_cache WHERE expires_at < ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Clear removes every entry of one class ("" clears everything).
func (c *Cache) Clear(class string) error {
	if class == "" {
		_, err := c.db.Exec("DELETE FROM data_cache")
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		return nil
	}
	if err := validateClass(class); err != nil {
		return err
	}
	_, err := c.db.Exec("DELETE FROM data_cache WHERE class = ?", class)
	if err != nil {
		return fmt.Errorf("failed to clear cache class %s: %w", class, err)
	}
	return nil
}

// GetOrFill returns the fresh cached value or, on a miss, calls fill under
// the key's writer lock (double-checked) and stores the result. This is how
// once-per-scan global signals are shared across symbols and scans.
func (c *Cache) GetOrFill(class, key string, out interface{}, fill func() (interface{}, error)) error {
	hit, err := c.GetFresh(class, key, out)
	if err == nil && hit {
		return nil
	}

	mu := c.shardFor(class, key)
	mu.Lock()
	locked := true
	defer func() {
		if locked {
			mu.Unlock()
		}
	}()

	// Another writer may have filled the entry while we waited.
	hit, err = c.GetFresh(class, key, out)
	if err == nil && hit {
		return nil
	}

	value, err := fill()
	if err != nil {
		return err
	}

	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload for %s/%s: %w", class, key, err)
	}
	now := time.Now().UTC()
	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO data_cache (class, key, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, class, key, payload, now.Format(sqliteTime), now.Add(TTLFor(class)).Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s/%s: %w", class, key, err)
	}
	mu.Unlock()
	locked = false

	return msgpack.Unmarshal(payload, out)
}

const sqliteTime = "2006-01-02 15:04:05"
