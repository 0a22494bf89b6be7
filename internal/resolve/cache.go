package resolve

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("resolution")

// cacheEntry is the stored record plus its write time for TTL expiry. Misses
// are cached too (Record nil) so offline runs do not retry known misses.
type cacheEntry struct {
	Record  *Record   `json:"record,omitempty"`
	Stored  time.Time `json:"stored"`
}

// Cache is the on-disk resolution cache. Writes are keyed and last-write-wins;
// entries older than the TTL read as misses.
type Cache struct {
	db  *bolt.DB
	ttl time.Duration
}

// OpenCache opens (or creates) the bbolt-backed cache at path.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Get returns the cached record for key. found distinguishes "cached miss"
// (found=true, record=nil) from "never looked up" (found=false).
func (c *Cache) Get(key string) (record *Record, found bool) {
	_ = c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(cacheBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var entry cacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil
		}
		if c.ttl > 0 && time.Since(entry.Stored) > c.ttl {
			return nil
		}
		record = entry.Record
		found = true
		return nil
	})
	return record, found
}

// Put stores a lookup result (or a nil record for a confirmed miss).
func (c *Cache) Put(key string, record *Record) error {
	raw, err := json.Marshal(cacheEntry{Record: record, Stored: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(key), raw)
	})
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }
