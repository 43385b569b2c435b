package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgewall-hq/go-sonicos/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	driftBucket      = "drifts"
	auditBucket      = "audit"
	expiryValueBytes = 8
	auditKeyBytes    = 8
)

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	driftTTL        time.Duration
	cleanupInterval time.Duration
	maxAuditEntries int
	readOnly        bool
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	if !opts.ReadOnly {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage directory: %w", err)
			}
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if !opts.ReadOnly {
		if err := db.Update(func(tx *bolt.Tx) error {
			for _, name := range []string{driftBucket, auditBucket} {
				if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			db.Close()
			return nil, fmt.Errorf("init buckets: %w", err)
		}
	}

	store := &boltStore{
		db:              db,
		driftTTL:        opts.DriftTTL,
		cleanupInterval: opts.CleanupInterval,
		maxAuditEntries: opts.MaxAuditEntries,
		readOnly:        opts.ReadOnly,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenDrift checks if a drift fingerprint has already been reported.
func (b *boltStore) SeenDrift(fingerprint string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	if b.readOnly {
		return b.seenDriftReadOnly(fingerprint)
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return false, err
	}

	var exists bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(driftBucket))
		if bucket == nil {
			return fmt.Errorf("drift bucket missing")
		}

		key := []byte(fingerprint)
		value := bucket.Get(key)
		if value == nil {
			exists = false
			return nil
		}

		expiry, ok := decodeExpiry(value)
		if !ok || !expiry.After(time.Now()) {
			exists = false
			return bucket.Delete(key)
		}

		exists = true
		return nil
	})
	return exists, err
}

// seenDriftReadOnly answers the lookup without deleting expired entries.
func (b *boltStore) seenDriftReadOnly(fingerprint string) (bool, error) {
	var exists bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(driftBucket))
		if bucket == nil {
			return nil
		}
		value := bucket.Get([]byte(fingerprint))
		if value == nil {
			return nil
		}
		expiry, ok := decodeExpiry(value)
		exists = ok && expiry.After(time.Now())
		return nil
	})
	return exists, err
}

// MarkDrift records a drift fingerprint as reported.
func (b *boltStore) MarkDrift(fingerprint string) error {
	if b == nil || b.db == nil {
		return nil
	}
	if b.readOnly {
		return fmt.Errorf("store is read-only")
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(driftBucket))
		if bucket == nil {
			return fmt.Errorf("drift bucket missing")
		}
		buf := make([]byte, expiryValueBytes)
		binary.BigEndian.PutUint64(buf, uint64(now.Add(b.driftTTL).Unix()))
		return bucket.Put([]byte(fingerprint), buf)
	})
}

// AppendAudit adds an entry to the journal, trimming the oldest entries once
// the configured cap is exceeded.
func (b *boltStore) AppendAudit(entry domain.AuditEntry) error {
	if b == nil || b.db == nil {
		return nil
	}
	if b.readOnly {
		return fmt.Errorf("store is read-only")
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(auditBucket))
		if bucket == nil {
			return fmt.Errorf("audit bucket missing")
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, auditKeyBytes)
		binary.BigEndian.PutUint64(key, seq)
		if err := bucket.Put(key, payload); err != nil {
			return err
		}

		total := 0
		cursor := bucket.Cursor()
		for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
			total++
		}
		for k, _ := cursor.First(); k != nil && total > b.maxAuditEntries; k, _ = cursor.Next() {
			if err := cursor.Delete(); err != nil {
				return err
			}
			total--
		}
		return nil
	})
}

// RecentAudit returns up to limit journal entries, newest first.
func (b *boltStore) RecentAudit(limit int) ([]domain.AuditEntry, error) {
	if b == nil || b.db == nil || limit <= 0 {
		return nil, nil
	}

	var out []domain.AuditEntry
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(auditBucket))
		if bucket == nil {
			return nil
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil && len(out) < limit; k, v = cursor.Prev() {
			var entry domain.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode audit entry: %w", err)
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// maybeCleanupExpired removes expired drift fingerprints on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil || b.readOnly {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(driftBucket))
		if bucket == nil {
			return fmt.Errorf("drift bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, ok := decodeExpiry(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeExpiry decodes the expiry time from the stored byte slice.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
