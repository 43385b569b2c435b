package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/edgewall-hq/go-sonicos/internal/domain"
)

func TestBoltStoreMarksAndExpiresDrifts(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		DriftTTL:        1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/drift.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	seen, err := store.SeenDrift("fp1")
	if err != nil || seen {
		t.Fatalf("expected unseen fingerprint, seen=%v err=%v", seen, err)
	}

	if err := store.MarkDrift("fp1"); err != nil {
		t.Fatalf("MarkDrift: %v", err)
	}

	seen, err = store.SeenDrift("fp1")
	if err != nil || !seen {
		t.Fatalf("expected fingerprint marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.SeenDrift("fp1")
	if err != nil {
		t.Fatalf("SeenDrift after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestBoltStoreAuditJournalTrimsOldest(t *testing.T) {
	dir := t.TempDir()
	opts := Options{MaxAuditEntries: 3}

	store, err := openBolt(dir+"/drift.db", normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	for i := 1; i <= 5; i++ {
		entry := domain.AuditEntry{
			Time:   time.Now().UTC(),
			Action: fmt.Sprintf("commit-%d", i),
			Host:   "fw.example",
		}
		if err := store.AppendAudit(entry); err != nil {
			t.Fatalf("AppendAudit %d: %v", i, err)
		}
	}

	entries, err := store.RecentAudit(10)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected journal trimmed to 3 entries, got %d", len(entries))
	}
	if entries[0].Action != "commit-5" {
		t.Fatalf("expected newest entry first, got %s", entries[0].Action)
	}
	if entries[2].Action != "commit-3" {
		t.Fatalf("expected oldest surviving entry last, got %s", entries[2].Action)
	}

	limited, err := store.RecentAudit(2)
	if err != nil {
		t.Fatalf("RecentAudit limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit applied, got %d entries", len(limited))
	}
}

func TestBoltStoreReadOnlyRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/drift.db"

	rw, err := openBolt(path, normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	if err := rw.AppendAudit(domain.AuditEntry{Time: time.Now(), Action: "login", Host: "fw.example"}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("close rw store: %v", err)
	}

	ro, err := openBolt(path, normalizeOptions(Options{ReadOnly: true}))
	if err != nil {
		t.Fatalf("openBolt read-only: %v", err)
	}
	defer ro.Close()

	if err := ro.MarkDrift("fp1"); err == nil {
		t.Fatalf("expected MarkDrift to fail on read-only store")
	}
	if err := ro.AppendAudit(domain.AuditEntry{Action: "commit"}); err == nil {
		t.Fatalf("expected AppendAudit to fail on read-only store")
	}

	entries, err := ro.RecentAudit(5)
	if err != nil {
		t.Fatalf("RecentAudit on read-only store: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "login" {
		t.Fatalf("unexpected journal contents: %#v", entries)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkDrift("x"); err != nil {
		t.Fatalf("noop store MarkDrift: %v", err)
	}
}
