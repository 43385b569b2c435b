package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/edgewall-hq/go-sonicos/internal/domain"
)

// Package storage provides local DB/cache abstraction.

// Store tracks reported drift fingerprints and keeps the audit journal.
type Store interface {
	Close() error
	SeenDrift(fingerprint string) (bool, error)
	MarkDrift(fingerprint string) error
	AppendAudit(entry domain.AuditEntry) error
	RecentAudit(limit int) ([]domain.AuditEntry, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	DriftTTL        time.Duration
	CleanupInterval time.Duration
	MaxAuditEntries int
	// ReadOnly opens the backing file without write access. Mutating calls
	// fail; intended for inspecting the journal next to a running watcher.
	ReadOnly bool
}

const (
	defaultDriftTTL        = 5 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
	defaultMaxAuditEntries = 1000
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.DriftTTL <= 0 {
		opts.DriftTTL = defaultDriftTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.MaxAuditEntries <= 0 {
		opts.MaxAuditEntries = defaultMaxAuditEntries
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                                 { return nil }
func (noopStore) SeenDrift(string) (bool, error)               { return false, nil }
func (noopStore) MarkDrift(string) error                       { return nil }
func (noopStore) AppendAudit(domain.AuditEntry) error          { return nil }
func (noopStore) RecentAudit(int) ([]domain.AuditEntry, error) { return nil, nil }
