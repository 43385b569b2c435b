package app

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic drift fingerprinting
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/edgewall-hq/go-sonicos/internal/config"
	"github.com/edgewall-hq/go-sonicos/internal/domain"
	"github.com/edgewall-hq/go-sonicos/internal/logger"
	"github.com/edgewall-hq/go-sonicos/internal/storage"
	"github.com/edgewall-hq/go-sonicos/pkg/publishers"
	"github.com/edgewall-hq/go-sonicos/pkg/sonicos"
	"github.com/edgewall-hq/go-sonicos/pkg/targets"
)

// apiClient is the slice of the SonicOS client the watcher drives.
type apiClient interface {
	Login(ctx context.Context) (sonicos.Result, error)
	Logout(ctx context.Context) (sonicos.Result, error)
	PendingConfigurations(ctx context.Context) (sonicos.Result, error)
	Close()
}

// clientFactory builds an API client for a target endpoint.
type clientFactory func(cfg sonicos.Config) apiClient

func defaultClientFactory(cfg sonicos.Config) apiClient {
	return sonicos.New(cfg)
}

// targetFromConfig synthesizes a single target from the flat config fields
// for deployments that watch one firewall and ship no targets file.
func targetFromConfig(cfg *config.Config) targets.Target {
	return targets.Target{
		ID:                 "default",
		Host:               cfg.FirewallHost,
		Port:               cfg.FirewallPort,
		Username:           cfg.APIUsername,
		Password:           cfg.APIPassword,
		InsecureSkipVerify: cfg.TLSInsecureSkipVerify,
		TimeoutSeconds:     int(cfg.RequestTimeout / time.Second),
	}
}

// Watcher polls a firewall fleet for uncommitted configuration changes and
// publishes drift events for findings that have not been reported yet. It
// owns one authenticated session per target, reconnecting when the firewall
// invalidates it.
type Watcher struct {
	cfg           *config.Config
	targetReg     *targets.Registry
	fanout        *publishers.Fanout
	checkInterval time.Duration
	log           logger.Logger
	store         storage.Store
	newClient     clientFactory

	// sessions is only touched from the Run loop goroutine.
	sessions map[string]apiClient
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	targetReg, err := targets.LoadRegistry(cfg.TargetsFile)
	if errors.Is(err, os.ErrNotExist) && cfg.FirewallHost != "" {
		// Single-firewall deployments can run from the flat env config
		// without a targets file.
		targetReg, err = targets.NewRegistry([]targets.Target{targetFromConfig(cfg)})
	}
	if err != nil {
		return nil, fmt.Errorf("load targets registry: %w", err)
	}
	targetList := targetReg.All()
	targetIDs := make([]string, 0, len(targetList))
	for _, t := range targetList {
		targetIDs = append(targetIDs, t.ID)
	}
	log.InfoObj("targets registry loaded", "targets_meta", map[string]any{
		"count": len(targetIDs),
		"ids":   targetIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubRegistry := publishers.DefaultRegistry()
	pubClients, err := publishers.BuildAll(ctx, pubRegistry, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		DriftTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"drift_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Watcher{
		cfg:           cfg,
		targetReg:     targetReg,
		fanout:        fanout,
		checkInterval: cfg.CheckInterval,
		log:           log,
		store:         store,
		newClient:     defaultClientFactory,
		sessions:      make(map[string]apiClient),
	}, nil
}

// Run starts the polling loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.targetReg == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.closeStore()
	defer w.closeSessions()

	targetList := w.targetReg.All()
	if len(targetList) == 0 {
		w.log.WarnObj("no targets configured; watcher idle", "targets_file", w.cfg.TargetsFile)
		<-ctx.Done()
		return ctx.Err()
	}

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"targets_count":    len(targetList),
		"publishers_count": w.fanout.Size(),
		"check_interval":   w.checkInterval.String(),
	})

	if err := w.checkAll(ctx, targetList); err != nil {
		w.log.ErrorObj("initial check failed", "error", err)
	}

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := w.checkAll(ctx, targetList); err != nil {
				w.log.ErrorObj("scheduled check failed", "error", err)
			}
		}
	}
}

// checkAll runs one drift check across all targets.
func (w *Watcher) checkAll(ctx context.Context, targetList []targets.Target) error {
	start := time.Now()
	w.log.InfoObj("drift check started", "check_meta", map[string]any{
		"targets_count": len(targetList),
		"started_at":    start.UTC(),
	})

	var errs []error
	for _, t := range targetList {
		select {
		case <-ctx.Done():
			return errors.Join(errs...)
		default:
		}

		if err := w.checkTarget(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", t.ID, err))
			w.log.ErrorObj("target check failed", "target_error", map[string]any{
				"target_id": t.ID,
				"error":     err.Error(),
			})
		}
	}

	w.log.InfoObj("drift check completed", "check_meta", map[string]any{
		"targets_count": len(targetList),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return errors.Join(errs...)
}

// checkTarget fetches the pending configuration of one firewall and emits a
// drift event when the finding is fresh. A vendor-refused response drops the
// cached session and retries once with a fresh login.
func (w *Watcher) checkTarget(ctx context.Context, t targets.Target) error {
	client, err := w.sessionFor(ctx, t)
	if err != nil {
		return err
	}

	res, err := client.PendingConfigurations(ctx)
	if err != nil {
		w.dropSession(t.ID)
		return fmt.Errorf("fetch pending config: %w", err)
	}
	if !res.Success {
		w.dropSession(t.ID)
		client, err = w.sessionFor(ctx, t)
		if err != nil {
			return err
		}
		res, err = client.PendingConfigurations(ctx)
		if err != nil {
			w.dropSession(t.ID)
			return fmt.Errorf("fetch pending config: %w", err)
		}
		if !res.Success {
			return fmt.Errorf("firewall refused pending config read: %s", res.Message)
		}
	}

	if emptyPending(res.Data) {
		w.log.DebugObj("no pending changes", "target_id", t.ID)
		return nil
	}

	fingerprint := driftFingerprint(t.ID, res.Data)
	seen, err := w.store.SeenDrift(fingerprint)
	if err != nil {
		return fmt.Errorf("dedupe lookup: %w", err)
	}
	if seen {
		w.log.DebugObj("drift already reported", "drift_meta", map[string]any{
			"target_id":   t.ID,
			"fingerprint": fingerprint,
		})
		return nil
	}

	drift := domain.Drift{
		Fingerprint: fingerprint,
		Host:        t.Host,
		ByteSize:    len(res.Data),
		Message:     res.Message,
		DetectedAt:  time.Now().UTC(),
	}

	evt := publishers.NewEvent(t.ID, t.Name, drift)
	published, err := w.fanout.Publish(ctx, evt)
	if err != nil {
		return fmt.Errorf("publish drift event: %w", err)
	}

	if err := w.store.MarkDrift(fingerprint); err != nil {
		return fmt.Errorf("mark drift reported: %w", err)
	}
	w.appendAudit(domain.AuditEntry{
		Time:        drift.DetectedAt,
		Action:      "drift-detected",
		Host:        t.Host,
		Fingerprint: fingerprint,
		Detail:      fmt.Sprintf("%d bytes pending", drift.ByteSize),
	})

	w.log.InfoObj("drift detected", "drift_meta", map[string]any{
		"target_id":   t.ID,
		"fingerprint": fingerprint,
		"byte_size":   drift.ByteSize,
		"published":   published,
	})
	return nil
}

// sessionFor returns the cached session for the target, logging in first if
// none exists yet.
func (w *Watcher) sessionFor(ctx context.Context, t targets.Target) (apiClient, error) {
	if client, ok := w.sessions[t.ID]; ok {
		return client, nil
	}

	clientCfg, err := t.ClientConfig()
	if err != nil {
		return nil, err
	}

	client := w.newClient(clientCfg)
	res, err := client.Login(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("login: %w", err)
	}
	if !res.Success {
		client.Close()
		return nil, fmt.Errorf("login refused: %s", res.Message)
	}

	w.sessions[t.ID] = client
	w.appendAudit(domain.AuditEntry{
		Time:   time.Now().UTC(),
		Action: "login",
		Host:   t.Host,
	})
	return client, nil
}

// dropSession closes and forgets the cached session for a target.
func (w *Watcher) dropSession(id string) {
	client, ok := w.sessions[id]
	if !ok {
		return
	}
	delete(w.sessions, id)
	client.Close()
}

// closeSessions logs out of every firewall the watcher is still holding a
// session on. Run's context is already cancelled here, so the farewell gets
// its own deadline.
func (w *Watcher) closeSessions() {
	if len(w.sessions) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for id, client := range w.sessions {
		if _, err := client.Logout(ctx); err != nil {
			w.log.WarnObj("logout failed", "target_id", id)
		}
		client.Close()
		delete(w.sessions, id)
	}
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (w *Watcher) closeStore() {
	if w == nil || w.store == nil {
		return
	}
	if err := w.store.Close(); err != nil {
		w.log.ErrorObj("storage close failed", "error", err)
	}
}

// appendAudit journals an entry, downgrading failures to a warning.
func (w *Watcher) appendAudit(entry domain.AuditEntry) {
	if w.store == nil {
		return
	}
	if err := w.store.AppendAudit(entry); err != nil {
		w.log.WarnObj("audit append failed", "error", err)
	}
}

// emptyPending reports whether the pending payload carries no staged changes.
func emptyPending(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return true
	}
	switch string(trimmed) {
	case "{}", "[]", "null":
		return true
	}
	return false
}

// driftFingerprint derives a stable id for a pending payload on a target.
func driftFingerprint(targetID string, data []byte) string {
	h := sha1.New()
	h.Write([]byte(targetID))
	h.Write([]byte{'\n'})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
