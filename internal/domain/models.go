package domain

import "time"

// Domain contains core models shared between the watcher and the CLI.

// Drift is one observed set of uncommitted firewall changes. Fingerprint
// identifies the pending payload so the same staged config is not reported
// twice.
type Drift struct {
	Fingerprint string    `json:"fingerprint"`
	Host        string    `json:"host"`
	ByteSize    int       `json:"byte_size"`
	Message     string    `json:"message"`
	DetectedAt  time.Time `json:"detected_at"`
}

// AuditEntry records one action the watcher took against a firewall. The
// CLI reads the journal but never writes it; the watcher holds the single
// write handle.
type AuditEntry struct {
	Time        time.Time `json:"time"`
	Action      string    `json:"action"`
	Host        string    `json:"host"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}
