package targets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edgewall-hq/go-sonicos/pkg/sonicos"
)

// Package targets contains the firewall fleet registry (YAML/JSON) helpers.

type Target struct {
	ID                 string `json:"id" yaml:"id"`
	Name               string `json:"name" yaml:"name"`
	Host               string `json:"host" yaml:"host"`
	Port               int    `json:"port" yaml:"port"`
	Username           string `json:"username" yaml:"username"`
	Password           string `json:"password" yaml:"password"`
	PasswordEnv        string `json:"password_env" yaml:"password_env"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	TimeoutSeconds     int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type registryFile struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Registry holds a validated firewall fleet, indexed by target id.
type Registry struct {
	mu  sync.RWMutex
	all []Target
	idx map[string]Target
}

var defaultTimeoutSeconds = 30

// LoadRegistry loads the fleet registry from file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("targets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if len(reg.Targets) == 0 {
		return nil, errors.New("targets file contains no targets entries")
	}

	return buildRegistry(reg.Targets)
}

// NewRegistry builds a registry from in-memory target entries, applying the
// same sanitize and validation rules as LoadRegistry.
func NewRegistry(ts []Target) (*Registry, error) {
	if len(ts) == 0 {
		return nil, errors.New("no targets provided")
	}
	return buildRegistry(ts)
}

func buildRegistry(ts []Target) (*Registry, error) {
	idx := make(map[string]Target, len(ts))
	out := make([]Target, len(ts))
	for i := range ts {
		t := sanitizeTarget(ts[i])
		if err := validateTarget(t); err != nil {
			return nil, fmt.Errorf("target[%d]: %w", i, err)
		}
		if _, exists := idx[t.ID]; exists {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		out[i] = t
		idx[t.ID] = t
	}

	return &Registry{all: out, idx: idx}, nil
}

// All returns a copy of the registered targets.
func (r *Registry) All() []Target {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.all) == 0 {
		return nil
	}

	out := make([]Target, len(r.all))
	copy(out, r.all)
	return out
}

// ByID returns the target entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Target, bool) {
	id = strings.TrimSpace(id)
	if r == nil || id == "" {
		return Target{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.idx[id]
	return t, ok
}

// Size returns the number of registered targets.
func (r *Registry) Size() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("targets file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s targets: %w", name, err)
	}
	return reg, nil
}

func sanitizeTarget(t Target) Target {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	t.Host = strings.TrimSpace(t.Host)
	t.Username = strings.TrimSpace(t.Username)
	t.PasswordEnv = strings.TrimSpace(t.PasswordEnv)

	if t.Name == "" {
		t.Name = t.ID
	}
	if t.Port == 0 {
		t.Port = 443
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = defaultTimeoutSeconds
	}

	return t
}

func validateTarget(t Target) error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Host == "" {
		return fmt.Errorf("host is required for target %q", t.ID)
	}
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("invalid port %d for target %q", t.Port, t.ID)
	}
	if t.Username == "" {
		return fmt.Errorf("username is required for target %q", t.ID)
	}
	if t.Password == "" && t.PasswordEnv == "" {
		return fmt.Errorf("password or password_env is required for target %q", t.ID)
	}
	return nil
}

// ResolvePassword returns the API password for the target. A password_env
// entry takes precedence over an inline password and must resolve to a
// non-empty value.
func (t Target) ResolvePassword() (string, error) {
	if t.PasswordEnv != "" {
		if v := os.Getenv(t.PasswordEnv); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("environment variable %s for target %q is not set", t.PasswordEnv, t.ID)
	}
	if t.Password != "" {
		return t.Password, nil
	}
	return "", fmt.Errorf("no password configured for target %q", t.ID)
}

// ClientConfig assembles the API client configuration for the target.
func (t Target) ClientConfig() (sonicos.Config, error) {
	password, err := t.ResolvePassword()
	if err != nil {
		return sonicos.Config{}, err
	}
	return sonicos.Config{
		Host:               t.Host,
		Port:               t.Port,
		Username:           t.Username,
		Password:           password,
		InsecureSkipVerify: t.InsecureSkipVerify,
		Timeout:            t.Timeout(),
	}, nil
}

// Timeout returns the per-request timeout for the target.
func (t Target) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return time.Duration(defaultTimeoutSeconds) * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// String renders the target without credential material.
func (t Target) String() string {
	return fmt.Sprintf("targets.Target{id: %s, host: %s:%d, user: %s}", t.ID, t.Host, t.Port, t.Username)
}
