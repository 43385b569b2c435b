package targets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadRegistryYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "targets.yaml")
	content := `
targets:
  - id: branch-fw
    name: Branch Office
    host: fw-branch.example.net
    port: 8443
    username: admin
    password: changeme
    insecure_skip_verify: true
    timeout_seconds: 10
  - id: hq-fw
    host: fw-hq.example.net
    username: audit
    password_env: HQ_FW_PASSWORD
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write targets file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}

	if reg.Size() != 2 {
		t.Fatalf("expected 2 targets, got %d", reg.Size())
	}

	branch, ok := reg.ByID("branch-fw")
	if !ok {
		t.Fatalf("expected target id branch-fw to be loaded")
	}
	if branch.Host != "fw-branch.example.net" || branch.Port != 8443 {
		t.Fatalf("unexpected endpoint: %s:%d", branch.Host, branch.Port)
	}
	if branch.Timeout() != 10*time.Second {
		t.Fatalf("unexpected timeout: %v", branch.Timeout())
	}

	hq, ok := reg.ByID("hq-fw")
	if !ok {
		t.Fatalf("expected target id hq-fw to be loaded")
	}
	if hq.Name != "hq-fw" {
		t.Fatalf("expected name to default to id, got %s", hq.Name)
	}
	if hq.Port != 443 {
		t.Fatalf("expected port to default to 443, got %d", hq.Port)
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "targets.yaml")
	content := `
targets:
  - id: duplicate
    host: fw1.example
    username: admin
    password: pw
  - id: duplicate
    host: fw2.example
    username: admin
    password: pw
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write targets file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected duplicate target error, got nil")
	}
}

func TestLoadRegistryRequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "targets.yaml")
	content := `
targets:
  - id: no-creds
    host: fw.example
    username: admin
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write targets file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected validation error for missing credentials, got nil")
	}
}

func TestNewRegistrySanitizesAndIndexes(t *testing.T) {
	reg, err := NewRegistry([]Target{
		{ID: " solo-fw ", Host: "fw.example", Username: "admin", Password: "changeme"},
	})
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	solo, ok := reg.ByID("solo-fw")
	if !ok {
		t.Fatalf("expected trimmed id solo-fw to be indexed")
	}
	if solo.Port != 443 {
		t.Fatalf("expected default port 443, got %d", solo.Port)
	}
	if solo.Name != "solo-fw" {
		t.Fatalf("expected name to default to id, got %s", solo.Name)
	}

	if _, err := NewRegistry(nil); err == nil {
		t.Fatalf("expected error for empty target list, got nil")
	}
	if _, err := NewRegistry([]Target{{ID: "bad"}}); err == nil {
		t.Fatalf("expected validation error for incomplete target, got nil")
	}
}

func TestResolvePasswordPrefersEnv(t *testing.T) {
	t.Setenv("TARGETS_TEST_PASSWORD", "from-env")

	target := Target{ID: "env-fw", Password: "inline", PasswordEnv: "TARGETS_TEST_PASSWORD"}
	pw, err := target.ResolvePassword()
	if err != nil {
		t.Fatalf("ResolvePassword: %v", err)
	}
	if pw != "from-env" {
		t.Fatalf("expected env password, got %q", pw)
	}
}

func TestResolvePasswordMissingEnv(t *testing.T) {
	target := Target{ID: "env-fw", PasswordEnv: "TARGETS_TEST_UNSET_PASSWORD"}
	if _, err := target.ResolvePassword(); err == nil {
		t.Fatalf("expected error for unset password env, got nil")
	}
}

func TestClientConfigCarriesEndpointAndCredentials(t *testing.T) {
	target := Target{
		ID:                 "branch-fw",
		Host:               "fw-branch.example.net",
		Port:               8443,
		Username:           "admin",
		Password:           "changeme",
		InsecureSkipVerify: true,
		TimeoutSeconds:     10,
	}

	cfg, err := target.ClientConfig()
	if err != nil {
		t.Fatalf("ClientConfig: %v", err)
	}
	if cfg.Host != "fw-branch.example.net" || cfg.Port != 8443 {
		t.Fatalf("unexpected endpoint: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Username != "admin" || cfg.Password != "changeme" {
		t.Fatalf("unexpected credentials: %s/%s", cfg.Username, cfg.Password)
	}
	if !cfg.InsecureSkipVerify {
		t.Fatalf("expected insecure_skip_verify to carry over")
	}
	if cfg.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Timeout)
	}
}

func TestTargetStringOmitsPassword(t *testing.T) {
	target := Target{ID: "branch-fw", Host: "fw.example", Port: 443, Username: "admin", Password: "supersecret"}
	if s := target.String(); strings.Contains(s, "supersecret") {
		t.Fatalf("String leaked the password: %s", s)
	}
}
