package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearNucleusEnv blanks the variables a test asserts defaults for, so a
// developer's shell cannot leak into the assertions. t.Setenv restores
// the previous values on cleanup.
func clearNucleusEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"SERVICE_NAME", "SERVICE_VERSION", "NATS_URL", "HTTP_ADDR",
		"DB_PATH", "DATABASE_URL", "WORKER_CONCURRENCY", "TTY_ENABLED",
		"NUCLEUS_SHELL", "HEARTBEAT_INTERVAL", "LIVE_INTERVAL",
		"PERCEPTION_INTERVAL", "WATCH_LOGS",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearNucleusEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServiceName != "razonbilstro-nucleus" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if cfg.Version != "4.1" {
		t.Errorf("Version = %q", cfg.Version)
	}
	if cfg.HTTPAddr != ":5000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.NatsURL != "nats://127.0.0.1:4222" {
		t.Errorf("NatsURL = %q", cfg.NatsURL)
	}
	if cfg.Subject != "nucleus.requests.>" {
		t.Errorf("Subject = %q", cfg.Subject)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d", cfg.Concurrency)
	}
	if !cfg.TTYEnabled {
		t.Error("TTYEnabled should default to true")
	}
	if cfg.ShellPath != "/bin/bash" {
		t.Errorf("ShellPath = %q", cfg.ShellPath)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.LiveInterval != 10*time.Second {
		t.Errorf("LiveInterval = %v", cfg.LiveInterval)
	}
	if cfg.WatchPaths != nil {
		t.Errorf("WatchPaths = %v, want none", cfg.WatchPaths)
	}
}

func TestLoadMissingEnvFileKeepsDefaults(t *testing.T) {
	clearNucleusEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServiceName != "razonbilstro-nucleus" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearNucleusEnv(t)
	t.Setenv("SERVICE_NAME", "nucleus-test")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("TTY_ENABLED", "false")
	t.Setenv("HEARTBEAT_INTERVAL", "5s")
	t.Setenv("DATABASE_URL", "postgres://user:pw@localhost/nucleus")
	t.Setenv("WATCH_LOGS", "/var/log/syslog, /tmp/app.log,")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServiceName != "nucleus-test" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d", cfg.Concurrency)
	}
	if cfg.TTYEnabled {
		t.Error("TTYEnabled should be false")
	}
	if cfg.HeartbeatInterval != 5*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.DatabaseURL != "postgres://user:pw@localhost/nucleus" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	want := []string{"/var/log/syslog", "/tmp/app.log"}
	if len(cfg.WatchPaths) != len(want) {
		t.Fatalf("WatchPaths = %v, want %v", cfg.WatchPaths, want)
	}
	for i, p := range want {
		if cfg.WatchPaths[i] != p {
			t.Errorf("WatchPaths[%d] = %q, want %q", i, cfg.WatchPaths[i], p)
		}
	}
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	clearNucleusEnv(t)
	t.Setenv("WORKER_CONCURRENCY", "many")
	t.Setenv("TTY_ENABLED", "yes please")
	t.Setenv("LIVE_INTERVAL", "soon")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want default 2", cfg.Concurrency)
	}
	if !cfg.TTYEnabled {
		t.Error("TTYEnabled should keep default true on unparseable value")
	}
	if cfg.LiveInterval != 10*time.Second {
		t.Errorf("LiveInterval = %v, want default 10s", cfg.LiveInterval)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	clearNucleusEnv(t)
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("STREAM_NAME", "")

	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "# nucleus test environment\n\nHTTP_ADDR=:6000\nSTREAM_NAME = NUCLEUS_TEST\nBROKEN LINE WITHOUT EQUALS\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatalf("writing env file: %v", err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddr != ":6000" {
		t.Errorf("HTTPAddr = %q, want :6000", cfg.HTTPAddr)
	}
	if cfg.Stream != "NUCLEUS_TEST" {
		t.Errorf("Stream = %q, want NUCLEUS_TEST", cfg.Stream)
	}
}
