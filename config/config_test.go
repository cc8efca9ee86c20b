package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roomsync.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeYAML(t, `
addr: ":9090"
log:
  level: info
  stderr: true
room:
  ticks_per_second: 30
  strict: true
  data_dir: /tmp/roomsync
  diff_log: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Log.Level != "info" || !cfg.Log.Stderr {
		t.Fatalf("unexpected top-level config %+v", cfg)
	}
	if cfg.Room.TicksPerSecond != 30 || !cfg.Room.Strict || !cfg.Room.DiffLog {
		t.Fatalf("unexpected room config %+v", cfg.Room)
	}
	// 未给出的字段保留默认值
	def := Default()
	if cfg.Log.File != def.Log.File || cfg.Room.SendQueue != def.Room.SendQueue || cfg.Room.DefaultRoom != def.Room.DefaultRoom {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeYAML(t, `
log:
  level: loud
room:
  ticks_per_second: 0
  send_queue: -1
  diff_log: true
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if n := len(multierr.Errors(Default().withRoom(func(r *Room) {
		r.TicksPerSecond = 0
		r.SendQueue = -1
	}).Validate())); n != 2 {
		t.Fatalf("expected 2 separate errors, got %d", n)
	}
	for _, want := range []string{"log.level", "ticks_per_second", "send_queue", "diff_log"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}
}

func TestLoadMissingAndMalformed(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	path := writeYAML(t, "room: [1, 2")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected parse error naming the file, got %v", err)
	}
}

func (c Config) withRoom(fn func(*Room)) Config {
	fn(&c.Room)
	return c
}
