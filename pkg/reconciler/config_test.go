package reconciler

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "claude_desktop_config.json"))
	if err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("expected empty server map, got %d entries", len(cfg.Servers))
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected ParseError, got %T: %v", err, err)
	}
}

func TestLoad_ServersNotObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"mcpServers": []}`), 0644); err != nil {
		t.Fatal(err)
	}
	var parseErr *ParseError
	if _, err := Load(path); !errors.As(err, &parseErr) {
		t.Errorf("expected ParseError for non-object server map, got %v", err)
	}
}

func TestLoad_JSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  // my servers
  "mcpServers": {
    "memory": {"command": "npx", "args": ["-y", "@x/server-memory"],},
  },
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() on JSONC: %v", err)
	}
	if !cfg.HadComments {
		t.Error("expected HadComments to be set")
	}
	if cfg.Servers["memory"].Command != "npx" {
		t.Errorf("unexpected entry: %+v", cfg.Servers["memory"])
	}
}

func TestPersistLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewConfig()
	cfg.Extra["theme"] = "dark"
	cfg.Extra["telemetry"] = map[string]any{"enabled": false}
	Apply(cfg, &ServerEntry{
		Name:    "filesystem",
		Command: "npx",
		Args:    []string{"-y", "@x/server-filesystem", "/workspace"},
		Env:     map[string]string{"FS_READONLY": "1"},
	})

	if err := Persist(cfg, path); err != nil {
		t.Fatalf("Persist(): %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if got.Extra["theme"] != "dark" {
		t.Errorf("unrecognized top-level key lost: %v", got.Extra)
	}
	if _, ok := got.Extra["telemetry"]; !ok {
		t.Error("nested unrecognized key lost")
	}
	entry := got.Servers["filesystem"]
	if entry == nil {
		t.Fatal("server entry lost")
	}
	if entry.Command != "npx" || !reflect.DeepEqual(entry.Args, []string{"-y", "@x/server-filesystem", "/workspace"}) {
		t.Errorf("entry changed: %+v", entry)
	}
	if entry.Env["FS_READONLY"] != "1" {
		t.Errorf("env changed: %v", entry.Env)
	}
}

func TestPersistLoad_EmptyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Persist(cfg, path); err != nil {
		t.Fatalf("Persist(): %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Persist: %v", err)
	}
	if len(got.Servers) != 0 || len(got.Extra) != 0 {
		t.Errorf("empty config did not round-trip: %+v", got)
	}

	// The server map key itself must be written.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) == "{}\n" {
		t.Error("expected mcpServers key in persisted empty config")
	}
}

func TestPersist_PreservesUnmodeledEntryFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "mcpServers": {
    "remote": {"command": "npx", "type": "sse", "url": "http://localhost:3123/sse"}
  }
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	// Touch an unrelated entry, then write back.
	Apply(cfg, &ServerEntry{Name: "memory", Command: "npx"})
	if err := Persist(cfg, path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	remote := got.Servers["remote"]
	if remote == nil {
		t.Fatal("unrelated entry lost")
	}
	if remote.extra["type"] != "sse" || remote.extra["url"] != "http://localhost:3123/sse" {
		t.Errorf("unmodeled entry fields lost: %v", remote.extra)
	}
}

func TestApply_Upsert(t *testing.T) {
	cfg := NewConfig()

	Apply(cfg, &ServerEntry{Name: "s1", Command: "npx", Args: []string{"one"}})
	Apply(cfg, &ServerEntry{Name: "s1", Command: "npx", Args: []string{"two"}})

	if len(cfg.Servers) != 1 {
		t.Fatalf("expected overwrite, got %d entries", len(cfg.Servers))
	}
	if cfg.Servers["s1"].Args[0] != "two" {
		t.Errorf("expected second entry to win, got %v", cfg.Servers["s1"].Args)
	}
}

func TestApply_Idempotent(t *testing.T) {
	entry := &ServerEntry{Name: "s1", Command: "npx", Args: []string{"-y", "pkg"}}

	once := NewConfig()
	Apply(once, entry)

	twice := NewConfig()
	Apply(twice, entry)
	Apply(twice, entry)

	if !reflect.DeepEqual(once.Servers, twice.Servers) {
		t.Error("applying the same entry twice must equal applying it once")
	}
}

func TestApply_PreservesOtherEntries(t *testing.T) {
	cfg := NewConfig()
	cfg.Extra["theme"] = "dark"
	Apply(cfg, &ServerEntry{Name: "a", Command: "npx"})
	Apply(cfg, &ServerEntry{Name: "b", Command: "uvx"})

	if len(cfg.Servers) != 2 {
		t.Errorf("expected both entries, got %v", cfg.Names())
	}
	if cfg.Extra["theme"] != "dark" {
		t.Error("unrecognized key lost on apply")
	}
}

func TestRemove(t *testing.T) {
	cfg := NewConfig()
	Apply(cfg, &ServerEntry{Name: "s1", Command: "npx"})

	if err := Remove(cfg, "s1"); err != nil {
		t.Fatalf("Remove(): %v", err)
	}
	if len(cfg.Servers) != 0 {
		t.Error("entry not removed")
	}
}

func TestRemove_NotFound(t *testing.T) {
	cfg := NewConfig()
	err := Remove(cfg, "ghost")
	if !errors.Is(err, ErrServerNotFound) {
		t.Errorf("expected ErrServerNotFound, got %v", err)
	}
}

func TestPersist_AtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := NewConfig()
	Apply(cfg, &ServerEntry{Name: "s1", Command: "npx"})
	if err := Persist(cfg, path); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "config.json" {
		t.Errorf("expected only the config file, found %d entries", len(entries))
	}
}

func TestPersist_RemovesTempOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	// A directory squatting on the temp path makes the write itself
	// fail, exercising the cleanup branch before the rename.
	if err := os.Mkdir(path+".tmp", 0755); err != nil {
		t.Fatal(err)
	}

	if err := Persist(NewConfig(), path); err == nil {
		t.Fatal("expected Persist to fail when the temp file cannot be written")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp path left behind after a failed write")
	}
	if fileExists(path) {
		t.Error("target must not exist after a failed write")
	}
}

func TestPersist_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Claude", "claude_desktop_config.json")
	if err := Persist(NewConfig(), path); err != nil {
		t.Fatalf("Persist(): %v", err)
	}
	if !fileExists(path) {
		t.Error("config file not created")
	}
}
