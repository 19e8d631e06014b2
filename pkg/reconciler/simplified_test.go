package reconciler

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func baseConfig() *Config {
	cfg := NewConfig()
	cfg.Extra["theme"] = "dark"
	Apply(cfg, &ServerEntry{
		Name:    "s1",
		Command: "npx",
		Args:    []string{"-y", "pkg-one"},
	})
	Apply(cfg, &ServerEntry{
		Name:    "s2",
		Command: "uvx",
		Args:    []string{"pkg-two"},
		Env:     map[string]string{"KEY": "v"},
	})
	return cfg
}

func TestToSimplified(t *testing.T) {
	s := ToSimplified(baseConfig())

	if len(s) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(s))
	}
	for name, se := range s {
		if !se.IsEnabled() {
			t.Errorf("%s: present entries are implicitly enabled", name)
		}
	}
	if s["s2"].Env["KEY"] != "v" {
		t.Errorf("env lost in projection: %v", s["s2"].Env)
	}
	if _, ok := s["theme"]; ok {
		t.Error("unrecognized top-level key must not appear as a server")
	}
}

func TestFromSimplified_DisabledRemoved(t *testing.T) {
	base := baseConfig()
	s := Simplified{
		"s1": {Command: "npx", Args: []string{"-y", "pkg-one"}, Enabled: boolPtr(false)},
	}

	got := FromSimplified(s, base)
	if _, ok := got.Servers["s1"]; ok {
		t.Error("disabled entry should be removed from the result")
	}
	if _, ok := got.Servers["s2"]; !ok {
		t.Error("omitted entry should be left unchanged")
	}
	// Base is not mutated.
	if _, ok := base.Servers["s1"]; !ok {
		t.Error("FromSimplified must not mutate the base config")
	}
}

func TestFromSimplified_EnabledUpserted(t *testing.T) {
	base := baseConfig()
	s := Simplified{
		"s1": {Command: "npx", Args: []string{"-y", "pkg-one", "--verbose"}, Enabled: boolPtr(true)},
		"s3": {Command: "docker", Args: []string{"run", "img"}, Enabled: boolPtr(true)},
	}

	got := FromSimplified(s, base)
	if !reflect.DeepEqual(got.Servers["s1"].Args, []string{"-y", "pkg-one", "--verbose"}) {
		t.Errorf("edited entry not applied: %v", got.Servers["s1"].Args)
	}
	if got.Servers["s3"] == nil || got.Servers["s3"].Command != "docker" {
		t.Error("new enabled entry not added")
	}
	if got.Servers["s2"] == nil {
		t.Error("omitted entry dropped")
	}
}

func TestFromSimplified_OmittedEnabledMeansEnabled(t *testing.T) {
	// Hand-edited files often drop the "enabled" line entirely. That
	// must read as enabled: anything else uninstalls servers behind
	// the user's back.
	path := filepath.Join(t.TempDir(), "simplified.json")
	raw := `{
  "s1": {"command": "node", "args": ["/opt/server.js"]},
  "s9": {"command": "uvx", "args": ["pkg-nine"]}
}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSimplified(path)
	if err != nil {
		t.Fatal(err)
	}
	for name, se := range s {
		if !se.IsEnabled() {
			t.Errorf("%s: omitted enabled key must read as enabled", name)
		}
	}

	got := FromSimplified(s, baseConfig())
	if _, ok := got.Servers["s1"]; !ok {
		t.Error("existing entry deleted by an omitted enabled key")
	}
	if _, ok := got.Servers["s9"]; !ok {
		t.Error("new entry without an enabled key should be added")
	}
	if _, ok := got.Servers["s2"]; !ok {
		t.Error("entry absent from the file should be left unchanged")
	}
}

func TestFromSimplified_CarriesUnmodeledEntryFields(t *testing.T) {
	// An upsert over an existing entry keeps fields the tool does not
	// model, e.g. "type": "sse".
	base := baseConfig()
	base.Servers["s1"].extra = map[string]any{"type": "sse", "url": "http://localhost:3001"}

	s := ToSimplified(base)
	got := FromSimplified(s, base)

	entry := got.Servers["s1"]
	if entry == nil {
		t.Fatal("entry lost")
	}
	if entry.extra["type"] != "sse" || entry.extra["url"] != "http://localhost:3001" {
		t.Errorf("unmodeled entry fields lost through import/apply: %v", entry.extra)
	}
}

func TestFromSimplified_PreservesUnknownTopLevelKeys(t *testing.T) {
	base := baseConfig()
	got := FromSimplified(Simplified{}, base)
	if got.Extra["theme"] != "dark" {
		t.Errorf("unrecognized top-level key lost: %v", got.Extra)
	}
}

func TestSimplified_EditRoundTrip(t *testing.T) {
	// A config with an unrecognized key survives import -> edit ->
	// apply unchanged.
	path := filepath.Join(t.TempDir(), "config.json")
	base := baseConfig()
	if err := Persist(base, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s := ToSimplified(loaded)

	// Edit: disable s2.
	se := s["s2"]
	se.Enabled = boolPtr(false)
	s["s2"] = se

	merged := FromSimplified(s, loaded)
	if err := Persist(merged, path); err != nil {
		t.Fatal(err)
	}

	final, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if final.Extra["theme"] != "dark" {
		t.Error("unrecognized key did not survive the edit cycle")
	}
	if _, ok := final.Servers["s2"]; ok {
		t.Error("disabled entry still present after apply")
	}
	if _, ok := final.Servers["s1"]; !ok {
		t.Error("enabled entry lost")
	}
}

func TestSaveLoadSimplified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude_desktop_simplified.json")
	s := ToSimplified(baseConfig())

	if err := SaveSimplified(s, path); err != nil {
		t.Fatalf("SaveSimplified(): %v", err)
	}

	got, err := LoadSimplified(path)
	if err != nil {
		t.Fatalf("LoadSimplified(): %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("simplified config did not round-trip:\n got %+v\nwant %+v", got, s)
	}
}

func TestLoadSimplified_Missing(t *testing.T) {
	if _, err := LoadSimplified(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing simplified file")
	}
}
