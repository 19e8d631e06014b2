package registry

import (
	"strings"
	"testing"
)

func validDescriptor() *Descriptor {
	return &Descriptor{
		ID:           "filesystem",
		Name:         "Filesystem Server",
		Description:  "File operations",
		Category:     CategoryOfficial,
		Method:       MethodNPM,
		Command:      "npx",
		ArgsTemplate: []string{"-y", "@modelcontextprotocol/server-filesystem", "<path>"},
		RequiredArgs: []string{"path"},
	}
}

func TestDescriptor_Validate(t *testing.T) {
	if err := validDescriptor().Validate(); err != nil {
		t.Fatalf("Validate() on valid descriptor: %v", err)
	}
}

func TestDescriptor_Validate_UndeclaredPlaceholder(t *testing.T) {
	d := validDescriptor()
	d.RequiredArgs = nil
	err := d.Validate()
	if err == nil {
		t.Fatal("expected error for placeholder not declared as an argument")
	}
	if !strings.Contains(err.Error(), "<path>") {
		t.Errorf("error should name the placeholder, got: %v", err)
	}
}

func TestDescriptor_Validate_InvalidID(t *testing.T) {
	d := validDescriptor()
	d.ID = "has spaces"
	if err := d.Validate(); err == nil {
		t.Error("expected error for id with spaces")
	}
}

func TestDescriptor_Validate_EmptyCommand(t *testing.T) {
	d := validDescriptor()
	d.Command = ""
	if err := d.Validate(); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestDescriptor_Validate_DefaultsCategory(t *testing.T) {
	d := validDescriptor()
	d.Category = ""
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
	if d.Category != CategoryCustom {
		t.Errorf("expected empty category to default to custom, got %s", d.Category)
	}
}

func TestDescriptor_Validate_MethodVariants(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Descriptor)
		wantErr bool
	}{
		{"git without detail", func(d *Descriptor) {
			d.Method = MethodGit
		}, true},
		{"git with detail", func(d *Descriptor) {
			d.Method = MethodGit
			d.Git = &GitSpec{URL: "https://github.com/example/mcp"}
		}, false},
		{"git detail without url", func(d *Descriptor) {
			d.Method = MethodGit
			d.Git = &GitSpec{}
		}, true},
		{"docker without detail", func(d *Descriptor) {
			d.Method = MethodDocker
		}, true},
		{"docker with image", func(d *Descriptor) {
			d.Method = MethodDocker
			d.Docker = &DockerSpec{Image: "mcp/github"}
		}, false},
		{"script without platforms", func(d *Descriptor) {
			d.Method = MethodScript
			d.Script = &ScriptSpec{}
		}, true},
		{"script with platforms", func(d *Descriptor) {
			d.Method = MethodScript
			d.Command = ""
			d.Script = &ScriptSpec{Platforms: map[string]PlatformLaunch{
				"linux": {Command: "sh", ArgsTemplate: []string{"-c", "{executable_path}"}},
			}}
		}, false},
		{"npm with stray git detail", func(d *Descriptor) {
			d.Git = &GitSpec{URL: "https://github.com/example/mcp"}
		}, true},
		{"unknown method", func(d *Descriptor) {
			d.Method = "brew"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDescriptor()
			tt.mutate(d)
			err := d.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestDescriptor_Placeholders(t *testing.T) {
	d := &Descriptor{
		ArgsTemplate: []string{"-y", "pkg", "<path>", "--db=<path>", "PEXELS_API_KEY=<api_key>"},
	}
	got := d.Placeholders()
	want := []string{"path", "api_key"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("placeholder[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
}
