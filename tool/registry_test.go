package tool

import (
	"reflect"
	"testing"
	"time"

	"github.com/triagekit/probekit/errors"
)

func boolPtr(b bool) *bool  { return &b }
func msPtr(ms int64) *int64 { return &ms }

func TestReloadBuiltins(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Reload(Builtins(), nil, Workspace{Root: "/proj"})

	d, err := reg.Resolve(WorkspaceSnapshotID)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", WorkspaceSnapshotID, err)
	}
	if d.Provenance != ProvenanceBuiltin {
		t.Errorf("Provenance = %v, want builtin", d.Provenance)
	}
	if !d.Shell {
		t.Error("snapshot builtin should request shell interpretation")
	}
	if d.Cwd != "/proj" {
		t.Errorf("Cwd = %q, want substituted /proj", d.Cwd)
	}
}

func TestDeclarationDefaults(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Reload(nil, []Declaration{{ID: "disk.usage", Command: "df", Args: []string{"-h"}}}, Workspace{})

	d, err := reg.Resolve("disk.usage")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Title != "disk.usage" {
		t.Errorf("Title should default to id, got %q", d.Title)
	}
	if d.OutputType != OutputRaw {
		t.Errorf("OutputType should default to raw, got %v", d.OutputType)
	}
	if d.RefreshInterval != DefaultRefreshInterval {
		t.Errorf("RefreshInterval = %v, want default %v", d.RefreshInterval, DefaultRefreshInterval)
	}
	if d.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want default %v", d.Timeout, DefaultTimeout)
	}
	if !d.Enabled || d.AutoRun || d.Shell {
		t.Errorf("policy defaults wrong: enabled=%v autoRun=%v shell=%v", d.Enabled, d.AutoRun, d.Shell)
	}
	if d.Provenance != ProvenanceUser {
		t.Errorf("Provenance = %v, want user", d.Provenance)
	}
}

func TestDeclarationOverrides(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Reload(nil, []Declaration{{
		ID:                "health",
		Command:           "curl",
		Args:              []string{"-s", "localhost:8080/healthz"},
		AutoRun:           boolPtr(true),
		RefreshIntervalMs: msPtr(1000),
		TimeoutMs:         msPtr(0), // explicit zero disables the timer
		OutputType:        "structured",
	}}, Workspace{})

	d, err := reg.Resolve("health")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !d.AutoRun {
		t.Error("AutoRun override lost")
	}
	if d.RefreshInterval != time.Second {
		t.Errorf("RefreshInterval = %v, want 1s", d.RefreshInterval)
	}
	if d.Timeout != 0 {
		t.Errorf("explicit timeout_ms=0 should disable the timer, got %v", d.Timeout)
	}
	if d.OutputType != OutputStructured {
		t.Errorf("OutputType = %v, want structured", d.OutputType)
	}
}

func TestDisableDirectiveRemovesBuiltin(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Reload(Builtins(), []Declaration{{
		ID:      WorkspaceSnapshotID,
		Enabled: boolPtr(false),
	}}, Workspace{})

	if _, err := reg.Resolve(WorkspaceSnapshotID); !errors.Is(err, errors.ErrCodeToolDisabled) {
		t.Errorf("Resolve should fail with TOOL_DISABLED, got %v", err)
	}
	for _, d := range reg.List() {
		if d.ID == WorkspaceSnapshotID {
			t.Error("disabled builtin should not be listed")
		}
	}

	// Reloading without the directive restores the builtin.
	reg.Reload(Builtins(), nil, Workspace{})
	if _, err := reg.Resolve(WorkspaceSnapshotID); err != nil {
		t.Errorf("builtin should be restored after reload, got %v", err)
	}
}

func TestUserOverridesBuiltin(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Reload(Builtins(), []Declaration{{
		ID:      WorkspaceSnapshotID,
		Title:   "Custom snapshot",
		Command: "my-snapshot-tool",
	}}, Workspace{})

	d, err := reg.Resolve(WorkspaceSnapshotID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Command != "my-snapshot-tool" {
		t.Errorf("user declaration should overwrite the builtin, got command %q", d.Command)
	}
	if d.Provenance != ProvenanceUser {
		t.Errorf("Provenance = %v, want user after override", d.Provenance)
	}
}

func TestResolveUnknown(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Reload(Builtins(), nil, Workspace{})

	if _, err := reg.Resolve("no.such.tool"); !errors.Is(err, errors.ErrCodeToolNotFound) {
		t.Errorf("want TOOL_NOT_FOUND, got %v", err)
	}
}

func TestListSortedByTitle(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Reload(nil, []Declaration{
		{ID: "c", Title: "Zeta", Command: "true"},
		{ID: "a", Title: "alpha", Command: "true"},
		{ID: "b", Title: "Beta", Command: "true"},
		{ID: "hidden", Title: "Hidden", Command: "true", Enabled: boolPtr(false)},
	}, Workspace{})

	var titles []string
	for _, d := range reg.List() {
		titles = append(titles, d.Title)
	}
	want := []string{"alpha", "Beta", "Zeta"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("List() titles = %v, want %v", titles, want)
	}
}

func TestReloadIdempotent(t *testing.T) {
	decls := []Declaration{
		{ID: "one", Command: "true"},
		{ID: WorkspaceSnapshotID, Enabled: boolPtr(false)},
	}
	ws := Workspace{Root: "/proj"}

	reg := NewRegistry(nil)
	reg.Reload(Builtins(), decls, ws)
	first := reg.List()

	reg.Reload(Builtins(), decls, ws)
	second := reg.List()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical reload input should yield identical sets:\nfirst  %v\nsecond %v", first, second)
	}
}

func TestReloadSkipsInvalid(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Reload(nil, []Declaration{
		{Title: "no id", Command: "true"},
		{ID: "no.command"}, // not a disable directive, just incomplete
		{ID: "ok", Command: "true"},
	}, Workspace{})

	if len(reg.List()) != 1 {
		t.Errorf("only the valid declaration should resolve, got %d", len(reg.List()))
	}
	if _, err := reg.Resolve("no.command"); !errors.Is(err, errors.ErrCodeToolNotFound) {
		t.Errorf("incomplete declaration should not resolve, got %v", err)
	}
}
