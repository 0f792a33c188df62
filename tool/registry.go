package tool

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/triagekit/probekit/errors"
	"github.com/triagekit/probekit/logging"
)

// Registry holds the merged set of builtin and user-declared tools. The
// resolved set is replaced wholesale on every Reload; readers never see a
// partially applied configuration.
type Registry struct {
	mu       sync.RWMutex
	resolved map[string]Descriptor
	disabled map[string]bool
	log      *logging.Logger
}

// NewRegistry creates an empty registry. Call Reload before use.
func NewRegistry(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.New()
	}
	return &Registry{
		resolved: make(map[string]Descriptor),
		disabled: make(map[string]bool),
		log:      log.WithComponent("registry"),
	}
}

// Reload rebuilds the resolved set from the builtin table and user
// declarations, in declaration order, resolving tokens against ws. Reload
// is idempotent: identical input yields an identical resolved set.
func (r *Registry) Reload(builtins []Descriptor, decls []Declaration, ws Workspace) {
	resolved := make(map[string]Descriptor, len(builtins)+len(decls))
	disabled := make(map[string]bool)

	for _, b := range builtins {
		resolved[b.ID] = normalize(b, ProvenanceBuiltin).expand(ws)
	}

	for _, decl := range decls {
		if decl.ID == "" {
			r.log.Warn("declaration_skipped", map[string]interface{}{"reason": "missing id"})
			continue
		}
		if decl.IsDisableDirective() {
			delete(resolved, decl.ID)
			disabled[decl.ID] = true
			continue
		}
		if decl.Command == "" {
			r.log.Warn("declaration_skipped", map[string]interface{}{
				"id":     decl.ID,
				"reason": "missing command",
			})
			continue
		}
		resolved[decl.ID] = fromDeclaration(decl).expand(ws)
		delete(disabled, decl.ID)
	}

	r.mu.Lock()
	r.resolved = resolved
	r.disabled = disabled
	r.mu.Unlock()

	r.log.RegistryReload(len(resolved), len(disabled))
}

// List returns the enabled descriptors, sorted by title.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.resolved))
	for _, d := range r.resolved {
		if d.Enabled {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := strings.ToLower(out[i].Title), strings.ToLower(out[j].Title)
		if ti != tj {
			return ti < tj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Resolve returns the descriptor for id. It fails with TOOL_DISABLED when
// the id has been switched off and TOOL_NOT_FOUND when it never resolved.
func (r *Registry) Resolve(id string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.resolved[id]; ok {
		if !d.Enabled {
			return Descriptor{}, errors.Newf(errors.ErrCodeToolDisabled, "tool %q is disabled", id)
		}
		return d, nil
	}
	if r.disabled[id] {
		return Descriptor{}, errors.Newf(errors.ErrCodeToolDisabled, "tool %q is disabled", id)
	}
	return Descriptor{}, errors.Newf(errors.ErrCodeToolNotFound, "no tool registered with id %q", id)
}

// normalize fills policy defaults on a table descriptor.
func normalize(d Descriptor, prov Provenance) Descriptor {
	if d.Title == "" {
		d.Title = d.ID
	}
	if d.OutputType == "" {
		d.OutputType = OutputRaw
	}
	if d.RefreshInterval <= 0 {
		d.RefreshInterval = DefaultRefreshInterval
	}
	d.Provenance = prov
	return d
}

// fromDeclaration constructs a full descriptor from a user declaration,
// applying the fixed defaults.
func fromDeclaration(decl Declaration) Descriptor {
	d := Descriptor{
		ID:              decl.ID,
		Title:           decl.Title,
		Description:     decl.Description,
		Command:         decl.Command,
		Args:            append([]string(nil), decl.Args...),
		Cwd:             decl.Cwd,
		Enabled:         true,
		AutoRun:         false,
		RefreshInterval: DefaultRefreshInterval,
		Timeout:         DefaultTimeout,
		OutputType:      OutputRaw,
		Provenance:      ProvenanceUser,
	}
	if len(decl.Env) > 0 {
		d.Env = make(map[string]string, len(decl.Env))
		for k, v := range decl.Env {
			d.Env[k] = v
		}
	}
	if d.Title == "" {
		d.Title = d.ID
	}
	if decl.Enabled != nil {
		d.Enabled = *decl.Enabled
	}
	if decl.AutoRun != nil {
		d.AutoRun = *decl.AutoRun
	}
	if decl.RefreshIntervalMs != nil {
		d.RefreshInterval = time.Duration(*decl.RefreshIntervalMs) * time.Millisecond
	}
	if decl.TimeoutMs != nil {
		d.Timeout = time.Duration(*decl.TimeoutMs) * time.Millisecond
	}
	if decl.Shell != nil {
		d.Shell = *decl.Shell
	}
	if decl.OutputType == string(OutputStructured) {
		d.OutputType = OutputStructured
	}
	return d
}
