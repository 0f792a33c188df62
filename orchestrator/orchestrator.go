package orchestrator

import (
	"context"
	"time"

	"github.com/triagekit/probekit/logging"
	"github.com/triagekit/probekit/results"
	"github.com/triagekit/probekit/runner"
	"github.com/triagekit/probekit/tool"
)

// Config configures an Orchestrator.
type Config struct {
	Registry *tool.Registry
	Runner   *runner.Runner
	Store    *results.Store
	Logger   *logging.Logger

	// Now overrides the clock used for staleness checks. Tests only.
	Now func() time.Time
}

// Orchestrator ties the registry, runner, and store together behind the
// operations collaborators call.
type Orchestrator struct {
	registry *tool.Registry
	runner   *runner.Runner
	store    *results.Store
	log      *logging.Logger
	now      func() time.Time
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		registry: cfg.Registry,
		runner:   cfg.Runner,
		store:    cfg.Store,
		log:      cfg.Logger.WithComponent("orchestrator"),
		now:      cfg.Now,
	}
}

// List returns the enabled tool descriptors, sorted by title.
func (o *Orchestrator) List() []tool.Descriptor {
	return o.registry.List()
}

// Run executes the tool with the given id.
func (o *Orchestrator) Run(ctx context.Context, req tool.Request) (*results.RunResult, error) {
	return o.runner.Execute(ctx, req)
}

// LastResult returns the cached result for a tool id, if any.
func (o *Orchestrator) LastResult(id string) (*results.RunResult, bool) {
	return o.store.Get(id)
}

// EnsureFresh reruns every enabled auto-run tool whose cached result is
// stale, waiting for all refreshes to finish. A failing tool is logged
// and does not block the remaining tools.
func (o *Orchestrator) EnsureFresh(ctx context.Context) {
	for _, d := range o.registry.List() {
		if !d.AutoRun {
			continue
		}

		if last, ok := o.store.Get(d.ID); ok {
			age := last.Age(o.now())
			if last.Success && age <= d.RefreshInterval {
				o.log.RefreshSkipped(d.ID, age)
				continue
			}
		}

		// Forced so the refresh never attaches to an in-flight manual run.
		_, err := o.runner.Execute(ctx, tool.Request{
			ToolID: d.ID,
			Reason: tool.ReasonAuto,
			Force:  true,
		})
		if err != nil {
			o.log.RefreshError(d.ID, err)
		}
	}
}

// Close flushes pending background persistence.
func (o *Orchestrator) Close() error {
	return o.store.Close()
}
