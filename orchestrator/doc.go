// Package orchestrator is the facade over the tool registry, runner, and
// result store.
//
// # Overview
//
// The orchestrator exposes the surface collaborators program against:
// list the resolved tools, run one by id, fetch the last cached result,
// refresh every stale auto-run tool, and compose the cached results into
// a size-bounded text block for model-facing context.
//
// Freshness is evaluated on demand, never on a background timer. A cached
// result is stale when it is absent, older than the tool's refresh
// interval, or unsuccessful; EnsureFresh forces a rerun of exactly the
// stale auto-run tools and logs per-tool failures without aborting the
// sweep.
package orchestrator
