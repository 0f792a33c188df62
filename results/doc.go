// Package results holds the normalized outcome of tool executions and the
// store that caches them.
//
// # Overview
//
// Every finished execution produces one RunResult. The Store keeps the
// latest result per tool id (a new run overwrites, never appends), persists
// the whole set asynchronously through a state.Store after every write, and
// rehydrates it at startup. The persisted form mirrors RunResult field for
// field with no schema version; every field is optional on decode so old
// hosts read new records and vice versa.
//
// Persistence failures are logged, never raised: the in-memory value stays
// authoritative for the session. When an event bus is configured, each
// completed run is also published fire-and-forget for host surfaces.
package results
