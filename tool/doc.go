// Package tool defines the descriptor model for runnable CLI tools and the
// registry that resolves them.
//
// # Overview
//
// A Descriptor is the static definition of one external command the
// orchestrator may run: its invocation (command, args, cwd, env, shell flag)
// and its policy (enabled, auto-run, refresh interval, timeout, output
// interpretation). Descriptors come from two places: a fixed builtin table
// and user declarations supplied by the host's settings store. The Registry
// merges the two into a resolved set, applying token substitution against
// the workspace context at resolution time so a recorded run always reflects
// the command that was actually asked for.
//
// # Token substitution
//
// String fields recognize these placeholders:
//
//   - ${workspaceRoot}, ${workspaceFolder}: active project root, falling
//     back to the process working directory
//   - ${extensionRoot}: install root of the hosting system
//   - ${node}: path of the runtime interpreter used by builtin scripted tools
//
// Unknown tokens pass through unchanged.
//
// # Disabling builtins
//
// A user declaration carrying enabled = false and no invocation fields is a
// disable directive: it removes the id from the resolved set (builtin or
// previously declared) without deleting it from the builtin table. The next
// Reload with the directive removed restores the builtin.
//
// # Reload semantics
//
// Reload rebuilds the whole resolved set atomically; readers never observe
// a partially applied configuration, and calling Reload twice with the same
// input yields the same resolved set.
package tool
