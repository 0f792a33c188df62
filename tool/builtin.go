package tool

// WorkspaceSnapshotID is the id of the default builtin tool.
const WorkspaceSnapshotID = "builtin.workspaceSnapshot"

// workspaceSnapshotScript gathers version-control status, recent history
// and manifest metadata from the project root. It runs through the same
// path as any user tool.
const workspaceSnapshotScript = `git status --porcelain=v2 --branch 2>/dev/null
git log --oneline -n 15 2>/dev/null
for f in go.mod package.json Cargo.toml pyproject.toml; do
  if [ -f "$f" ]; then
    echo "--- $f"
    head -n 20 "$f"
  fi
done`

// Builtins returns the fixed builtin descriptor table. Callers receive a
// fresh slice on every call; the table itself is never mutated.
func Builtins() []Descriptor {
	return []Descriptor{
		{
			ID:              WorkspaceSnapshotID,
			Title:           "Workspace snapshot",
			Description:     "Version-control status, recent history and manifest metadata for the active project.",
			Command:         workspaceSnapshotScript,
			Cwd:             "${workspaceRoot}",
			Shell:           true,
			Enabled:         true,
			AutoRun:         true,
			RefreshInterval: DefaultRefreshInterval,
			Timeout:         DefaultTimeout,
			OutputType:      OutputRaw,
			Provenance:      ProvenanceBuiltin,
		},
	}
}
