package tool

import (
	"os"
	"time"
)

// Fixed policy defaults applied when a declaration leaves them unset.
const (
	DefaultRefreshInterval = 5 * time.Minute
	DefaultTimeout         = 30 * time.Second
)

// OutputType tags how captured stdout should be interpreted.
type OutputType string

const (
	// OutputRaw keeps stdout as plain text.
	OutputRaw OutputType = "raw"

	// OutputStructured decodes stdout as JSON into a structured payload.
	OutputStructured OutputType = "structured"
)

// Provenance records where a descriptor came from.
type Provenance string

const (
	ProvenanceBuiltin Provenance = "builtin"
	ProvenanceUser    Provenance = "user"
)

// Reason tags why an execution was requested.
type Reason string

const (
	ReasonManual Reason = "manual"
	ReasonAuto   Reason = "auto"
)

// Descriptor is the static definition of one runnable tool. Descriptors are
// immutable once resolved; token substitution has already been applied to
// the invocation fields.
type Descriptor struct {
	ID          string
	Title       string
	Description string

	// Invocation
	Command string
	Args    []string
	Cwd     string
	Env     map[string]string
	Shell   bool

	// Policy
	Enabled         bool
	AutoRun         bool
	RefreshInterval time.Duration
	Timeout         time.Duration // zero disables the execution timer
	OutputType      OutputType

	Provenance Provenance
}

// Request describes one execution request. Ephemeral, created per call.
type Request struct {
	ToolID string
	Reason Reason

	// Force bypasses in-flight deduplication and any staleness check.
	Force bool
}

// Declaration is one user-supplied tool entry from the settings store,
// before defaults and token substitution are applied. Pointer fields
// distinguish "unset" from an explicit zero.
type Declaration struct {
	ID                string
	Title             string
	Description       string
	Command           string
	Args              []string
	Cwd               string
	Env               map[string]string
	Enabled           *bool
	AutoRun           *bool
	RefreshIntervalMs *int64
	TimeoutMs         *int64
	Shell             *bool
	OutputType        string
}

// IsDisableDirective reports whether this declaration only switches an
// existing id off: enabled = false with no invocation fields.
func (d Declaration) IsDisableDirective() bool {
	return d.Command == "" && d.Enabled != nil && !*d.Enabled
}

// Workspace is the ambient host context tokens resolve against. It is passed
// in explicitly so resolution never reads mutable globals.
type Workspace struct {
	// Root is the active project root. Empty falls back to the process
	// working directory.
	Root string

	// InstallRoot is the install root of the hosting system
	// (${extensionRoot}).
	InstallRoot string

	// Interpreter is the path of the runtime interpreter used by builtin
	// scripted tools (${node}).
	Interpreter string
}

// EffectiveRoot returns the workspace root, falling back to the process
// working directory when no project is open.
func (w Workspace) EffectiveRoot() string {
	if w.Root != "" {
		return w.Root
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
