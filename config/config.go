// Package config loads the probekit configuration from TOML.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/triagekit/probekit/tool"
)

// Config is the full configuration for a probekit instance.
type Config struct {
	// LogLevel is one of debug, info, warn, error. Default info.
	LogLevel string `toml:"log_level"`

	// WorkspaceID scopes persisted results to one project. Defaults to
	// the workspace root.
	WorkspaceID string `toml:"workspace_id"`

	Workspace WorkspaceConfig `toml:"workspace"`
	Tools     []ToolConfig    `toml:"tools"`
	State     StateConfig     `toml:"state"`
	Bus       BusConfig       `toml:"bus"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Tracing   TracingConfig   `toml:"tracing"`
	LLM       LLMConfig       `toml:"llm"`
}

// WorkspaceConfig locates the project and host roots tokens resolve
// against.
type WorkspaceConfig struct {
	Root        string `toml:"root"`
	InstallRoot string `toml:"install_root"`
	Interpreter string `toml:"interpreter"`
}

// ToolConfig is one declared tool entry. Pointer fields distinguish
// "unset" from an explicit zero.
type ToolConfig struct {
	ID                string            `toml:"id"`
	Title             string            `toml:"title"`
	Description       string            `toml:"description"`
	Command           string            `toml:"command"`
	Args              []string          `toml:"args"`
	Cwd               string            `toml:"cwd"`
	Env               map[string]string `toml:"env"`
	Enabled           *bool             `toml:"enabled"`
	AutoRun           *bool             `toml:"auto_run"`
	RefreshIntervalMs *int64            `toml:"refresh_interval_ms"`
	TimeoutMs         *int64            `toml:"timeout_ms"`
	Shell             *bool             `toml:"shell"`
	OutputType        string            `toml:"output_type"`
}

// StateConfig selects the durable result store.
type StateConfig struct {
	// Backend is "memory" or "nats". Default memory.
	Backend string `toml:"backend"`
	NATSURL string `toml:"nats_url"`
	Bucket  string `toml:"bucket"`
}

// BusConfig selects the completion-event transport.
type BusConfig struct {
	// Backend is "memory" or "nats". Default memory.
	Backend string `toml:"backend"`
	NATSURL string `toml:"nats_url"`
}

// TelemetryConfig selects the run-event exporter.
type TelemetryConfig struct {
	// Protocol is "noop", "file", "http", or "websocket". Default noop.
	Protocol string `toml:"protocol"`
	Endpoint string `toml:"endpoint"`
}

// TracingConfig configures the OpenTelemetry provider. Tracing is off
// unless an endpoint is set here or in the environment.
type TracingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	Protocol string `toml:"protocol"`
	Insecure bool   `toml:"insecure"`
	Debug    bool   `toml:"debug"`
}

// LLMConfig configures the assessment model.
type LLMConfig struct {
	// Provider is "anthropic", "openai", or "google".
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		State:    StateConfig{Backend: "memory"},
		Bus:      BusConfig{Backend: "memory"},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
	}
}

// LoadFile loads configuration from a TOML file. A missing file yields
// the defaults, not an error.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(string(content))
}

// Parse parses configuration from TOML content.
func Parse(content string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.WorkspaceID == "" {
		cfg.WorkspaceID = cfg.Workspace.Root
	}
	return cfg, nil
}

// ToolWorkspace returns the token-resolution workspace.
func (c *Config) ToolWorkspace() tool.Workspace {
	return tool.Workspace{
		Root:        c.Workspace.Root,
		InstallRoot: c.Workspace.InstallRoot,
		Interpreter: c.Workspace.Interpreter,
	}
}

// Declarations converts the declared tool entries in file order.
func (c *Config) Declarations() []tool.Declaration {
	decls := make([]tool.Declaration, 0, len(c.Tools))
	for _, t := range c.Tools {
		decls = append(decls, tool.Declaration{
			ID:                t.ID,
			Title:             t.Title,
			Description:       t.Description,
			Command:           t.Command,
			Args:              t.Args,
			Cwd:               t.Cwd,
			Env:               t.Env,
			Enabled:           t.Enabled,
			AutoRun:           t.AutoRun,
			RefreshIntervalMs: t.RefreshIntervalMs,
			TimeoutMs:         t.TimeoutMs,
			Shell:             t.Shell,
			OutputType:        t.OutputType,
		})
	}
	return decls
}
