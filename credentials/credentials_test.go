package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCreds(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.toml")
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStandardPaths(t *testing.T) {
	paths := StandardPaths()
	if len(paths) == 0 {
		t.Fatal("expected at least one standard path")
	}
	if paths[0] != "credentials.toml" {
		t.Errorf("first path = %q, want current directory", paths[0])
	}
}

func TestLoadFile(t *testing.T) {
	path := writeCreds(t, `
[anthropic]
api_key = "sk-ant-test"

[openai]
api_key = "sk-oai-test"
`, 0400)

	creds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := creds.GetAPIKey("anthropic"); got != "sk-ant-test" {
		t.Errorf("anthropic key = %q", got)
	}
	if got := creds.GetAPIKey("openai"); got != "sk-oai-test" {
		t.Errorf("openai key = %q", got)
	}
}

func TestLoadFileGenericLLMSection(t *testing.T) {
	path := writeCreds(t, `
[llm]
api_key = "sk-generic"
`, 0400)

	creds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := creds.GetAPIKey("anthropic"); got != "sk-generic" {
		t.Errorf("expected fallback to [llm], got %q", got)
	}
}

func TestLoadFileProviderOverridesLLM(t *testing.T) {
	path := writeCreds(t, `
[llm]
api_key = "sk-generic"

[google]
api_key = "sk-google"
`, 0400)

	creds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := creds.GetAPIKey("google"); got != "sk-google" {
		t.Errorf("provider section should win, got %q", got)
	}
	if got := creds.GetAPIKey("openai"); got != "sk-generic" {
		t.Errorf("others fall back to [llm], got %q", got)
	}
}

func TestLoadFileInsecurePermissions(t *testing.T) {
	path := writeCreds(t, `
[llm]
api_key = "sk-test"
`, 0644)

	_, err := LoadFile(path)
	if !errors.Is(err, ErrInsecurePermissions) {
		t.Errorf("expected ErrInsecurePermissions, got %v", err)
	}
}

func TestGetAPIKeyFallbackToEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")

	var creds *Credentials
	if got := creds.GetAPIKey("anthropic"); got != "sk-from-env" {
		t.Errorf("nil credentials should use env, got %q", got)
	}
}

func TestGetAPIKeyGenericEnvVar(t *testing.T) {
	t.Setenv("MY_PROVIDER_API_KEY", "sk-custom")

	var creds *Credentials
	if got := creds.GetAPIKey("my-provider"); got != "sk-custom" {
		t.Errorf("generic env var lookup failed, got %q", got)
	}
}
