package modelbridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "expanded-key")

	path := writeConfig(t, `
default_model: gemini-2.0-flash
gemini:
  api_key: ${TEST_GEMINI_KEY}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", cfg.DefaultModel)
	assert.Equal(t, "expanded-key", cfg.Gemini.APIKey)
}

func TestLoadConfig_RejectsBadBaseURLScheme(t *testing.T) {
	path := writeConfig(t, `
openai:
  base_url: ftp://example.com/v1
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
