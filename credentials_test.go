package modelbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCredential_Precedence(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-primary")
	t.Setenv("GOOGLE_API_KEY", "env-alias")

	cfg := Config{Gemini: ProviderConfig{APIKey: "cfg-key"}}

	// Explicit override wins.
	key, err := resolveCredential(ProviderGemini, "override", cfg)
	require.NoError(t, err)
	assert.Equal(t, "override", key)

	// Then the primary environment variable.
	key, err = resolveCredential(ProviderGemini, "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "env-primary", key)

	// Then the documented alias.
	t.Setenv("GEMINI_API_KEY", "")
	key, err = resolveCredential(ProviderGemini, "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "env-alias", key)

	// Then the persisted config value.
	t.Setenv("GOOGLE_API_KEY", "")
	key, err = resolveCredential(ProviderGemini, "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "cfg-key", key)
}

func TestResolveCredential_Missing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := resolveCredential(ProviderOpenAI, "", Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
