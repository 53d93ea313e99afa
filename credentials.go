package modelbridge

import (
	"fmt"
	"os"
)

// Environment variables consulted for credentials, in order.
var credentialEnvVars = map[ProviderID][]string{
	ProviderOpenAI: {"OPENAI_API_KEY"},
	ProviderGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// resolveCredential returns the API key for a provider using the precedence
// order: explicit override, environment, persisted config. A request with no
// resolvable credential fails here, before any request is built or any
// network call is made.
func resolveCredential(id ProviderID, override string, cfg Config) (string, error) {
	if override != "" {
		return override, nil
	}
	for _, name := range credentialEnvVars[id] {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	if v := cfg.apiKeyFor(id); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w for provider %s: set %s or configure %s.api_key",
		ErrMissingCredential, id, envVarNames(id), id)
}

func envVarNames(id ProviderID) string {
	names := credentialEnvVars[id]
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		out := names[0]
		for _, n := range names[1:] {
			out += " or " + n
		}
		return out
	}
}
