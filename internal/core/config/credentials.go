package config

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMissingCredentials is returned when a required secret is not set.
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials holds secrets read from the environment. They are never read
// from the config file.
type Credentials struct {
	LLMAPIKey    string
	GeminiAPIKey string
	GitHubToken  string

	GitHubAppID             int64
	GitHubInstallationID    int64
	GitHubAppPrivateKeyPath string
}

// CredentialsFromEnv reads credentials using getenv (usually os.Getenv).
func CredentialsFromEnv(getenv func(string) string) Credentials {
	c := Credentials{
		LLMAPIKey:               firstNonEmpty(getenv("BLACKBOX_API_KEY"), getenv("LLM_API_KEY")),
		GeminiAPIKey:            firstNonEmpty(getenv("GEMINI_API_KEY"), getenv("GOOGLE_API_KEY")),
		GitHubToken:             getenv("GITHUB_TOKEN"),
		GitHubAppPrivateKeyPath: getenv("GITHUB_APP_PRIVATE_KEY_PATH"),
	}
	c.GitHubAppID, _ = strconv.ParseInt(getenv("GITHUB_APP_ID"), 10, 64)
	c.GitHubInstallationID, _ = strconv.ParseInt(getenv("GITHUB_APP_INSTALLATION_ID"), 10, 64)
	return c
}

// HasGitHubApp reports whether GitHub App credentials are complete.
func (c Credentials) HasGitHubApp() bool {
	return c.GitHubAppID > 0 && c.GitHubInstallationID > 0 && c.GitHubAppPrivateKeyPath != ""
}

// CheckLLM returns ErrMissingCredentials if the key for provider is unset.
func (c Credentials) CheckLLM(provider string) error {
	switch provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingCredentials)
		}
	default:
		if c.LLMAPIKey == "" {
			return fmt.Errorf("%w: BLACKBOX_API_KEY (or LLM_API_KEY) is not set", ErrMissingCredentials)
		}
	}
	return nil
}

// CheckGitHub returns ErrMissingCredentials if neither a token nor a GitHub App is configured.
func (c Credentials) CheckGitHub() error {
	if c.GitHubToken == "" && !c.HasGitHubApp() {
		return fmt.Errorf("%w: set GITHUB_TOKEN or GITHUB_APP_ID, GITHUB_APP_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY_PATH", ErrMissingCredentials)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
