package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/colonyops/promptstack/internal/core/config"
)

// CredentialsCheck verifies the secrets needed to talk to the LLM provider
// and GitHub are present.
type CredentialsCheck struct {
	creds    config.Credentials
	provider string
}

// NewCredentialsCheck creates a credentials check for the given provider.
func NewCredentialsCheck(creds config.Credentials, provider string) *CredentialsCheck {
	return &CredentialsCheck{creds: creds, provider: provider}
}

func (c *CredentialsCheck) Name() string {
	return "Credentials"
}

func (c *CredentialsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	llmLabel := fmt.Sprintf("LLM API key (%s)", c.provider)
	if err := c.creds.CheckLLM(c.provider); err != nil {
		result.Items = append(result.Items, CheckItem{Label: llmLabel, Status: StatusFail, Detail: err.Error()})
	} else {
		result.Items = append(result.Items, CheckItem{Label: llmLabel, Status: StatusPass})
	}

	switch {
	case c.creds.HasGitHubApp():
		item := CheckItem{Label: "GitHub App", Status: StatusPass, Detail: fmt.Sprintf("app %d, installation %d", c.creds.GitHubAppID, c.creds.GitHubInstallationID)}
		if _, err := os.Stat(c.creds.GitHubAppPrivateKeyPath); err != nil {
			item.Status = StatusFail
			item.Detail = fmt.Sprintf("private key not readable: %v", err)
		}
		result.Items = append(result.Items, item)
	case c.creds.GitHubToken != "":
		result.Items = append(result.Items, CheckItem{Label: "GitHub token", Status: StatusPass})
	default:
		result.Items = append(result.Items, CheckItem{Label: "GitHub credentials", Status: StatusFail, Detail: c.creds.CheckGitHub().Error()})
	}

	return result
}
