package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/promptstack/internal/core/config"
	"github.com/colonyops/promptstack/internal/core/project"
	"github.com/colonyops/promptstack/internal/github"
	"github.com/colonyops/promptstack/internal/llm"
)

// newGitHubClient authenticates with a personal token when present and falls
// back to GitHub App credentials.
func newGitHubClient(cfg *config.Config, creds config.Credentials, logger zerolog.Logger) (*github.Client, error) {
	var tokens github.TokenSource

	switch {
	case creds.GitHubToken != "":
		tokens = github.StaticToken(creds.GitHubToken)
	case creds.HasGitHubApp():
		src, err := github.NewAppTokenSource(creds.GitHubAppID, creds.GitHubInstallationID, creds.GitHubAppPrivateKeyPath, cfg.GitHub.APIURL)
		if err != nil {
			return nil, fmt.Errorf("github app: %w", err)
		}
		tokens = src
	default:
		return nil, creds.CheckGitHub()
	}

	return github.NewClient(github.Options{
		APIURL: cfg.GitHub.APIURL,
		Tokens: tokens,
		Logger: logger,
	})
}

// newChatClient builds the configured provider wrapped with logging, retry
// and per-call timeout middleware.
func newChatClient(ctx context.Context, cfg *config.Config, creds config.Credentials, logger zerolog.Logger) (llm.ChatClient, error) {
	if err := creds.CheckLLM(cfg.LLM.Provider); err != nil {
		return nil, err
	}

	var (
		provider llm.ChatClient
		err      error
	)

	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		provider, err = llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      creds.GeminiAPIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.TemperatureOrDefault(),
		})
	default:
		provider, err = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:      creds.LLMAPIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.TemperatureOrDefault(),
		})
	}
	if err != nil {
		return nil, err
	}

	return llm.Wrap(provider,
		llm.WithLogging(logger),
		llm.Retry(llm.RetryPolicy{
			MaxAttempts: cfg.LLM.MaxAttempts,
			BaseDelay:   cfg.LLM.BaseDelay,
			MaxDelay:    cfg.LLM.MaxDelay,
		}),
		llm.Timeout(cfg.LLM.Timeout),
	), nil
}

// resolveProject loads the project record, creating or re-pointing it when
// repo is given. A repo without an owner uses the configured default owner.
func resolveProject(ctx context.Context, store project.Store, id, repo, defaultOwner string) (project.Record, error) {
	rec, err := store.Get(ctx, id)
	switch {
	case errors.Is(err, project.ErrNotFound):
		if repo == "" {
			return project.Record{}, fmt.Errorf("project %q is not registered; pass --repo owner/name", id)
		}
		rec = project.Record{ID: id}
	case err != nil:
		return project.Record{}, err
	case repo == "":
		return rec, nil
	}

	if !strings.Contains(repo, "/") && !strings.Contains(repo, ":") && defaultOwner != "" {
		repo = defaultOwner + "/" + repo
	}

	owner, name, err := project.ParseRepo(repo)
	if err != nil {
		return project.Record{}, err
	}

	if rec.Owner == owner && rec.Repo == name {
		return rec, nil
	}

	// a different repository invalidates the cached tree
	rec.Owner, rec.Repo = owner, name
	rec.Files, rec.Structure = nil, ""
	if err := store.Save(ctx, rec); err != nil {
		return project.Record{}, fmt.Errorf("save project: %w", err)
	}

	return store.Get(ctx, id)
}

// lockName is the lock file name for a repository.
func lockName(rec project.Record) string {
	return rec.Owner + "_" + rec.Repo
}
