package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// ValidateDeep performs comprehensive validation of the configuration including
// glob patterns, endpoint URLs, and file accessibility. The configPath argument
// specifies the config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateEndpoints(),
		c.validatePaths(),
	)
}

// validateFileAccess checks config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	return criterio.ValidateStruct(
		criterio.Run("llm.base_url", c.LLM.BaseURL, isHTTPURL),
		criterio.Run("github.api_url", c.GitHub.APIURL, isHTTPURL),
	)
}

func isHTTPURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}
	return nil
}

// validatePaths checks protected path globs compile and always-read entries are usable.
func (c *Config) validatePaths() error {
	var errs criterio.FieldErrorsBuilder

	for i, pattern := range c.Agent.ProtectedPaths {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("agent.protected_paths[%d]", i), fmt.Errorf("invalid glob %q", pattern))
		}
	}

	for i, p := range c.Agent.AlwaysRead {
		if p == "" {
			errs = errs.Append(fmt.Sprintf("agent.always_read[%d]", i), fmt.Errorf("path cannot be empty"))
		}
	}

	return errs.ToError()
}
