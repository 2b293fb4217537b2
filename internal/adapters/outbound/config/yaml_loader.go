package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// FileName is the configuration file read from the repository root.
const FileName = ".reabsorb.yaml"

// Environment variables that override the file.
const (
	EnvStrategy    = "GIT_REABSORB_STRATEGY"
	EnvLLMProvider = "GIT_REABSORB_LLM_PROVIDER"
	EnvLLMModel    = "GIT_REABSORB_LLM_MODEL"
	EnvLLMBaseURL  = "GIT_REABSORB_LLM_BASE_URL"
)

// YAMLLoader implements domain.ConfigLoader by reading .reabsorb.yaml,
// then .env, then the environment.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads .reabsorb.yaml from repoRoot over the defaults. A missing file
// yields the defaults.
func (l *YAMLLoader) Load(repoRoot string) (domain.Config, error) {
	// 1. .env never overrides variables already set
	if err := godotenv.Load(filepath.Join(repoRoot, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.Config{}, fmt.Errorf("reading .env: %w", err)
	}

	// 2. YAML over defaults
	cfg := domain.DefaultConfig()
	data, err := os.ReadFile(filepath.Join(repoRoot, FileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return domain.Config{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return domain.Config{}, fmt.Errorf("parsing %s: %w", FileName, err)
		}
	}

	// 3. Environment
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return cfg, nil
}

func applyEnv(cfg *domain.Config) {
	if v := os.Getenv(EnvStrategy); v != "" {
		cfg.Strategy = v
	}
	if v := os.Getenv(EnvLLMProvider); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv(EnvLLMModel); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv(EnvLLMBaseURL); v != "" {
		cfg.LLM.BaseURL = v
	}
	cfg.LLM.APIKey = APIKey(cfg.LLM.Provider)
}

// APIKey returns the key for provider from the environment. The claude
// provider authenticates through its own CLI and needs none.
func APIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		if k := os.Getenv("GEMINI_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}
