// Package config loads runtime configuration: a .env file if present, then
// environment variables, then an optional YAML config file whose values win
// over the environment for everything except API keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jgowrie/advocate/internal/pattern"
	"github.com/jgowrie/advocate/internal/policy"
)

// Config is the resolved runtime configuration.
type Config struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	// LookupBaseURL is the case-law database endpoint base.
	LookupBaseURL string `yaml:"lookup_base_url"`
	// LookupTimeout bounds each existence check.
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
	// CacheCapacity bounds the verification cache.
	CacheCapacity int `yaml:"cache_capacity"`

	// Breaker thresholds for the online verifier.
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerWindow    time.Duration `yaml:"breaker_window"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`

	// SearchBaseURL and SearchAPIKey configure the web search client.
	SearchBaseURL string `yaml:"search_base_url"`
	SearchAPIKey  string `yaml:"-"`

	// VectorHost is the Weaviate host for precedent retrieval.
	VectorHost   string `yaml:"vector_host"`
	VectorScheme string `yaml:"vector_scheme"`

	// TemplateDir overrides embedded prompt templates file-by-file.
	TemplateDir string `yaml:"template_dir"`
	// AuditPath is the JSONL audit log destination.
	AuditPath string `yaml:"audit_path"`

	// PatternRules overlays the built-in pattern rule tables.
	PatternRules pattern.Rules `yaml:"pattern_rules"`
	// Policies replaces registered command policies.
	Policies []policy.Policy `yaml:"policies"`
}

// Defaults that apply before any file or environment value.
const (
	defaultProvider  = "anthropic"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultLookupURL = "https://www.austlii.edu.au/cgi-bin/viewdoc/au/cases"
)

// Load resolves configuration. path names an explicit YAML config file; when
// empty, $ADVOCATE_CONFIG and then the default location are tried, and a
// missing file is not an error.
func Load(path string) (Config, error) {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg := Config{
		Provider:      envOr("ADVOCATE_PROVIDER", defaultProvider),
		Model:         envOr("ADVOCATE_MODEL", defaultModel),
		LookupBaseURL: envOr("ADVOCATE_LOOKUP_URL", defaultLookupURL),
		LookupTimeout: 3 * time.Second,
		CacheCapacity: 0, // vcache applies its own default
		SearchBaseURL: os.Getenv("ADVOCATE_SEARCH_URL"),
		SearchAPIKey:  os.Getenv("ADVOCATE_SEARCH_KEY"),
		VectorHost:    envOr("ADVOCATE_VECTOR_HOST", "localhost:8080"),
		VectorScheme:  envOr("ADVOCATE_VECTOR_SCHEME", "http"),
		AuditPath:     defaultAuditPath(),
	}
	if v := os.Getenv("ADVOCATE_CACHE_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: ADVOCATE_CACHE_CAPACITY: %w", err)
		}
		cfg.CacheCapacity = n
	}

	explicit := path != ""
	if path == "" {
		path = os.Getenv("ADVOCATE_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		return cfg, nil // no config file; environment + defaults apply
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	for _, p := range cfg.Policies {
		if err := policy.Override(p); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Rules returns the effective pattern rule tables: built-in defaults with
// any configured overlay merged in.
func (c Config) Rules() pattern.Rules {
	return pattern.DefaultRules().Merge(c.PatternRules)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "advocate", "config.yaml")
}

func defaultAuditPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "advocate", "audit.jsonl")
}
