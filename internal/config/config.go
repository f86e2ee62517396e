// Package config loads the YAML configuration with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline modes.
const (
	ModeSingle   = "single"
	ModeCategory = "category"
)

// Index drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverMemory = "memory"
)

// Config holds the talentrag configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Index    IndexConfig    `yaml:"index"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Summary  SummaryConfig  `yaml:"summary"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// OpenAIConfig holds embedding and chat provider settings.
type OpenAIConfig struct {
	APIKey          string       `yaml:"api_key"`
	BaseURL         string       `yaml:"base_url"`
	Provider        string       `yaml:"provider"` // metrics label only
	EmbeddingModel  string       `yaml:"embedding_model"`
	ChatModel       string       `yaml:"chat_model"`
	ExtractionModel string       `yaml:"extraction_model"` // empty uses chat_model
	Dimensions      int          `yaml:"dimensions"`
	BatchSize       int          `yaml:"batch_size"`
	Budget          BudgetConfig `yaml:"budget"`
}

// Budget actions.
const (
	BudgetActionWarn   = "warn"
	BudgetActionReject = "reject"
)

// BudgetConfig holds the embedding token budget.
type BudgetConfig struct {
	DailyTokenLimit      int64   `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit    int64   `yaml:"monthly_token_limit"` // 0 = unlimited
	CostPerMillionTokens float64 `yaml:"cost_per_million_tokens"`
	Action               string  `yaml:"action"` // "reject" | "warn" (default)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Name             string   `yaml:"name"`
	KeyPrefix        string   `yaml:"key_prefix"`
	BatchSize        int      `yaml:"batch_size"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	CacheEmbeddings  bool     `yaml:"cache_embeddings"`
	CacheTTLSec      int      `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// CorpusConfig describes the CSV source.
type CorpusConfig struct {
	Path       string   `yaml:"path"`
	TextColumn string   `yaml:"text_column"`
	Columns    []string `yaml:"columns"` // non-empty switches to "<col>: <value>" documents
	Fraction   float64  `yaml:"fraction"`
	Seed       int64    `yaml:"seed"` // 0 = random
}

// PipelineConfig holds query path settings.
type PipelineConfig struct {
	Mode           string  `yaml:"mode"`
	TopK           int     `yaml:"top_k"`
	Threshold      float64 `yaml:"threshold"`
	MaxCandidates  int     `yaml:"max_candidates"`
	FollowUpSuffix string  `yaml:"follow_up_suffix"`
}

// SummaryConfig holds summarization settings.
type SummaryConfig struct {
	MaxTokens          int `yaml:"max_tokens"`
	CandidateMaxTokens int `yaml:"candidate_max_tokens"` // 0 = no truncation
	HistoryTurns       int `yaml:"history_turns"`
}

// MetricsConfig holds admin server settings.
type MetricsConfig struct {
	ListenAddr string   `yaml:"listen_addr"` // empty disables the admin server
	APIKeys    []string `yaml:"api_keys"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.OpenAI.Provider == "" {
		c.OpenAI.Provider = "openai"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o"
	}
	if c.OpenAI.ExtractionModel == "" {
		c.OpenAI.ExtractionModel = c.OpenAI.ChatModel
	}
	if c.OpenAI.Dimensions <= 0 {
		c.OpenAI.Dimensions = 1536
	}
	if c.OpenAI.BatchSize <= 0 {
		c.OpenAI.BatchSize = 100
	}
	if c.OpenAI.Budget.Action == "" {
		c.OpenAI.Budget.Action = BudgetActionWarn
	}

	if c.Index.Driver == "" {
		c.Index.Driver = DriverRedis
	}
	if c.Index.Name == "" {
		c.Index.Name = "resumes"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "talentrag:"
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 100
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}

	if c.Corpus.TextColumn == "" {
		c.Corpus.TextColumn = "Resume"
	}
	if c.Corpus.Fraction == 0 {
		c.Corpus.Fraction = 1
	}

	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = ModeSingle
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 10
	}
	if c.Pipeline.Threshold == 0 {
		c.Pipeline.Threshold = 0.75
	}
	if c.Pipeline.MaxCandidates <= 0 {
		c.Pipeline.MaxCandidates = 10
	}

	if c.Summary.MaxTokens <= 0 {
		c.Summary.MaxTokens = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	switch c.OpenAI.Budget.Action {
	case BudgetActionWarn, BudgetActionReject:
	default:
		return fmt.Errorf("openai.budget.action must be %q or %q, got %q",
			BudgetActionWarn, BudgetActionReject, c.OpenAI.Budget.Action)
	}
	if c.OpenAI.Budget.DailyTokenLimit < 0 || c.OpenAI.Budget.MonthlyTokenLimit < 0 {
		return fmt.Errorf("openai.budget limits must not be negative")
	}
	switch c.Index.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Index.Addrs) == 0 {
			return fmt.Errorf("index.addrs is required for driver %q", c.Index.Driver)
		}
	case DriverMemory:
		if c.Index.CacheEmbeddings {
			return fmt.Errorf("index.cache_embeddings requires driver %q or %q", DriverRedis, DriverValkey)
		}
	default:
		return fmt.Errorf("index.driver must be one of %q, %q, %q, got %q",
			DriverRedis, DriverValkey, DriverMemory, c.Index.Driver)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	if c.Corpus.Fraction <= 0 || c.Corpus.Fraction > 1 {
		return fmt.Errorf("corpus.fraction must be in (0, 1], got %g", c.Corpus.Fraction)
	}
	switch c.Pipeline.Mode {
	case ModeSingle, ModeCategory:
	default:
		return fmt.Errorf("pipeline.mode must be %q or %q, got %q", ModeSingle, ModeCategory, c.Pipeline.Mode)
	}
	if c.Pipeline.Threshold < 0 || c.Pipeline.Threshold > 1 {
		return fmt.Errorf("pipeline.threshold must be in [0, 1], got %g", c.Pipeline.Threshold)
	}
	if c.Summary.CandidateMaxTokens < 0 {
		return fmt.Errorf("summary.candidate_max_tokens must not be negative, got %d", c.Summary.CandidateMaxTokens)
	}
	if c.Summary.HistoryTurns < 0 {
		return fmt.Errorf("summary.history_turns must not be negative, got %d", c.Summary.HistoryTurns)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and go run from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
