// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables
//  2. Config file (~/.tewou/config.yaml, or ./config.yaml)
//  3. Defaults
//
// Categories:
//   - AI: provider, chat model, embedder model
//   - Ingestion: data directory, chunk size, chunk overlap
//   - Index: persistence directory for the vector store
//   - Retrieval: top-k
//   - Storage: chat-history persistence (DATABASE_URL or file fallback)
//
// Sensitive values (DATABASE_URL credentials) are masked in MarshalJSON
// and String. Validation is fail-fast with sentinel errors for errors.Is.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates overlap is negative or >= chunk size.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidModelName indicates an empty or malformed model name.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates an empty embedder model name.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidDatabaseURL indicates DATABASE_URL is set but not parseable.
	ErrInvalidDatabaseURL = errors.New("invalid database URL")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of runes shared by adjacent chunks.
	DefaultChunkOverlap = 100

	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 3

	// DefaultEmbedderModel is the default multilingual embedding model.
	// French and Wolof content both need multilingual support.
	DefaultEmbedderModel = "gemini-embedding-001"
)

// Config stores application configuration.
// SENSITIVE: DatabaseURL may carry credentials; it is masked in MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"`
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`

	// Ingestion configuration
	DataDir      string `mapstructure:"data_dir" json:"data_dir"`
	ChunkSize    int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Vector index persistence directory
	IndexDir string `mapstructure:"index_dir" json:"index_dir"`

	// Retrieval configuration
	TopK int `mapstructure:"top_k" json:"top_k"`

	// Chat-history persistence. Empty DatabaseURL selects the JSON file
	// fallback store at HistoryFile.
	DatabaseURL string `mapstructure:"database_url" json:"database_url"` // SENSITIVE: masked in MarshalJSON
	HistoryFile string `mapstructure:"history_file" json:"history_file"`

	// Scrape-metadata registry file (append-only JSON array).
	MetadataFile string `mapstructure:"metadata_file" json:"metadata_file"`
}

// Load loads configuration.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".tewou")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("config file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.7)

	v.SetDefault("data_dir", filepath.Join("web_scrapping", "data_collection"))
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("index_dir", filepath.Join(configDir, "index"))
	v.SetDefault("top_k", DefaultTopK)

	v.SetDefault("history_file", filepath.Join(configDir, "chat_history.json"))
	v.SetDefault("metadata_file", filepath.Join("web_scrapping", "data_collection", "metadata.json"))
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via viper.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("database_url", "DATABASE_URL")
	mustBind("data_dir", "TEWOU_DATA_DIR")
	mustBind("index_dir", "TEWOU_INDEX_DIR")
	mustBind("provider", "TEWOU_PROVIDER")
	mustBind("model_name", "TEWOU_MODEL_NAME")
	mustBind("embedder_model", "TEWOU_EMBEDDER_MODEL")
}

// Validate checks configuration ranges. Fail-fast: called by Load.
func (c *Config) Validate() error {
	if c.ChunkSize < 100 || c.ChunkSize > 8192 {
		return fmt.Errorf("%w: %d (must be 100-8192)", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: %d (must be 0 <= overlap < chunk_size)", ErrInvalidChunkOverlap, c.ChunkOverlap)
	}
	if c.TopK < 1 || c.TopK > 20 {
		return fmt.Errorf("%w: %d (must be 1-20)", ErrInvalidTopK, c.TopK)
	}
	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEmbedderModel)
	}
	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDatabaseURL, err)
		}
		switch strings.ToLower(u.Scheme) {
		case "postgres", "postgresql":
		default:
			return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidDatabaseURL, u.Scheme)
		}
	}
	return nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Example: "googleai/gemini-2.5-flash". Names already containing "/" pass
// through unchanged.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// maskedValue replaces credentials in logged URLs.
const maskedValue = "████████"

// maskDatabaseURL masks the userinfo portion of a database URL.
func maskDatabaseURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), maskedValue)
	return u.String()
}

// MarshalJSON masks sensitive fields before serialization.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.DatabaseURL = maskDatabaseURL(a.DatabaseURL)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
