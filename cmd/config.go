package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/spigell/hh-matcher/internal/record"
)

type Config struct {
	DataDir      string                  `mapstructure:"data-dir"`
	ProcessedDir string                  `mapstructure:"processed-dir"`
	Embedder     EmbedderConfig          `mapstructure:"embedder"`
	Generator    GeneratorConfig         `mapstructure:"generator"`
	Gemini       GeminiConfig            `mapstructure:"gemini"`
	Explain      ExplainConfig           `mapstructure:"explain"`
	Match        MatchConfig             `mapstructure:"match"`
	Schema       map[string]SchemaConfig `mapstructure:"schema"`
}

type EmbedderConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch-size"`
	BaseURL    string `mapstructure:"base-url"`
}

type GeneratorConfig struct {
	Provider     string  `mapstructure:"provider"`
	Model        string  `mapstructure:"model"`
	MaxTokens    int     `mapstructure:"max-tokens"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxRetries   int     `mapstructure:"max-retries"`
	MaxLogLength int     `mapstructure:"max-log-length"`
	BaseURL      string  `mapstructure:"base-url"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type ExplainConfig struct {
	Store      string `mapstructure:"store"`
	TextBudget int    `mapstructure:"text-budget"`
}

type MatchConfig struct {
	TopN int `mapstructure:"top-n"`
}

type SchemaConfig struct {
	Exclude []string `mapstructure:"exclude"`
}

func setDefaults() {
	viper.SetDefault("data-dir", "data")
	viper.SetDefault("processed-dir", "processed_data")

	viper.SetDefault("embedder.provider", providerGemini)
	viper.SetDefault("embedder.model", "")
	viper.SetDefault("embedder.dimensions", 0)
	viper.SetDefault("embedder.batch-size", 32)
	viper.SetDefault("embedder.base-url", "")

	viper.SetDefault("generator.provider", providerGemini)
	viper.SetDefault("generator.model", "")
	viper.SetDefault("generator.max-tokens", 200)
	viper.SetDefault("generator.temperature", 0.7)
	viper.SetDefault("generator.max-retries", 1)
	viper.SetDefault("generator.max-log-length", 200)
	viper.SetDefault("generator.base-url", "")

	viper.SetDefault("gemini.api-key", "")
	viper.SetDefault("gemini.api-key-file", "")

	viper.SetDefault("explain.store", explainStoreFile)
	viper.SetDefault("explain.text-budget", 1500)

	viper.SetDefault("match.top-n", 5)
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// schemas turns the schema section into flattener overrides. Only the
// denylist of a collection can be replaced.
func (c *Config) schemas() (map[record.Kind]record.Schema, error) {
	defaults := record.DefaultSchemas()
	out := make(map[record.Kind]record.Schema, len(c.Schema))
	for name, sc := range c.Schema {
		kind, err := record.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("schema.%s: %w", name, err)
		}
		out[kind] = defaults[kind].WithExclude(sc.Exclude)
	}
	return out, nil
}
