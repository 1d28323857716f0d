package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Language string `yaml:"language"`
	} `yaml:"project"`
	AI struct {
		Provider       string `yaml:"provider"` // "gemini" or "openai"
		APIKey         string `yaml:"api_key"`
		SummaryModel   string `yaml:"summary_model"`
		EmbeddingModel string `yaml:"embedding_model"`
		BaseURL        string `yaml:"base_url"`
		Dimension      int    `yaml:"dimension"`
	} `yaml:"ai"`
	VectorStore struct {
		Provider string `yaml:"provider"` // "local" or "weaviate"
		URL      string `yaml:"url"`
		Index    string `yaml:"index"`
	} `yaml:"vector_store"`
	Pipeline struct {
		Workers            int     `yaml:"workers"`
		MaxRetries         int     `yaml:"max_retries"`
		RelatedChunks      int     `yaml:"related_chunks"`
		CycleWarnThreshold float64 `yaml:"cycle_warn_threshold"`
		WriteComments      bool    `yaml:"write_comments"`
	} `yaml:"pipeline"`
}

// Load reads config.yaml (optional) and applies env overrides. A .env
// file is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if file, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("COMPREHEND_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("COMPREHEND_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("COMPREHEND_VECTOR_PROVIDER"); v != "" {
		cfg.VectorStore.Provider = v
	}
	if v := os.Getenv("COMPREHEND_WEAVIATE_URL"); v != "" {
		cfg.VectorStore.URL = v
	}
	if v := os.Getenv("COMPREHEND_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = n
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Language == "" {
		c.Project.Language = "java"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	if c.AI.SummaryModel == "" {
		c.AI.SummaryModel = "gemini-2.5-flash"
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = "text-embedding-004"
	}
	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "local"
	}
	if c.VectorStore.Index == "" {
		c.VectorStore.Index = "CodeChunk"
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 8
	}
	if c.Pipeline.MaxRetries <= 0 {
		c.Pipeline.MaxRetries = 3
	}
	if c.Pipeline.RelatedChunks <= 0 {
		c.Pipeline.RelatedChunks = 4
	}
	if c.Pipeline.CycleWarnThreshold <= 0 {
		c.Pipeline.CycleWarnThreshold = 0.25
	}
}
