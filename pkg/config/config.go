package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Dataset struct {
		Path string `yaml:"path"`
	} `yaml:"dataset"`

	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedder struct {
		Model     string `yaml:"model"`
		BatchSize int    `yaml:"batch_size"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"embedder"`

	Store struct {
		Backend    string `yaml:"backend"` // "local" or "postgres"
		PersistDir string `yaml:"persist_dir"`
		Collection string `yaml:"collection"`
		URL        string `yaml:"url"`
		TableName  string `yaml:"table_name"`
	} `yaml:"store"`

	Splitter struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"splitter"`

	Query struct {
		TopK int `yaml:"top_k"`
	} `yaml:"query"`

	UI struct {
		Port string `yaml:"port"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/raredx/config.yaml"),
			"/etc/raredx/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Dataset.Path == "" {
		config.Dataset.Path = "RareDisease_data.json"
	}

	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}
	if config.Embedder.BatchSize == 0 {
		config.Embedder.BatchSize = 32
	}
	if config.Embedder.VectorDim == 0 {
		config.Embedder.VectorDim = 768
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "local"
	}
	if config.Store.PersistDir == "" {
		config.Store.PersistDir = "./vector_db"
	}
	if config.Store.Collection == "" {
		config.Store.Collection = "rare_diseases_collection"
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "disease_chunks"
	}

	if config.Splitter.ChunkSize == 0 {
		config.Splitter.ChunkSize = 384
	}
	if config.Splitter.ChunkOverlap == 0 {
		config.Splitter.ChunkOverlap = 50
	}

	if config.Query.TopK == 0 {
		config.Query.TopK = 5
	}

	if config.UI.Port == "" {
		config.UI.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if dataset := os.Getenv("RAREDX_DATASET"); dataset != "" {
		config.Dataset.Path = dataset
	}
}
