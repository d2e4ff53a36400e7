package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every configuration variable.
	EnvPrefix = "VERGIAI_"

	// DefaultFile is read from the working directory when no path is given.
	DefaultFile = "vergiai.yaml"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load builds the configuration from defaults, the YAML file and the
// environment, in increasing order of precedence, and validates it.
//
// Environment variables use the VERGIAI_ prefix and a double underscore
// between sections:
//
//	VERGIAI_STORE__BACKEND          -> store.backend
//	VERGIAI_STORE__QDRANT__API_KEY  -> store.qdrant.api_key
//	VERGIAI_RETRIEVAL__TOP_N        -> retrieval.top_n
//	VERGIAI_INGEST__EXTENSIONS      -> ingest.extensions (comma-separated)
//
// OPENAI_API_KEY, QDRANT_HOST, QDRANT_PORT and QDRANT_API_KEY are honoured
// when the corresponding setting is still empty.
//
// An explicit path must exist; the default file is optional.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	content, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvFallbacks(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps VERGIAI_STORE__QDRANT__API_KEY to store.qdrant.api_key.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// listKeys are the settings given as comma-separated lists in the environment.
var listKeys = map[string]bool{
	"ingest.extensions": true,
}

// envValue maps the key like envKey and splits list settings on commas.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func applyEnvFallbacks(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = key
		}
		if cfg.Answer.APIKey == "" {
			cfg.Answer.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" && cfg.Store.Qdrant.APIKey == "" {
		cfg.Store.Qdrant.APIKey = key
	}
	if host := os.Getenv("QDRANT_HOST"); host != "" && os.Getenv(EnvPrefix+"STORE__QDRANT__HOST") == "" {
		cfg.Store.Qdrant.Host = host
	}
	if port := os.Getenv("QDRANT_PORT"); port != "" && os.Getenv(EnvPrefix+"STORE__QDRANT__PORT") == "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Store.Qdrant.Port = p
		}
	}
}
