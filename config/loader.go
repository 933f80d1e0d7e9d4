package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigFile overrides the server config path.
	EnvConfigFile = "CONFIG_FILE"
	// EnvLibrariesFile overrides the libraries config path.
	EnvLibrariesFile = "ZOTERO_CONFIG_FILE"
)

// Loader reads the layered YAML configuration. The server block and the
// libraries block may live in one file or be split across two, matching the
// upstream config.yaml / zotero.yaml layout.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads configuration from configPath and, when non-empty,
// librariesPath, applies environment expansion to api_key fields and
// validates the result. A .env file in the working directory is honored
// before environment lookups.
func (l *Loader) Load(configPath, librariesPath string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		l.logger.Debug("Loaded .env file")
	}

	if v := os.Getenv(EnvConfigFile); v != "" {
		configPath = v
	}
	if v := os.Getenv(EnvLibrariesFile); v != "" {
		librariesPath = v
	}

	cfg := DefaultConfig()
	if configPath != "" {
		if err := readInto(configPath, cfg); err != nil {
			return nil, fmt.Errorf("load %s: %w", configPath, err)
		}
	}
	if librariesPath != "" {
		if err := readInto(librariesPath, cfg); err != nil {
			return nil, fmt.Errorf("load %s: %w", librariesPath, err)
		}
	}

	for i := range cfg.Libraries {
		cfg.Libraries[i].APIKey = expandEnv(cfg.Libraries[i].APIKey)
	}
	cfg.Defaults.Library.APIKey = expandEnv(cfg.Defaults.Library.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l.logger.Info("Configuration loaded",
		slog.String("config", configPath),
		slog.Int("libraries", len(cfg.Libraries)))
	return cfg, nil
}

func readInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// expandEnv resolves "${VAR}" or "$VAR" values so API keys never have to
// be written into the YAML files.
func expandEnv(v string) string {
	if strings.HasPrefix(v, "$") {
		return os.ExpandEnv(v)
	}
	return v
}
