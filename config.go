package fedkm

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

const (
	DefConfigPath      = "config.toml"
	DefCoordinatorURL  = "http://localhost:7070"
	DefTLSVerification = false

	filePermission = 0o644
)

type Config struct {
	CLI         CLIConfig         `toml:"cli"`
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Nodes       []NodeConfig      `toml:"nodes"`
}

type CLIConfig struct {
	CoordinatorURL  string `toml:"coordinator_url"`
	TLSVerification bool   `toml:"tls_verification"`
}

type CoordinatorConfig struct {
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	ChannelID string `toml:"channel_id"`
	MinNodes  int    `toml:"min_nodes"`
}

type NodeConfig struct {
	ID        int    `toml:"id"`
	Name      string `toml:"name"`
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	DataPath  string `toml:"data_path"`
}

func DefaultConfig() Config {
	return Config{
		CLI: CLIConfig{
			CoordinatorURL:  DefCoordinatorURL,
			TLSVerification: DefTLSVerification,
		},
	}
}

// LoadConfig reads path over the default configuration.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := tree.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.CLI.CoordinatorURL == "" {
		cfg.CLI.CoordinatorURL = DefCoordinatorURL
	}

	return cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
