package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configDirName = ".swarm-sim"

// Environment is a named vehicle link: where the NATS bus lives and where the
// viewer stream is served.
type Environment struct {
	Name          string `yaml:"name"`
	NATSURL       string `yaml:"nats_url,omitempty"`
	Embedded      bool   `yaml:"embedded,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
	ViewerAddr    string `yaml:"viewer_addr,omitempty"`
}

// Config holds the environment configurations
type Config struct {
	Environments []Environment `yaml:"environments"`
	Selected     string        `yaml:"selected,omitempty"`
}

// Overrides returns the simulation parameters that point a run at this link
func (e Environment) Overrides() map[string]interface{} {
	overrides := map[string]interface{}{
		"enable_transport": true,
		"embedded_nats":    e.Embedded,
	}
	if e.NATSURL != "" {
		overrides["nats_url"] = e.NATSURL
	}
	if e.SubjectPrefix != "" {
		overrides["subject_prefix"] = e.SubjectPrefix
	}
	if e.ViewerAddr != "" {
		overrides["enable_viewer"] = true
		overrides["viewer_addr"] = e.ViewerAddr
	}
	return overrides
}

// Validate checks that the link can be reached
func (e Environment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("environment name is required")
	}
	if e.NATSURL == "" && !e.Embedded {
		return fmt.Errorf("environment %s needs a nats url or an embedded server", e.Name)
	}
	return nil
}

// Find returns the environment with the given name
func (c *Config) Find(name string) (Environment, bool) {
	for _, env := range c.Environments {
		if env.Name == name {
			return env, true
		}
	}
	return Environment{}, false
}

// DefaultPath returns $HOME/.swarm-sim/environments.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName, "environments.yaml"), nil
}

// LoadEnvironments loads environment configurations from the default location
func LoadEnvironments() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadEnvironmentsFromFile(configPath)
}

// LoadEnvironmentsFromFile loads environment configurations from a specific file
func LoadEnvironmentsFromFile(path string) (*Config, error) {
	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveEnvironments saves the environment configuration to the default location
func SaveEnvironments(config *Config) error {
	configPath, err := DefaultPath()
	if err != nil {
		return err
	}
	return SaveEnvironmentsToFile(config, configPath)
}

// SaveEnvironmentsToFile saves the environment configuration to a specific file
func SaveEnvironmentsToFile(config *Config, path string) error {
	for _, env := range config.Environments {
		if err := env.Validate(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getDefaultConfig returns a default configuration
func getDefaultConfig() *Config {
	return &Config{
		Environments: []Environment{
			{
				Name:     "Embedded",
				Embedded: true,
			},
			{
				Name:          "Local",
				NATSURL:       "nats://127.0.0.1:4222",
				SubjectPrefix: "swarm",
				ViewerAddr:    "127.0.0.1:8090",
			},
		},
	}
}
