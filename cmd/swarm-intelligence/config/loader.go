package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
	"github.com/picogrid/swarm-simulations/pkg/logger"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*SimulationConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from file or returns default, with environment overrides
func LoadConfigOrDefault(path string) (*SimulationConfig, error) {
	var config *SimulationConfig
	var err error

	if path != "" {
		config, err = LoadConfig(path)
		if err != nil {
			logger.Warnf("Could not load config from %s: %v", path, err)
			config = nil
		}
	}

	if config == nil {
		defaultPaths := []string{
			"config.yaml",
			"swarm-intelligence.yaml",
			filepath.Join("cmd", "swarm-intelligence", "config.yaml"),
		}

		for _, p := range defaultPaths {
			if _, statErr := os.Stat(p); statErr == nil {
				config, err = LoadConfig(p)
				if err == nil {
					logger.Debugf("Loaded config from: %s", p)
					break
				}
				config = nil
			}
		}
	}

	if config == nil {
		logger.Debug("Using default configuration")
		config = GetDefaultConfig()
	}

	MergeWithEnvironment(config)

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *SimulationConfig, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// MergeWithCLIOverrides applies simulation parameter overrides to the
// configuration. Values may arrive typed from interactive prompts or as
// strings from simulation.yaml defaults; unparseable values are ignored.
func MergeWithCLIOverrides(config *SimulationConfig, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "drone_count":
			if count, ok := asInt(value); ok && count >= 0 {
				config.Swarm.DroneCount = count
			}
		case "algorithm":
			if s, ok := value.(string); ok {
				if alg, err := core.ParseAlgorithm(s); err == nil {
					config.Simulation.Algorithm = alg.String()
				}
			}
		case "formation":
			if s, ok := value.(string); ok {
				if f, err := core.ParseFormation(s); err == nil {
					config.Formation.Type = f.String()
				}
			}
		case "dimensions":
			if d, ok := asInt(value); ok && (d == 2 || d == 3) {
				config.Swarm.Dimensions = d
			}
		case "duration":
			if d, ok := asDuration(value); ok && d >= 0 {
				config.Simulation.Duration = d
			}
		case "update_interval":
			if d, ok := asDuration(value); ok && d > 0 {
				config.Simulation.UpdateInterval = d
			}
		case "max_speed":
			if f, ok := asFloat(value); ok && f > 0 {
				config.Swarm.MaxSpeed = f
			}
		case "comm_range":
			if f, ok := asFloat(value); ok && f > 0 {
				config.Network.CommRange = f
			}
		case "seed":
			if n, ok := asInt(value); ok {
				config.Simulation.Seed = int64(n)
			}
		case "demo_mode":
			if b, ok := asBool(value); ok {
				config.Simulation.DemoMode = b
			}
		case "pheromone_guided":
			if b, ok := asBool(value); ok {
				config.ACO.PheromoneGuided = b
			}
		case "enable_transport":
			if b, ok := asBool(value); ok {
				config.Transport.Enabled = b
			}
		case "embedded_nats":
			if b, ok := asBool(value); ok {
				config.Transport.Embedded = b
			}
		case "nats_url":
			if s, ok := value.(string); ok && s != "" {
				config.Transport.NATSURL = s
			}
		case "subject_prefix":
			if s, ok := value.(string); ok && s != "" {
				config.Transport.SubjectPrefix = s
			}
		case "enable_viewer":
			if b, ok := asBool(value); ok {
				config.Viewer.Enabled = b
			}
		case "viewer_addr":
			if s, ok := value.(string); ok && s != "" {
				config.Viewer.ListenAddr = s
			}
		case "report_format":
			if s, ok := value.(string); ok && validReportFormat(s) {
				config.Logging.ReportFormat = s
			}
		case "log_level":
			if s, ok := value.(string); ok {
				if level, valid := validLogLevel(s); valid {
					config.Logging.ConsoleLevel = level
				}
			}
		}
	}
}

// LoadConfigWithOverrides loads config and applies both environment and CLI overrides
func LoadConfigWithOverrides(path string, cliOverrides map[string]interface{}) (*SimulationConfig, error) {
	config, err := LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	if cliOverrides != nil {
		MergeWithCLIOverrides(config, cliOverrides)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}

	return config, nil
}

// MergeWithEnvironment merges config with SWARM_* environment variables
func MergeWithEnvironment(config *SimulationConfig) {
	if v := os.Getenv("SWARM_UPDATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Simulation.UpdateInterval = d
		}
	}

	if v := os.Getenv("SWARM_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			config.Simulation.Duration = d
		}
	}

	if v := os.Getenv("SWARM_ALGORITHM"); v != "" {
		if alg, err := core.ParseAlgorithm(v); err == nil {
			config.Simulation.Algorithm = alg.String()
		}
	}

	if v := os.Getenv("SWARM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Simulation.Seed = seed
		}
	}

	if v := os.Getenv("SWARM_DEMO_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Simulation.DemoMode = b
		}
	}

	if v := os.Getenv("SWARM_DRONE_COUNT"); v != "" {
		if count, err := strconv.Atoi(v); err == nil && count >= 0 {
			config.Swarm.DroneCount = count
		}
	}

	if v := os.Getenv("SWARM_FORMATION"); v != "" {
		if f, err := core.ParseFormation(v); err == nil {
			config.Formation.Type = f.String()
		}
	}

	if v := os.Getenv("SWARM_COMM_RANGE"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
			config.Network.CommRange = r
		}
	}

	if v := os.Getenv("SWARM_PHEROMONE_GUIDED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.ACO.PheromoneGuided = b
		}
	}

	if v := os.Getenv("SWARM_TRANSPORT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Transport.Enabled = b
		}
	}

	if v := os.Getenv("SWARM_NATS_URL"); v != "" {
		config.Transport.NATSURL = v
	}

	if v := os.Getenv("SWARM_VIEWER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Viewer.Enabled = b
		}
	}

	if v := os.Getenv("SWARM_VIEWER_ADDR"); v != "" {
		config.Viewer.ListenAddr = v
	}

	if v := os.Getenv("SWARM_REPORT_FORMAT"); v != "" && validReportFormat(v) {
		config.Logging.ReportFormat = v
	}

	if v := os.Getenv("SWARM_LOG_LEVEL"); v != "" {
		if level, ok := validLogLevel(v); ok {
			config.Logging.ConsoleLevel = level
		}
	}
}

func validReportFormat(s string) bool {
	return s == "json" || s == "markdown" || s == "none"
}

func validLogLevel(s string) (string, bool) {
	s = strings.ToLower(s)
	switch s {
	case "debug", "info", "warn", "error":
		return s, true
	}
	return "", false
}

func asInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case string:
		n, err := strconv.Atoi(val)
		return n, err == nil
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	}
	return 0, false
}

func asBool(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(val)
		return b, err == nil
	}
	return false, false
}

func asDuration(v interface{}) (time.Duration, bool) {
	switch val := v.(type) {
	case time.Duration:
		return val, true
	case string:
		d, err := time.ParseDuration(val)
		return d, err == nil
	}
	return 0, false
}
