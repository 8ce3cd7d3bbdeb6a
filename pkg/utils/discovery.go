package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/picogrid/swarm-simulations/pkg/logger"
	"github.com/picogrid/swarm-simulations/pkg/simulation"
	"gopkg.in/yaml.v3"
)

const descriptorName = "simulation.yaml"

// SimulationInfo is a simulation descriptor and the package directory it lives in
type SimulationInfo struct {
	Path   string
	Config simulation.SimulationConfig
}

// DiscoverSimulations scans cmd/ under the module root for simulation.yaml
// descriptors. SWARM_SIMULATIONS_DIR replaces the scanned directory.
// Results are sorted by name; invalid descriptors are skipped with a warning.
func DiscoverSimulations() ([]SimulationInfo, error) {
	cmdDir := os.Getenv(envPrefix + "SIMULATIONS_DIR")
	if cmdDir == "" {
		rootDir, err := findProjectRoot()
		if err != nil {
			return nil, err
		}
		cmdDir = filepath.Join(rootDir, "cmd")
	}

	var simulations []SimulationInfo
	seen := make(map[string]string)

	err := filepath.WalkDir(cmdDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != cmdDir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != descriptorName {
			return nil
		}

		info, err := loadSimulationConfig(path)
		if err != nil {
			logger.Warnf("Skipping %s: %v", path, err)
			return nil
		}
		if prev, dup := seen[info.Config.Name]; dup {
			logger.Warnf("Skipping %s: simulation %s already declared in %s", path, info.Config.Name, prev)
			return nil
		}
		seen[info.Config.Name] = path
		simulations = append(simulations, *info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan for simulations: %w", err)
	}

	sort.Slice(simulations, func(i, j int) bool {
		return simulations[i].Config.Name < simulations[j].Config.Name
	})
	return simulations, nil
}

// FindSimulation returns the descriptor for name
func FindSimulation(name string) (*SimulationInfo, error) {
	sims, err := DiscoverSimulations()
	if err != nil {
		return nil, err
	}
	for i := range sims {
		if sims[i].Config.Name == name {
			return &sims[i], nil
		}
	}
	return nil, fmt.Errorf("simulation configuration not found for %s", name)
}

func loadSimulationConfig(path string) (*SimulationInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation config: %w", err)
	}

	var config simulation.SimulationConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse simulation config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SimulationInfo{
		Path:   filepath.Dir(path),
		Config: config,
	}, nil
}

// findProjectRoot walks up from the working directory to the first go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}
