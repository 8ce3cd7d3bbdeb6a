package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/swarm-simulations/pkg/config"
	"github.com/picogrid/swarm-simulations/pkg/logger"
	"github.com/picogrid/swarm-simulations/pkg/simulation"
	"github.com/picogrid/swarm-simulations/pkg/utils"

	// Import simulations to register them
	_ "github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/simulation"
)

const offlineEnvironment = "Offline"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long:  `Run a simulation interactively or with specified parameters`,
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringP("simulation", "s", "", "simulation name to run")
	runCmd.Flags().StringP("params", "p", "", "simulation config file (YAML)")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	simName, err := selectSimulation(cmd)
	if err != nil {
		return fmt.Errorf("failed to select simulation: %w", err)
	}

	sim, err := simulation.DefaultRegistry.Get(simName)
	if err != nil {
		return fmt.Errorf("failed to get simulation: %w", err)
	}

	info, err := utils.FindSimulation(simName)
	if err != nil {
		return err
	}

	params, err := utils.PromptForParameters(info.Config.Parameters)
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}

	env, err := selectEnvironment()
	if err != nil {
		return fmt.Errorf("failed to select environment: %w", err)
	}
	if env != nil {
		logger.Networkf("Using link environment %s", env.Name)
		for k, v := range env.Overrides() {
			params[k] = v
		}
	}

	if path, _ := cmd.Flags().GetString("params"); path != "" {
		params["config_path"] = path
	}
	params["log_level"] = viper.GetString("log_level")

	if err := sim.Configure(params); err != nil {
		return fmt.Errorf("failed to configure simulation: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		logger.Warn("\nReceived interrupt signal, stopping simulation...")
		if err := sim.Stop(); err != nil {
			logger.Errorf("Failed to stop simulation: %v", err)
			cancel()
		}
	}()

	logger.LogSection(fmt.Sprintf("Starting %s", sim.Name()))
	if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("simulation failed: %w", err)
	}

	logger.Success("Simulation completed successfully")
	return nil
}

// selectEnvironment picks the vehicle link. A nil environment runs offline.
func selectEnvironment() (*config.Environment, error) {
	// A URL from flag or environment wins
	if natsURL != "" {
		return &config.Environment{
			Name:    "Custom",
			NATSURL: natsURL,
		}, nil
	}

	envConfig, err := config.LoadEnvironments()
	if err != nil {
		return nil, err
	}

	// Check if environment is specified via flag
	if envName != "" {
		if envName == offlineEnvironment {
			return nil, nil
		}
		env, ok := envConfig.Find(envName)
		if !ok {
			return nil, fmt.Errorf("environment %s not found", envName)
		}
		return &env, nil
	}

	if utils.PromptsDisabled() {
		if env, ok := envConfig.Find(envConfig.Selected); ok {
			return &env, nil
		}
		return nil, nil
	}

	// Interactive selection
	options := []string{offlineEnvironment}
	for _, env := range envConfig.Environments {
		options = append(options, env.Name)
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select vehicle link:",
		Options: options,
		Default: offlineEnvironment,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}

	if selected == offlineEnvironment {
		return nil, nil
	}

	env, ok := envConfig.Find(selected)
	if !ok {
		return nil, fmt.Errorf("environment not found")
	}
	return &env, nil
}

func selectSimulation(cmd *cobra.Command) (string, error) {
	// Check if simulation is specified via flag
	simName, _ := cmd.Flags().GetString("simulation")
	if simName != "" {
		return simName, nil
	}

	// Discover available simulations
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return "", err
	}

	if len(simInfos) == 0 {
		return "", fmt.Errorf("no simulations found")
	}

	if len(simInfos) == 1 || utils.PromptsDisabled() {
		return simInfos[0].Config.Name, nil
	}

	// Build options for selection
	options := make([]string, len(simInfos))
	descriptions := make(map[string]string)

	for i, info := range simInfos {
		options[i] = info.Config.Name
		descriptions[info.Config.Name] = info.Config.Description
	}

	// Interactive selection
	var selected string
	prompt := &survey.Select{
		Message: "Select simulation:",
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	return selected, nil
}
