package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/swarm-simulations/pkg/config"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage vehicle link environments",
	Long:  `Manage the NATS and viewer endpoints a simulation can link to`,
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured environments",
	RunE:  listEnvironments,
}

var envAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new environment",
	RunE:  addEnvironment,
}

var envUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Select the default environment",
	Args:  cobra.ExactArgs(1),
	RunE:  useEnvironment,
}

var envRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove an environment",
	RunE:  removeEnvironment,
}

func init() {
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envAddCmd)
	envCmd.AddCommand(envRemoveCmd)
	envCmd.AddCommand(envUseCmd)
}

func listEnvironments(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnvironments()
	if err != nil {
		return fmt.Errorf("failed to load environments: %w", err)
	}

	if len(cfg.Environments) == 0 {
		fmt.Println("No environments configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tNATS\tPREFIX\tVIEWER\tSELECTED")
	_, _ = fmt.Fprintln(w, "----\t----\t------\t------\t--------")

	for _, env := range cfg.Environments {
		bus := env.NATSURL
		if env.Embedded {
			bus = "embedded"
		}
		viewer := env.ViewerAddr
		if viewer == "" {
			viewer = "-"
		}
		selected := ""
		if env.Name == cfg.Selected {
			selected = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", env.Name, bus, env.SubjectPrefix, viewer, selected)
	}

	return w.Flush()
}

func addEnvironment(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnvironments()
	if err != nil {
		return fmt.Errorf("failed to load environments: %w", err)
	}

	var env config.Environment

	// Prompt for name
	namePrompt := &survey.Input{
		Message: "Environment name:",
	}
	if err := survey.AskOne(namePrompt, &env.Name, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	// Check if name already exists
	for _, existing := range cfg.Environments {
		if existing.Name == env.Name {
			return fmt.Errorf("environment %s already exists", env.Name)
		}
	}

	// Prompt for bus
	embeddedPrompt := &survey.Confirm{
		Message: "Start an embedded NATS server?",
		Default: false,
	}
	if err := survey.AskOne(embeddedPrompt, &env.Embedded); err != nil {
		return err
	}

	if !env.Embedded {
		urlPrompt := &survey.Input{
			Message: "NATS server URL:",
			Default: "nats://127.0.0.1:4222",
		}
		if err := survey.AskOne(urlPrompt, &env.NATSURL, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	prefixPrompt := &survey.Input{
		Message: "Subject prefix:",
		Default: "swarm",
	}
	if err := survey.AskOne(prefixPrompt, &env.SubjectPrefix); err != nil {
		return err
	}

	viewerPrompt := &survey.Input{
		Message: "Viewer address (empty to disable):",
		Help:    "host:port the websocket viewer stream is served on",
	}
	if err := survey.AskOne(viewerPrompt, &env.ViewerAddr); err != nil {
		return err
	}

	if err := env.Validate(); err != nil {
		return err
	}

	// Add to config
	cfg.Environments = append(cfg.Environments, env)

	// Save config
	if err := config.SaveEnvironments(cfg); err != nil {
		return fmt.Errorf("failed to save environments: %w", err)
	}

	fmt.Printf("Environment %s added successfully\n", env.Name)
	return nil
}

func removeEnvironment(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnvironments()
	if err != nil {
		return fmt.Errorf("failed to load environments: %w", err)
	}

	if len(cfg.Environments) == 0 {
		fmt.Println("No environments to remove")
		return nil
	}

	// Build list of environment names
	names := make([]string, len(cfg.Environments))
	for i, env := range cfg.Environments {
		names[i] = env.Name
	}

	// Prompt for selection
	var selected string
	prompt := &survey.Select{
		Message: "Select environment to remove:",
		Options: names,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return err
	}

	// Confirm removal
	var confirm bool
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("Are you sure you want to remove %s?", selected),
		Default: false,
	}
	if err := survey.AskOne(confirmPrompt, &confirm); err != nil {
		return err
	}

	if !confirm {
		fmt.Println("Removal cancelled")
		return nil
	}

	// Remove from config
	newEnvs := make([]config.Environment, 0, len(cfg.Environments)-1)
	for _, env := range cfg.Environments {
		if env.Name != selected {
			newEnvs = append(newEnvs, env)
		}
	}
	cfg.Environments = newEnvs
	if cfg.Selected == selected {
		cfg.Selected = ""
	}

	// Save config
	if err := config.SaveEnvironments(cfg); err != nil {
		return fmt.Errorf("failed to save environments: %w", err)
	}

	fmt.Printf("Environment %s removed successfully\n", selected)
	return nil
}

func useEnvironment(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnvironments()
	if err != nil {
		return fmt.Errorf("failed to load environments: %w", err)
	}

	if _, ok := cfg.Find(args[0]); !ok {
		return fmt.Errorf("environment %s not found", args[0])
	}
	cfg.Selected = args[0]

	if err := config.SaveEnvironments(cfg); err != nil {
		return fmt.Errorf("failed to save environments: %w", err)
	}

	fmt.Printf("Environment %s selected\n", args[0])
	return nil
}
