package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/picogrid/swarm-simulations/pkg/simulation"
	"golang.org/x/term"
)

// envPrefix namespaces every variable the CLI reads
const envPrefix = "SWARM_"

// PromptForParameters asks for each parameter in turn. SWARM_<NAME> values
// become the defaults; with prompts disabled they are used as is.
// Optional parameters with no value are left out of the result.
func PromptForParameters(params []simulation.Parameter) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	for _, param := range params {
		value, err := resolveParameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", param.Name, err)
		}
		if value != nil {
			result[param.Name] = value
		}
	}

	return result, nil
}

// PromptsDisabled reports whether parameters come from the environment and
// defaults only: SWARM_SKIP_PROMPTS=true or stdin is not a terminal.
func PromptsDisabled() bool {
	if os.Getenv(envPrefix+"SKIP_PROMPTS") == "true" {
		return true
	}
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

func envValue(param simulation.Parameter) (string, bool) {
	v := os.Getenv(envPrefix + strings.ToUpper(param.Name))
	return v, v != ""
}

func resolveParameter(param simulation.Parameter) (interface{}, error) {
	raw, fromEnv := envValue(param)

	if PromptsDisabled() {
		if fromEnv {
			value, err := parseEnvValue(raw, param)
			if err != nil {
				return nil, err
			}
			return value, checkValue(param, value)
		}
		if param.Default != nil {
			return param.Default, nil
		}
		if param.Required {
			return nil, fmt.Errorf("required parameter %s not provided and no default available", param.Name)
		}
		return nil, nil
	}

	if fromEnv {
		if parsed, err := parseEnvValue(raw, param); err == nil {
			param.Default = parsed
		}
	}

	switch param.Type {
	case "integer":
		return promptInteger(param)
	case "float":
		return promptFloat(param)
	case "string":
		return promptString(param)
	case "boolean":
		return promptBoolean(param)
	case "duration":
		return promptDuration(param)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// parseEnvValue converts a raw string to the parameter's type
func parseEnvValue(value string, param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case "integer":
		return strconv.Atoi(value)
	case "float":
		return strconv.ParseFloat(value, 64)
	case "string":
		return value, nil
	case "boolean":
		return strconv.ParseBool(value)
	case "duration":
		return time.ParseDuration(value)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// checkValue enforces min/max on numbers and options on strings
func checkValue(param simulation.Parameter, value interface{}) error {
	switch v := value.(type) {
	case int:
		if param.Min != nil && v < toInt(param.Min) {
			return fmt.Errorf("%s must be at least %d", param.Name, toInt(param.Min))
		}
		if param.Max != nil && v > toInt(param.Max) {
			return fmt.Errorf("%s must be at most %d", param.Name, toInt(param.Max))
		}
	case float64:
		if param.Min != nil && v < toFloat64(param.Min) {
			return fmt.Errorf("%s must be at least %g", param.Name, toFloat64(param.Min))
		}
		if param.Max != nil && v > toFloat64(param.Max) {
			return fmt.Errorf("%s must be at most %g", param.Name, toFloat64(param.Max))
		}
	case string:
		if len(param.Options) == 0 {
			return nil
		}
		for _, opt := range param.Options {
			if v == opt {
				return nil
			}
		}
		return fmt.Errorf("%s must be one of %s", param.Name, strings.Join(param.Options, ", "))
	}
	return nil
}

// inputValidator parses the typed answer and checks its range, so survey
// asks again instead of failing the run.
func inputValidator(param simulation.Parameter) survey.Validator {
	return func(ans interface{}) error {
		s, _ := ans.(string)
		if s == "" {
			if param.Required || param.Type != "string" {
				return fmt.Errorf("value is required")
			}
			return nil
		}
		value, err := parseEnvValue(s, param)
		if err != nil {
			return fmt.Errorf("invalid %s: %s", param.Type, s)
		}
		return checkValue(param, value)
	}
}

func defaultString(param simulation.Parameter) string {
	switch v := param.Default.(type) {
	case nil:
		return ""
	case float64:
		if param.Type == "integer" {
			return strconv.Itoa(int(v))
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func askInput(param simulation.Parameter, message string) (string, error) {
	prompt := &survey.Input{
		Message: message,
		Default: defaultString(param),
	}
	var result string
	if err := survey.AskOne(prompt, &result, survey.WithValidator(inputValidator(param))); err != nil {
		return "", err
	}
	return result, nil
}

func promptInteger(param simulation.Parameter) (int, error) {
	result, err := askInput(param, param.Description)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(result)
}

func promptFloat(param simulation.Parameter) (float64, error) {
	result, err := askInput(param, param.Description)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(result, 64)
}

func promptString(param simulation.Parameter) (string, error) {
	if len(param.Options) > 0 {
		prompt := &survey.Select{
			Message: param.Description,
			Options: param.Options,
			Default: defaultString(param),
		}

		var result string
		if err := survey.AskOne(prompt, &result); err != nil {
			return "", err
		}
		return result, nil
	}

	return askInput(param, param.Description)
}

func promptBoolean(param simulation.Parameter) (bool, error) {
	defaultBool := false
	switch v := param.Default.(type) {
	case bool:
		defaultBool = v
	case string:
		defaultBool = v == "true" || v == "yes" || v == "1"
	}

	prompt := &survey.Confirm{
		Message: param.Description,
		Default: defaultBool,
	}

	var result bool
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func promptDuration(param simulation.Parameter) (time.Duration, error) {
	result, err := askInput(param, param.Description+" (e.g., 5m, 1h30m, 30s)")
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(result)
}

func toInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case float64:
		return int(val)
	case string:
		i, _ := strconv.Atoi(val)
		return i
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
