// Package cfg holds the service configuration registered as flags and
// overridable from the environment.
package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Classifier backend selectors.
const (
	BackendClaude    = "claude"
	BackendInference = "inference"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ClassifierBackend     string
	ClaudeAPIKey          string
	ClaudeModel           string
	InferenceEndpoint     string
	GradcamEndpoint       string
	ArtifactDir           string
	DatabaseURL           string
	SlackWebhookURL       string
	APIToken              string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ClassifierBackend, "classifier-backend", BackendClaude, "classification backend: claude or inference")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude vision classifier")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use for scan classification")
	fs.StringVar(&c.InferenceEndpoint, "inference-endpoint", "", "base URL of the self-hosted model server")
	fs.StringVar(&c.GradcamEndpoint, "gradcam-endpoint", "", "base URL of the Grad-CAM service (empty = overlays disabled)")
	fs.StringVar(&c.ArtifactDir, "artifact-dir", "", "directory for generated Grad-CAM overlays")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for urgent-case notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = auth disabled)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Backend selection drives which credentials are required
	switch c.ClassifierBackend {
	case BackendClaude:
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required with the claude backend"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required with the claude backend"))
		}
	case BackendInference:
		if c.InferenceEndpoint == "" {
			errs = append(errs, errors.New("INFERENCE_ENDPOINT is required with the inference backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid CLASSIFIER_BACKEND %q (must be claude or inference)", c.ClassifierBackend))
	}

	// Overlays need somewhere to be written
	if c.GradcamEndpoint != "" && c.ArtifactDir == "" {
		errs = append(errs, errors.New("ARTIFACT_DIR is required when GRADCAM_ENDPOINT is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
