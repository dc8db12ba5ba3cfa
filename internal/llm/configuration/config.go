package configuration

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("listen_addr", isListenAddr); err != nil {
		panic(err)
	}
	return v
}

// isListenAddr accepts host:port pairs a TCP listener can bind, including an
// empty host and port 0 for an ephemeral port.
func isListenAddr(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	_, err = strconv.ParseUint(port, 10, 16)
	return err == nil
}

// ResponseMode selects how the solver asks the model for its answer.
type ResponseMode int

const (
	// ResponseModePlain sends the prompt with no output constraints.
	ResponseModePlain ResponseMode = 1
	// ResponseModeJSON requests an application/json response.
	ResponseModeJSON ResponseMode = 2
	// ResponseModeSchema requests JSON constrained by a response schema.
	ResponseModeSchema ResponseMode = 3
)

// Config holds the settings for one batch run. It is assembled once at
// startup and injected into constructors; nothing downstream re-reads the
// environment.
type Config struct {
	// Input is the path of the problem document.
	Input string `json:"input" validate:"required"`

	// Output is the path of the result log.
	Output string `json:"output" validate:"required"`

	// Type selects the solver variant: "text" or "multi".
	Type string `json:"type" validate:"oneof=text multi"`

	// HTTPClient overrides the client used for model calls. Tests set it.
	HTTPClient *http.Client `json:"-"`

	Provider      ProviderConfig      `json:"provider"`
	Retry         RetryConfig         `json:"retry"`
	Pacing        PacingConfig        `json:"pacing"`
	Observability ObservabilityConfig `json:"observability"`
	Features      FeatureFlags        `json:"features"`
}

// ProviderConfig holds model endpoint settings and credentials.
type ProviderConfig struct {
	APIKey          string        `json:"-" validate:"required"` // Sensitive, not serialized
	Model           string        `json:"model" validate:"required"`
	BaseURL         string        `json:"base_url" validate:"omitempty,url"`
	Timeout         time.Duration `json:"timeout" validate:"gte=0"`
	ResponseMode    ResponseMode  `json:"response_mode" validate:"min=1,max=3"`
	MaxOutputTokens int32         `json:"max_output_tokens" validate:"min=1"`
}

// RetryConfig bounds attempts per problem and sets the pause taken after each
// kind of failure.
type RetryConfig struct {
	MaxAttempts    int           `json:"max_attempts" validate:"min=1"`
	RateLimitWait  time.Duration `json:"rate_limit_wait" validate:"gte=0"`
	ParseErrorWait time.Duration `json:"parse_error_wait" validate:"gte=0"`
	DefaultWait    time.Duration `json:"default_wait" validate:"gte=0"`
}

// PacingConfig spaces out consecutive problems to stay under provider quotas.
type PacingConfig struct {
	Interval      time.Duration `json:"interval" validate:"gte=0"`
	BatchInterval time.Duration `json:"batch_interval" validate:"gte=0"`
	BatchSize     int           `json:"batch_size" validate:"min=1"`
}

// ObservabilityConfig controls logging, metrics, and run events.
type ObservabilityConfig struct {
	LogLevel    string `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `json:"log_format" validate:"oneof=text json"`
	MetricsAddr string `json:"metrics_addr" validate:"omitempty,listen_addr"`
	EventsPath  string `json:"events_path"`
}

// FeatureFlags toggle optional behaviours.
type FeatureFlags struct {
	DisableJSONRepair bool `json:"disable_json_repair"`
	DisableColor      bool `json:"disable_color"`
	// RedactReasoning logs only the length of model reasoning.
	RedactReasoning   bool `json:"redact_reasoning"`
}

// Validate checks field constraints and returns a single error describing
// every violation.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %v", ErrInvalidConfig, fields)
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
