package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Configuration keys understood by Load.
const (
	KeyInput             = "input"
	KeyOutput            = "output"
	KeyType              = "type"
	KeyAPIKey            = "api_key"
	KeyModel             = "model"
	KeyBaseURL           = "base_url"
	KeyRequestTimeout    = "request_timeout"
	KeyResponseMode      = "response_mode"
	KeyMaxOutputTokens   = "max_output_tokens"
	KeyMaxAttempts       = "retry.max_attempts"
	KeyRateLimitWait     = "retry.rate_limit_wait"
	KeyParseErrorWait    = "retry.parse_error_wait"
	KeyDefaultWait       = "retry.default_wait"
	KeyPaceInterval      = "pacing.interval"
	KeyBatchInterval     = "pacing.batch_interval"
	KeyBatchSize         = "pacing.batch_size"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyMetricsAddr       = "metrics_addr"
	KeyEventsPath        = "events_path"
	KeyDisableJSONRepair = "disable_json_repair"
	KeyNoColor           = "no_color"
	KeyRedactReasoning   = "redact_reasoning"
)

// EnvPrefix namespaces environment variables that have no legacy name.
const EnvPrefix = "EXAMSOLVE"

// legacyEnv maps keys to the unprefixed variable names older deployments set.
var legacyEnv = map[string]string{
	KeyAPIKey:          "GEMINI_API_KEY",
	KeyModel:           "MODEL",
	KeyResponseMode:    "RESPONSE_MODE",
	KeyMaxOutputTokens: "MAX_OUTPUT_TOKENS",
	KeyNoColor:         "NO_COLOR",
}

// SetDefaults registers DefaultConfig values on v so that lower-precedence
// sources fall back to them.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyInput, d.Input)
	v.SetDefault(KeyOutput, d.Output)
	v.SetDefault(KeyType, d.Type)
	v.SetDefault(KeyModel, d.Provider.Model)
	v.SetDefault(KeyBaseURL, d.Provider.BaseURL)
	v.SetDefault(KeyRequestTimeout, d.Provider.Timeout)
	v.SetDefault(KeyResponseMode, int(d.Provider.ResponseMode))
	v.SetDefault(KeyMaxOutputTokens, d.Provider.MaxOutputTokens)
	v.SetDefault(KeyMaxAttempts, d.Retry.MaxAttempts)
	v.SetDefault(KeyRateLimitWait, d.Retry.RateLimitWait)
	v.SetDefault(KeyParseErrorWait, d.Retry.ParseErrorWait)
	v.SetDefault(KeyDefaultWait, d.Retry.DefaultWait)
	v.SetDefault(KeyPaceInterval, d.Pacing.Interval)
	v.SetDefault(KeyBatchInterval, d.Pacing.BatchInterval)
	v.SetDefault(KeyBatchSize, d.Pacing.BatchSize)
	v.SetDefault(KeyLogLevel, d.Observability.LogLevel)
	v.SetDefault(KeyLogFormat, d.Observability.LogFormat)
}

// BindEnv wires environment variables into v. Every key is reachable as
// EXAMSOLVE_<KEY> with dots replaced by underscores; keys in legacyEnv also
// accept their unprefixed name, which takes precedence.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, name, prefixed); err != nil {
			return fmt.Errorf("bind env %s: %w", name, err)
		}
	}
	return nil
}

// LoadDotEnv exports the variables of a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range dv.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, dv.GetString(key)); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

// Load materializes a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Input:  v.GetString(KeyInput),
		Output: v.GetString(KeyOutput),
		Type:   strings.ToLower(strings.TrimSpace(v.GetString(KeyType))),
		Provider: ProviderConfig{
			APIKey:          strings.TrimSpace(v.GetString(KeyAPIKey)),
			Model:           v.GetString(KeyModel),
			BaseURL:         v.GetString(KeyBaseURL),
			Timeout:         v.GetDuration(KeyRequestTimeout),
			ResponseMode:    ResponseMode(v.GetInt(KeyResponseMode)),
			MaxOutputTokens: v.GetInt32(KeyMaxOutputTokens),
		},
		Retry: RetryConfig{
			MaxAttempts:    v.GetInt(KeyMaxAttempts),
			RateLimitWait:  v.GetDuration(KeyRateLimitWait),
			ParseErrorWait: v.GetDuration(KeyParseErrorWait),
			DefaultWait:    v.GetDuration(KeyDefaultWait),
		},
		Pacing: PacingConfig{
			Interval:      v.GetDuration(KeyPaceInterval),
			BatchInterval: v.GetDuration(KeyBatchInterval),
			BatchSize:     v.GetInt(KeyBatchSize),
		},
		Observability: ObservabilityConfig{
			LogLevel:    strings.ToLower(v.GetString(KeyLogLevel)),
			LogFormat:   strings.ToLower(v.GetString(KeyLogFormat)),
			MetricsAddr: v.GetString(KeyMetricsAddr),
			EventsPath:  v.GetString(KeyEventsPath),
		},
		Features: FeatureFlags{
			DisableJSONRepair: v.GetBool(KeyDisableJSONRepair),
			DisableColor:      v.IsSet(KeyNoColor) && v.GetString(KeyNoColor) != "",
			RedactReasoning:   v.GetBool(KeyRedactReasoning),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
