package configuration

import (
	"time"
)

// Run input and output.
const (
	DefaultInput  = "./data/2023_11_KICE_flat.json"
	DefaultOutput = "./output/results.csv"
	DefaultType   = "text"
)

// Provider constants.
const (
	DefaultModel           = "gemini-2.0-flash-lite"
	DefaultResponseMode    = ResponseModeSchema
	DefaultMaxOutputTokens = 2048
	DefaultRequestTimeout  = 2 * time.Minute
)

// Retry constants.
const (
	DefaultMaxAttempts    = 3
	DefaultRateLimitWait  = 60 * time.Second
	DefaultParseErrorWait = 5 * time.Second
	DefaultRetryWait      = 10 * time.Second
)

// Pacing constants.
const (
	DefaultPaceInterval  = 10 * time.Second
	DefaultBatchInterval = 60 * time.Second
	DefaultBatchSize     = 5
)

// Observability constants.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultConfig returns a configuration with every field but the API key
// populated. The pacing and retry waits match the free-tier Gemini quotas.
func DefaultConfig() *Config {
	return &Config{
		Input:  DefaultInput,
		Output: DefaultOutput,
		Type:   DefaultType,
		Provider: ProviderConfig{
			Model:           DefaultModel,
			Timeout:         DefaultRequestTimeout,
			ResponseMode:    DefaultResponseMode,
			MaxOutputTokens: DefaultMaxOutputTokens,
		},
		Retry: RetryConfig{
			MaxAttempts:    DefaultMaxAttempts,
			RateLimitWait:  DefaultRateLimitWait,
			ParseErrorWait: DefaultParseErrorWait,
			DefaultWait:    DefaultRetryWait,
		},
		Pacing: PacingConfig{
			Interval:      DefaultPaceInterval,
			BatchInterval: DefaultBatchInterval,
			BatchSize:     DefaultBatchSize,
		},
		Observability: ObservabilityConfig{
			LogLevel:  DefaultLogLevel,
			LogFormat: DefaultLogFormat,
		},
	}
}
