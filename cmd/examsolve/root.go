package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ahrav/examsolve/internal/llm/configuration"
	"github.com/ahrav/examsolve/internal/report"
	"github.com/ahrav/examsolve/internal/store"
	"github.com/ahrav/examsolve/internal/worker"
)

var errNoResults = errors.New("no recorded answers")

// cli carries the state shared by every subcommand.
type cli struct {
	v          *viper.Viper
	stdout     io.Writer
	stderr     io.Writer
	configFile string
	envFile    string
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "examsolve",
		Short:         "Solve a multiple-choice exam with Gemini",
		Long:          "Solve every problem of an exam document with Gemini, appending each answer to a CSV log.\nRe-running against the same log resumes where the previous run stopped.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          c.runBatch,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&c.envFile, "env-file", ".env", "dotenv file exported before reading the environment")
	pf.StringP("input", "i", configuration.DefaultInput, "input problem document")
	pf.StringP("output", "o", configuration.DefaultOutput, "CSV result log")
	pf.String("log-level", configuration.DefaultLogLevel, "log level: debug, info, warn or error")
	pf.String("log-format", configuration.DefaultLogFormat, "log format: text or json")

	f := root.Flags()
	addRunFlags(f)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Solve every unrecorded problem",
		Args:  cobra.NoArgs,
		RunE:  c.runBatch,
	}
	addRunFlags(runCmd.Flags())

	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Print the summary of an existing result log",
		Args:  cobra.NoArgs,
		RunE:  c.score,
	}

	root.AddCommand(runCmd, scoreCmd)
	return root
}

func addRunFlags(f *pflag.FlagSet) {
	f.StringP("type", "t", configuration.DefaultType, "solver type: text or multi")
	f.String("model", configuration.DefaultModel, "Gemini model name")
	f.Int("response-mode", int(configuration.DefaultResponseMode), "1 plain text, 2 JSON, 3 JSON with schema")
	f.Int32("max-output-tokens", configuration.DefaultMaxOutputTokens, "output token limit per request")
	f.String("base-url", "", "override the Gemini API endpoint")
	f.Duration("request-timeout", configuration.DefaultRequestTimeout, "timeout for one model call")
	f.Int("max-attempts", configuration.DefaultMaxAttempts, "solve attempts per problem")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.String("events", "", "append run events as JSON lines to this file")
	f.Bool("disable-json-repair", false, "skip repairing malformed JSON responses")
	f.Bool("redact-reasoning", false, "log only the length of model reasoning")
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"input":               configuration.KeyInput,
	"output":              configuration.KeyOutput,
	"log-level":           configuration.KeyLogLevel,
	"log-format":          configuration.KeyLogFormat,
	"type":                configuration.KeyType,
	"model":               configuration.KeyModel,
	"response-mode":       configuration.KeyResponseMode,
	"max-output-tokens":   configuration.KeyMaxOutputTokens,
	"base-url":            configuration.KeyBaseURL,
	"request-timeout":     configuration.KeyRequestTimeout,
	"max-attempts":        configuration.KeyMaxAttempts,
	"metrics-addr":        configuration.KeyMetricsAddr,
	"events":              configuration.KeyEventsPath,
	"disable-json-repair": configuration.KeyDisableJSONRepair,
	"redact-reasoning":    configuration.KeyRedactReasoning,
}

// prepare layers configuration sources onto c.v: defaults, config file,
// environment (including the dotenv file) and the flags of cmd.
func (c *cli) prepare(cmd *cobra.Command) error {
	if err := configuration.LoadDotEnv(c.envFile); err != nil {
		return err
	}

	configuration.SetDefaults(c.v)
	if err := configuration.BindEnv(c.v); err != nil {
		return err
	}

	if c.configFile != "" {
		c.v.SetConfigFile(c.configFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", c.configFile, err)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(fl *pflag.Flag) {
		key, ok := flagKeys[fl.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = c.v.BindPFlag(key, fl)
	})
	return bindErr
}

func (c *cli) logger() (*slog.Logger, error) {
	logger, err := worker.NewLogger(c.stderr,
		c.v.GetString(configuration.KeyLogLevel),
		c.v.GetString(configuration.KeyLogFormat))
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func (c *cli) colored() bool {
	return c.v.GetString(configuration.KeyNoColor) == "" && !color.NoColor
}

func (c *cli) runBatch(cmd *cobra.Command, _ []string) error {
	if err := c.prepare(cmd); err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}
	cfg, err := configuration.Load(c.v)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := worker.Build(ctx, cfg, worker.WithOutput(c.stdout), worker.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close run resources", "error", err)
		}
	}()

	_, err = app.Run(ctx)
	return err
}

func (c *cli) score(cmd *cobra.Command, _ []string) error {
	if err := c.prepare(cmd); err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}

	target := c.v.GetString(configuration.KeyOutput)
	summary, err := store.New(logger).Aggregate(target)
	if err != nil {
		return err
	}
	if summary.Total == 0 {
		return fmt.Errorf("%w in %s", errNoResults, target)
	}
	report.NewConsole(c.stdout, c.colored()).Summary(summary, false)
	return nil
}
