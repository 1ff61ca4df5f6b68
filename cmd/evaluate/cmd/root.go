package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	evaluator "github.com/aouyang1/go-forecast-eval"
	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/report"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding flags, e.g. FHEVAL_OUT_DIR
const EnvPrefix = "FHEVAL"

var ErrUnknownEvalType = errors.New("unknown evaluation type")

func newRootCmd() *cobra.Command {
	v := viper.New()
	rootCmd := &cobra.Command{
		Use:   "evaluate proj_date eval_date",
		Short: "Evaluate COVID-19 Forecast Hub case forecasts",
		Long: `Scores the incident case forecasts of every model in a local copy of the COVID-19
Forecast Hub against the observed cases between a projection date (a Monday) and an evaluation
date (a Saturday). Counties are evaluated first, then states.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}

	flags := rootCmd.Flags()
	flags.String("forecast-hub-dir", "../covid19-forecast-hub", "local copy of the covid19-forecast-hub repository")
	flags.String("out-dir", "", "directory to save outputs, nothing is saved if empty")
	flags.String("truth-file", "", "ground truth file, defaults to the latest truth file of the forecast hub")
	flags.Bool("copy-truth", false, "copy and save the latest truth file")
	flags.String("truth-cache-dir", "truth", "directory the latest truth file is copied to")
	flags.Bool("use-median", false, "use the median estimate instead of the point estimate")
	flags.Bool("print-additional-stats", false, "print diagnostics like the error correlation and holidays in the truth window")
	flags.Bool("no-merge", false, "evaluate every model of a merged family separately")
	flags.StringSlice("merge-prefixes", []string{"Imperial"}, "model families averaged into a single model")
	flags.StringSlice("eval-types", []string{string(location.Counties), string(location.States)}, "evaluation types to run in order")
	flags.Int("parallelism", 4, "number of forecast files loaded at once")
	flags.Int("min-locations-states", 40, "models with this many states or fewer are left out of the summaries")
	flags.Int("min-locations-counties", 2000, "models with this many counties or fewer are left out of the summaries")
	flags.Int("expected-state-rows", 58, "number of state level rows in the locations table, 0 disables the check")
	flags.String("baseline", "COVIDhub-baseline", "baseline model every model is compared against")
	flags.String("log-level", "info", "log level, one of debug, info, warn or error")
	flags.String("log-format", "text", "log format, text or json")
	flags.String("cpuprofile", "", "directory to write a cpu profile to")
	flags.String("config", "", "yaml or json config file with flag values")
	return rootCmd
}

// Execute runs the evaluate command and exits with a non-zero code on any failure
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers flags over environment variables over an optional config file
func loadConfig(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("unable to bind flags, %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfg := v.GetString("config"); cfg != "" {
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config %s, %w", cfg, err)
		}
	}

	logger, err := newLogger(cmd.ErrOrStderr(), v.GetString("log-level"), v.GetString("log-format"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// newOptions builds the evaluation options of one evaluation type from the layered config
func newOptions(v *viper.Viper, projDate, evalDate time.Time, mode location.Mode) *evaluator.Options {
	opt := evaluator.NewDefaultOptions()
	opt.HubDir = v.GetString("forecast-hub-dir")
	opt.ProjDate = projDate
	opt.EvalDate = evalDate
	opt.Mode = mode
	opt.TruthFile = v.GetString("truth-file")
	opt.CopyTruth = v.GetBool("copy-truth")
	opt.TruthCacheDir = v.GetString("truth-cache-dir")
	opt.MergeModels = !v.GetBool("no-merge")
	opt.MergePrefixes = v.GetStringSlice("merge-prefixes")
	opt.AdditionalStats = v.GetBool("print-additional-stats")
	opt.Parallelism = v.GetInt("parallelism")

	opt.LocationOptions.ExpectedStateRows = v.GetInt("expected-state-rows")
	opt.ForecastOptions.UsePoint = !v.GetBool("use-median")
	opt.ScoreOptions.MinLocationsStates = v.GetInt("min-locations-states")
	opt.ScoreOptions.MinLocationsCounties = v.GetInt("min-locations-counties")
	opt.ScoreOptions.Baseline = v.GetString("baseline")
	return opt
}

func parseDates(args []string) (time.Time, time.Time, error) {
	projDate, err := time.Parse(time.DateOnly, args[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid proj_date, %w", err)
	}
	evalDate, err := time.Parse(time.DateOnly, args[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid eval_date, %w", err)
	}
	return projDate, evalDate, nil
}

func parseModes(evalTypes []string) ([]location.Mode, error) {
	modes := make([]location.Mode, 0, len(evalTypes))
	for _, evalType := range evalTypes {
		mode := location.Mode(strings.ToLower(strings.TrimSpace(evalType)))
		if mode != location.States && mode != location.Counties {
			return nil, fmt.Errorf("%q, %w", evalType, ErrUnknownEvalType)
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

func run(cmd *cobra.Command, v *viper.Viper, args []string) error {
	if dir := v.GetString("cpuprofile"); dir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.NoShutdownHook).Stop()
	}

	projDate, evalDate, err := parseDates(args)
	if err != nil {
		return err
	}
	modes, err := parseModes(v.GetStringSlice("eval-types"))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	outDir := v.GetString("out-dir")
	format := report.NewDefaultFormat()
	for _, mode := range modes {
		opt := newOptions(v, projDate, evalDate, mode)
		ev, err := evaluator.New(opt)
		if err != nil {
			return err
		}
		res, err := ev.Run(ctx)
		if err != nil {
			return fmt.Errorf("%s evaluation failed, %w", mode, err)
		}
		if err := res.Report(cmd.OutOrStdout(), outDir, format); err != nil {
			return fmt.Errorf("unable to report %s evaluation, %w", mode, err)
		}
		if outDir != "" {
			paths := report.Paths{OutDir: outDir, ProjDate: projDate, EvalDate: evalDate}
			if err := report.WriteJSONFile(paths.Options(), ev.Options()); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "=================================================")
	fmt.Fprintln(cmd.OutOrStdout(), "Done:", time.Now().Format(time.DateTime))
	return nil
}
