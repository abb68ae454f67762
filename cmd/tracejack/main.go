package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/tracejack/internal/adapters/fs"
	"github.com/bft-labs/tracejack/internal/app"
	"github.com/bft-labs/tracejack/internal/archive"
	"github.com/bft-labs/tracejack/internal/cliconfig"
	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/dsp"
	"github.com/bft-labs/tracejack/internal/format"
	"github.com/bft-labs/tracejack/internal/interrupt"
	"github.com/bft-labs/tracejack/internal/metrics"
	"github.com/bft-labs/tracejack/internal/output"
	"github.com/bft-labs/tracejack/internal/plan"
	"github.com/bft-labs/tracejack/internal/ports"
	"github.com/bft-labs/tracejack/internal/timeutil"
	tjlog "github.com/bft-labs/tracejack/pkg/log"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

const longHelp = `Cut, resample and rename seismic waveform archives window by window.

The archive is walked in fixed-size time windows, optionally aligned to
multiples of the window length. Every window is optionally downsampled,
its station codes rewritten, and the result written to files named from
an output template.

Configuration is read from the config file, then TRACEJACK_* environment
variables, then flags; later sources win.`

var exampleUsage = strings.TrimSpace(`
  tracejack /data/archive --tinc 1h --snap --output-dir /data/hourly
  tracejack /data --pattern '*.HAM3.*.BH?' --downsample 1 --output-format sac \
      --output '/out/%(station)s/%(channel)s_%(wmin)s.sac' --stations stations.yaml
  tracejack /data --rename-network '/GR/XX/' --output-dir /out --config ./tracejack.toml`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	code := exitOK

	root := &cobra.Command{
		Use:           "tracejack [flags] PATH...",
		Short:         "Windowed batch transform for seismic waveform archives",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Paths = args

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config %s: %w", cfgFile, err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			} else if cfgPath != "" {
				return fmt.Errorf("config file %s not found: %w", cfgPath, domain.ErrInvalidConfig)
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return fmt.Errorf("environment: %w", err)
			}

			resolved, err := cfg.Resolve()
			if err != nil {
				return err
			}

			code, err = run(cmd.Context(), resolved)
			return err
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.tracejack/config.toml)")
	f.StringVar(&cfg.Format, "format", cfg.Format, fmt.Sprintf("input format (%s, or %s by file extension)", strings.Join(format.Names(), "|"), cliconfig.DetectFormat))
	f.StringVar(&cfg.Pattern, "pattern", cfg.Pattern, "select traces whose NET.STA.LOC.CHA matches this glob, e.g. '*.HAM3.*.BH?'")

	f.StringVar(&cfg.Tmin, "tmin", cfg.Tmin, "start time as '"+timeutil.Layout+"[.xxx]' (default: start of data)")
	f.StringVar(&cfg.Tmax, "tmax", cfg.Tmax, "end time as '"+timeutil.Layout+"[.xxx]' (default: end of data)")
	f.StringVar(&cfg.Tinc, "tinc", cfg.Tinc, "window length, seconds or with unit "+unitHelp()+", e.g. 10m (default: guessed)")
	f.BoolVar(&cfg.Snap, "snap", cfg.Snap, "align window boundaries to multiples of --tinc")
	f.Float64Var(&cfg.Downsample, "downsample", cfg.Downsample, "downsample to this sampling rate in Hz")
	f.StringVar(&cfg.Group, "group", cfg.Group, "write one batch per window (none), per channel (channel) or per station (station)")

	f.StringArrayVar(&cfg.RenameNetwork, "rename-network", cfg.RenameNetwork, "rewrite network codes with /pattern/replacement/ (repeatable)")
	f.StringArrayVar(&cfg.RenameStation, "rename-station", cfg.RenameStation, "rewrite station codes with /pattern/replacement/ (repeatable)")
	f.StringArrayVar(&cfg.RenameLocation, "rename-location", cfg.RenameLocation, "rewrite location codes with /pattern/replacement/ (repeatable)")
	f.StringArrayVar(&cfg.RenameChannel, "rename-channel", cfg.RenameChannel, "rewrite channel codes with /pattern/replacement/ (repeatable)")

	f.StringVar(&cfg.Output, "output", cfg.Output, "output path template with placeholders "+placeholderHelp())
	f.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "output directory, files named by the default template")
	f.StringVar(&cfg.OutputFormat, "output-format", cfg.OutputFormat, "output format ("+strings.Join(format.Names(), "|")+")")

	f.StringVar(&cfg.Stations, "stations", cfg.Stations, "station metadata YAML used to fill SAC headers")
	f.StringVar(&cfg.Events, "events", cfg.Events, "event catalog YAML used to fill SAC origin headers")

	f.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "keep the trace index in this directory between runs")
	f.IntVar(&cfg.FileCache, "file-cache", cfg.FileCache, "number of decoded input files kept in memory")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "warn when input files change during the run")
	f.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write run metrics in Prometheus text format to this file")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")

	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		if code == exitOK {
			code = exitError
		}
		if code != exitInterrupted {
			log, _ := tjlog.NewConsoleLogger(os.Stderr, "info")
			log.Error().Err(err).Msg("tracejack")
		}
	}
	return code
}

func unitHelp() string {
	units := plan.Units()
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.String()
	}
	return strings.Join(names, "|")
}

func placeholderHelp() string {
	return "%(" + strings.Join(output.Placeholders(), ")s, %(") + ")s"
}

// run executes a resolved configuration and returns the process exit code.
func run(ctx context.Context, r *cliconfig.Resolved) (int, error) {
	zl, err := tjlog.NewConsoleLogger(os.Stderr, r.LogLevel.String())
	if err != nil {
		return exitError, err
	}
	zl = zl.With().Str("run", uuid.NewString()).Logger()
	logger := tjlog.NewZerologAdapterWithLogger(zl)

	for _, w := range r.Warnings {
		logger.Warn(w)
	}

	m := metrics.New()
	r.Archive.Logger = logger
	a, err := archive.Open(ctx, r.Archive)
	if err != nil {
		return exitError, fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close archive", ports.Err(err))
		}
	}()
	m.InputFiles(a.Files())

	var resampler ports.Resampler
	if r.App.Plan.TargetDeltat > 0 {
		resampler = dsp.NewDecimator(dsp.DefaultOrder)
	}
	writer := fs.NewTraceFileWriter(r.OutputFormat.Codec(r.Catalog))

	pipeline := app.NewPipeline(r.App, a, resampler, writer, logger, m, nil)

	token := &interrupt.Token{}
	ctrl := interrupt.NewController(token)
	ctrl.Install()
	summary, runErr := pipeline.Run(ctx, token)
	ctrl.Restore()

	for _, p := range a.Changed() {
		logger.Warn("input file changed during run, output may be inconsistent", ports.String("path", p))
	}

	if r.MetricsFile != "" {
		if err := m.WriteTextfile(r.MetricsFile); err != nil {
			logger.Warn("write metrics file", ports.String("path", r.MetricsFile), ports.Err(err))
		}
	}

	logSummary(zl, summary)

	switch {
	case errors.Is(runErr, domain.ErrInterrupted):
		logger.Warn("interrupted by user")
		return exitInterrupted, runErr
	case runErr != nil:
		return exitError, runErr
	}
	return exitOK, nil
}

func logSummary(zl zerolog.Logger, s app.Summary) {
	zl.Info().
		Int("windows", s.Windows).
		Int("batches", s.Batches).
		Int("files", s.Files).
		Int("traces", s.Traces).
		Int("samples", s.Samples).
		Int("dropped_too_short", s.DroppedTooShort).
		Int("dropped_no_data", s.DroppedNoData).
		Msg("summary")
}
