// Command pagehits generates synthetic visit logs and aggregates them into
// per-path, per-day visit counts.
//
//	pagehits [-config file] [-profile] [-v] generate [count]
//	pagehits [-config file] [-profile] [-v] process
//	pagehits [-config file] [-profile] [-v] bench [runs]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"pagehits/config"
	"pagehits/generate"
	"pagehits/processor"
)

var (
	configPath string
	profile    bool
	verbose    bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "config file, defaults to ./pagehits.yaml")
	flag.BoolVar(&profile, "profile", false, "write a CPU profile to cpu_profile.pprof")
	flag.BoolVar(&verbose, "v", false, "log at debug level")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] generate [count] | process | bench [runs]\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unable to load config:", err)
		os.Exit(2)
	}
	level, _ := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if profile {
		f, err := os.Create("cpu_profile.pprof")
		if err != nil {
			fmt.Fprintln(os.Stderr, "unable to create CPU profile:", err)
			os.Exit(1)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintln(os.Stderr, "unable to start CPU profile:", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Args(), os.Stderr); err != nil {
		logger.Error("command failed", "error", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		stop()
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		return fmt.Errorf("unable to create data directory %s: %w", cfg.Data.Dir, err)
	}

	switch args[0] {
	case "generate":
		count := cfg.Generate.Count
		if len(args) > 1 {
			n, err := parseCount(args[1])
			if err != nil {
				return err
			}
			count = n
		}
		return runGenerate(ctx, cfg, logger, count, w)
	case "process":
		return runProcess(ctx, cfg, logger, w)
	case "bench":
		runs := defaultRuns
		if len(args) > 1 {
			n, err := parseCount(args[1])
			if err != nil {
				return err
			}
			runs = max(n, 1)
		}
		return runBench(ctx, cfg, logger, runs, w)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

// parseCount accepts decimal counts with optional _ separators, e.g. 100_000_000.
func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, "_", ""))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid count %q", errUsage, s)
	}
	return n, nil
}

func runGenerate(ctx context.Context, cfg *config.Config, logger *slog.Logger, count int, w io.Writer) error {
	start := time.Now()
	out := cfg.InputPath()

	g := generate.New(count,
		generate.WithSeed(cfg.Generate.Seed),
		generate.WithWorkers(cfg.Generate.Blocks),
		generate.WithLogger(logger))
	if err := g.WriteFile(ctx, out); err != nil {
		return err
	}

	fmt.Fprintf(w, "Generated %d rows to %s\n", count, out)
	fmt.Fprintf(w, "Completed in %.3fs\n", time.Since(start).Seconds())
	return nil
}

func runProcess(ctx context.Context, cfg *config.Config, logger *slog.Logger, w io.Writer) error {
	start := time.Now()
	out := cfg.OutputPath()

	res, err := newProcessor(cfg, logger).Process(ctx, cfg.InputPath(), out)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Processed %d unique paths to %s\n", res.Stats.Paths, out)
	fmt.Fprintf(w, "Completed in %.3fs\n", time.Since(start).Seconds())
	return nil
}

func newProcessor(cfg *config.Config, logger *slog.Logger) *processor.Processor {
	return processor.New(
		processor.WithWorkers(cfg.Process.Workers),
		processor.WithSource(cfg.SourceMode()),
		processor.WithKeyMode(cfg.KeyMode()),
		processor.WithWindow(cfg.Process.Window),
		processor.WithLookupLimit(cfg.Process.LookupLimit),
		processor.WithLogger(logger))
}
