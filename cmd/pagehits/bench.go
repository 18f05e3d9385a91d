package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/jamiealquiza/tachymeter"
	"github.com/rodaine/table"
	"golang.org/x/exp/slog"

	"pagehits/config"
)

const defaultRuns = 5

// runBench repeats the process command and reports wall time percentiles.
// Per-run logging is suppressed below warnings.
func runBench(ctx context.Context, cfg *config.Config, logger *slog.Logger, runs int, w io.Writer) error {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := newProcessor(cfg, quiet)
	tm := tachymeter.New(&tachymeter.Config{Size: runs})

	var bytes int64
	for i := 0; i < runs; i++ {
		start := time.Now()
		res, err := p.Process(ctx, cfg.InputPath(), cfg.OutputPath())
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		elapsed := time.Since(start)
		tm.AddTime(elapsed)
		bytes = res.Stats.Bytes
		logger.Debug("bench run", "run", i+1, "elapsed", elapsed, "paths", res.Stats.Paths)
	}

	metrics := tm.Calc()
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	tbl := table.
		New("Source", "Keys", "Workers", "Runs", "Min", "P50", "P99", "Max", "MB/s").
		WithHeaderFormatter(headerFmt).
		WithFirstColumnFormatter(columnFmt).
		WithWriter(w)

	tbl.AddRow(
		cfg.SourceMode(),
		cfg.KeyMode(),
		cfg.Process.Workers,
		runs,
		metrics.Time.Min,
		metrics.Time.P50,
		metrics.Time.P99,
		metrics.Time.Max,
		fmt.Sprintf("%.1f", throughput(bytes, metrics.Time.P50)),
	)
	tbl.Print()
	return nil
}

// throughput is bytes per elapsed in MB/s.
func throughput(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) / 1e6 / elapsed.Seconds()
}
