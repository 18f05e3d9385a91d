// Package processor runs the whole aggregation: it opens the input, plans
// partitions, scans them in parallel, merges the results and renders them.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slog"

	"pagehits/aggregate"
	"pagehits/emit"
	"pagehits/partition"
	"pagehits/record"
	"pagehits/resolve"
	"pagehits/source"
)

var (
	// ErrInput wraps failures to open or read the input file.
	ErrInput = errors.New("input")
	// ErrOutput wraps failures to create or write the output file.
	ErrOutput = errors.New("output")
)

type Processor struct {
	workers     int
	source      source.Mode
	keys        record.KeyMode
	window      int
	lookupLimit int
	logger      *slog.Logger
}

func New(options ...Option) *Processor {
	p := defaults()
	for _, opt := range options {
		p = opt(p)
	}
	return p
}

// Stats summarises one run.
type Stats struct {
	aggregate.Stats
	Partitions int
	Paths      int
	Elapsed    time.Duration
}

// Result is the merged aggregate of one input file. It does not reference
// the input once Aggregate returns.
type Result struct {
	Table *aggregate.Table
	// Names resolves hashed keys. It is nil for exact keys.
	Names *resolve.Resolver
	Stats Stats
}

type partial struct {
	table *aggregate.Table
	stats aggregate.Stats
}

// Aggregate counts every record of the file at inputPath.
func Aggregate(ctx context.Context, inputPath string, options ...Option) (*Result, error) {
	return New(options...).Aggregate(ctx, inputPath)
}

// Render returns the JSON document of r.
func Render(r *Result) []byte {
	return emit.Render(r.Table, r.names())
}

func (p *Processor) Aggregate(ctx context.Context, inputPath string) (*Result, error) {
	start := time.Now()
	logger := p.logger.With("run", uuid.NewString())

	region, err := source.Open(inputPath, p.source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInput, err)
	}
	defer region.Close()
	logger.Info("opened input", "path", inputPath, "mode", string(p.source), "bytes", region.Len())

	parts := partition.Plan(region, p.workers)
	logPlan(logger, parts)

	tables, stats, err := p.scan(ctx, logger, region, parts)
	if err != nil {
		return nil, err
	}

	res := &Result{Table: aggregate.Merge(tables...)}
	res.Table.Detach()

	if p.keys == record.Hashed {
		res.Names, err = resolve.Build(region, region.Len(), p.lookupLimit, p.keys)
		if err != nil {
			// The table still holds every count; unresolved keys get placeholders.
			logger.Warn("path lookup incomplete", "error", err)
		}
	}

	res.Stats = Stats{
		Stats:      stats,
		Partitions: len(parts),
		Paths:      res.Table.Len(),
		Elapsed:    time.Since(start),
	}
	logger.Info("aggregated input",
		"paths", res.Stats.Paths,
		"records", stats.Records,
		"skipped", stats.Skipped,
		"elapsed", res.Stats.Elapsed)

	return res, nil
}

// Process aggregates inputPath and writes the JSON document to outputPath.
// The document is written to a temporary file next to outputPath and renamed
// into place, so a failed run leaves no partial output.
func (p *Processor) Process(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	res, err := p.Aggregate(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	if err := writeOutput(outputPath, res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	p.logger.Info("wrote output", "path", outputPath, "paths", res.Stats.Paths)
	return res, nil
}

func (p *Processor) scan(ctx context.Context, logger *slog.Logger, region source.Region, parts []partition.Partition) ([]*aggregate.Table, aggregate.Stats, error) {
	options := []aggregate.TableOption{aggregate.WithKeyMode(p.keys)}
	addressable, direct := region.(source.Addressable)
	direct = direct && p.window <= 0

	workers := pool.NewWithResults[partial]().
		WithMaxGoroutines(max(p.workers, 1)).
		WithContext(ctx).
		WithCancelOnError()

	for i, part := range parts {
		workers.Go(func(ctx context.Context) (partial, error) {
			if err := ctx.Err(); err != nil {
				return partial{}, err
			}

			var res partial
			if direct {
				res.table, res.stats = aggregate.Scan(addressable.Bytes(), part, options...)
			} else {
				var err error
				res.table, res.stats, err = aggregate.ScanWindow(region, part, p.window, options...)
				if err != nil {
					return partial{}, fmt.Errorf("%w: %w", ErrInput, err)
				}
			}

			logger.Debug("scanned partition",
				"partition", i,
				"start", part.Start,
				"end", part.End,
				"paths", res.table.Len(),
				"records", res.stats.Records)
			return res, nil
		})
	}

	results, err := workers.Wait()
	if err != nil {
		return nil, aggregate.Stats{}, err
	}

	var stats aggregate.Stats
	tables := make([]*aggregate.Table, 0, len(results))
	for _, r := range results {
		stats.Add(r.stats)
		tables = append(tables, r.table)
	}
	return tables, stats, nil
}

func (r *Result) names() emit.Resolver {
	if r.Names == nil {
		return nil
	}
	return r.Names
}

func writeOutput(outputPath string, res *Result) (err error) {
	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*")
	if err != nil {
		return fmt.Errorf("unable to create output file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := emit.Write(tmp, res.Table, res.names()); err != nil {
		return fmt.Errorf("unable to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return fmt.Errorf("unable to move output into %s: %w", outputPath, err)
	}
	return nil
}

func logPlan(logger *slog.Logger, parts []partition.Partition) {
	smallest, largest := parts[0].Len(), parts[0].Len()
	for _, p := range parts[1:] {
		smallest = min(smallest, p.Len())
		largest = max(largest, p.Len())
	}
	logger.Info("planned partitions", "count", len(parts), "smallest", smallest, "largest", largest)
}
