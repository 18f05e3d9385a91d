// Package generate writes synthetic `URL,timestamp` visit logs.
package generate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/exp/rand"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// Domain prefixes every generated URL.
const Domain = "https://stitcher.io"

const (
	defaultBlockRows = 1 << 18
	progressEvery    = 10_000_000
)

// Paths is the fixed set of paths visits are drawn from.
var Paths = []string{
	"/blog/php-enums",
	"/blog/11-million-rows-in-seconds",
	"/blog/laravel-beyond-crud",
	"/blog/php-81-enums",
	"/blog/a-project-at-stitcher",
	"/blog/php-what-i-dont-like",
	"/blog/new-in-php-81",
	"/blog/new-in-php-82",
	"/blog/new-in-php-83",
	"/blog/new-in-php-84",
	"/blog/generics-in-php",
	"/blog/readonly-classes-in-php-82",
	"/blog/fibers-with-a-grain-of-salt",
	"/blog/php-enum-style-guide",
	"/blog/constructor-promotion-in-php-8",
	"/blog/php-match-or-switch",
	"/blog/named-arguments-in-php-80",
	"/blog/php-enums-and-static-analysis",
	"/blog/short-closures-in-php",
	"/blog/attributes-in-php-8",
	"/blog/typed-properties-in-php-74",
	"/blog/a-letter-to-the-php-community",
	"/blog/union-types-in-php-80",
	"/blog/what-is-new-in-php",
	"/blog/readonly-properties-in-php-82",
	"/blog/nullsafe-operator-in-php",
	"/blog/php-deprecations-84",
	"/blog/property-hooks-in-php-84",
	"/blog/asymmetric-visibility-in-php-84",
	"/blog/crafting-quality-code",
	"/blog/object-oriented-programming",
	"/blog/design-patterns-explained",
	"/blog/functional-programming-in-php",
	"/blog/testing-best-practices",
	"/blog/clean-architecture",
	"/blog/domain-driven-design",
	"/blog/event-sourcing-patterns",
	"/blog/cqrs-explained",
	"/blog/microservices-patterns",
	"/blog/api-design-principles",
	"/blog/rest-vs-graphql",
	"/blog/database-optimization",
	"/blog/caching-strategies",
	"/blog/security-best-practices",
	"/blog/ci-cd-pipelines",
	"/blog/docker-for-developers",
	"/blog/kubernetes-basics",
	"/blog/serverless-architecture",
	"/blog/web-performance-tips",
	"/blog/frontend-frameworks-comparison",
}

// Years is the set of years visits are drawn from. Months span 1-12 and days
// 1-28.
var Years = []int{2024, 2025, 2026}

type Generator struct {
	count     int
	seed      uint64
	workers   int
	blockRows int
	logger    *slog.Logger
}

type Option func(*Generator) *Generator

// WithSeed makes the output reproducible. A zero seed is replaced by the
// current time.
func WithSeed(seed uint64) Option {
	return func(g *Generator) *Generator {
		g.seed = seed
		return g
	}
}

// WithWorkers sets how many blocks are generated concurrently.
func WithWorkers(n int) Option {
	return func(g *Generator) *Generator {
		g.workers = max(n, 1)
		return g
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) *Generator {
		g.logger = logger
		return g
	}
}

func New(count int, options ...Option) *Generator {
	g := &Generator{
		count:     max(count, 0),
		workers:   runtime.NumCPU(),
		blockRows: defaultBlockRows,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		g = opt(g)
	}
	if g.seed == 0 {
		g.seed = uint64(time.Now().UnixNano())
	}
	return g
}

// WriteFile writes the log to path, replacing any existing file.
func (g *Generator) WriteFile(ctx context.Context, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}

	w := bufio.NewWriterSize(file, 8*1024*1024)
	if err := g.Write(ctx, w); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("unable to flush %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("unable to close %s: %w", path, err)
	}

	g.logger.Info("generated rows", "rows", g.count, "path", path)
	return nil
}

// Write writes count lines to w. Blocks of rows are generated concurrently,
// each from its own seeded source, and written in block order, so a given
// seed always yields the same bytes regardless of the worker count.
func (g *Generator) Write(ctx context.Context, w io.Writer) error {
	blocks := (g.count + g.blockRows - 1) / g.blockRows
	bufs := make([][]byte, g.workers)
	written := 0

	for first := 0; first < blocks; first += g.workers {
		round := min(g.workers, blocks-first)

		eg, ctx := errgroup.WithContext(ctx)
		for i := 0; i < round; i++ {
			block := first + i
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				rows := min(g.blockRows, g.count-block*g.blockRows)
				bufs[i] = g.block(bufs[i][:0], block, rows)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		for i := 0; i < round; i++ {
			if _, err := w.Write(bufs[i]); err != nil {
				return fmt.Errorf("unable to write rows: %w", err)
			}
			before := written
			written += min(g.blockRows, g.count-(first+i)*g.blockRows)
			if written/progressEvery > before/progressEvery {
				g.logger.Info("generating", "rows", written)
			}
		}
	}
	return nil
}

func (g *Generator) block(dst []byte, block, rows int) []byte {
	r := rand.New(rand.NewSource(g.seed + uint64(block)*0x9E3779B97F4A7C15))
	for range rows {
		dst = append(dst, Domain...)
		dst = append(dst, Paths[r.Intn(len(Paths))]...)
		dst = append(dst, ',')
		dst = appendTimestamp(dst,
			Years[r.Intn(len(Years))], 1+r.Intn(12), 1+r.Intn(28),
			r.Intn(24), r.Intn(60), r.Intn(60))
		dst = append(dst, '\n')
	}
	return dst
}

// appendTimestamp appends YYYY-MM-DDTHH:MM:SS+00:00.
func appendTimestamp(dst []byte, year, month, day, hour, minute, second int) []byte {
	dst = append(dst,
		byte('0'+year/1000%10), byte('0'+year/100%10), byte('0'+year/10%10), byte('0'+year%10), '-',
		byte('0'+month/10), byte('0'+month%10), '-',
		byte('0'+day/10), byte('0'+day%10), 'T',
		byte('0'+hour/10), byte('0'+hour%10), ':',
		byte('0'+minute/10), byte('0'+minute%10), ':',
		byte('0'+second/10), byte('0'+second%10))
	return append(dst, "+00:00"...)
}
