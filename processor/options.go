package processor

import (
	"io"
	"runtime"

	"golang.org/x/exp/slog"

	"pagehits/record"
	"pagehits/resolve"
	"pagehits/source"
)

type Option func(*Processor) *Processor

// WithWorkers sets the number of partitions and of concurrent workers.
// Values below 1 mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(p *Processor) *Processor {
		if n < 1 {
			n = runtime.NumCPU()
		}
		p.workers = n
		return p
	}
}

func WithSource(mode source.Mode) Option {
	return func(p *Processor) *Processor {
		p.source = mode
		return p
	}
}

func WithKeyMode(mode record.KeyMode) Option {
	return func(p *Processor) *Processor {
		p.keys = mode
		return p
	}
}

// WithWindow makes workers scan through a buffer of n bytes instead of
// slicing the region directly. Paged sources always scan through a buffer.
func WithWindow(n int) Option {
	return func(p *Processor) *Processor {
		p.window = n
		return p
	}
}

// WithLookupLimit bounds the number of paths collected for hashed keys.
func WithLookupLimit(n int) Option {
	return func(p *Processor) *Processor {
		p.lookupLimit = n
		return p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) *Processor {
		p.logger = logger
		return p
	}
}

func defaults() *Processor {
	return &Processor{
		workers:     runtime.NumCPU(),
		source:      source.Mapped,
		keys:        record.Exact,
		lookupLimit: resolve.DefaultLimit,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
