// Package engine implements the in-process execution engine behind the
// ndarray.Engine boundary: buffer ownership, deferred allocation,
// asynchronous submission with per-buffer dependency ordering, and
// device dispatch.
package engine

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/informatrix/ndarray/internal/device"
)

// Options configure an Engine.
type Options struct {
	// Workers bounds the number of concurrently executing operations.
	// Defaults to GOMAXPROCS; configurable via NDARRAY_WORKERS.
	Workers int

	// Seed seeds the sampling source. Defaults to 1; configurable via
	// NDARRAY_SEED.
	Seed uint64

	// Logger receives debug-level scheduling events. Defaults to
	// slog.Default; NDARRAY_DEBUG enables a debug handler.
	Logger *slog.Logger

	// GPUFactory creates the device used for GPU contexts. The device
	// is created lazily on first GPU allocation. When nil, GPU
	// allocations fail with an allocation error.
	GPUFactory func() (device.Device, error)
}

// Option mutates Options.
type Option func(*Options)

// WithWorkers sets the concurrent operation bound.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithSeed seeds the sampling source.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithGPUFactory registers the constructor for the GPU device.
func WithGPUFactory(f func() (device.Device, error)) Option {
	return func(o *Options) { o.GPUFactory = f }
}

// envInt returns the integer value of an environment variable, or def
// when unset or unparsable.
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		slog.Warn("invalid value, using default", "key", key, "value", s, "default", def)
		return def
	}
	return n
}

// envUint64 returns the uint64 value of an environment variable, or def.
func envUint64(key string, def uint64) uint64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		slog.Warn("invalid value, using default", "key", key, "value", s, "default", def)
		return def
	}
	return n
}

// defaultOptions resolves defaults and the process environment.
func defaultOptions() Options {
	o := Options{
		Workers: envInt("NDARRAY_WORKERS", runtime.GOMAXPROCS(0)),
		Seed:    envUint64("NDARRAY_SEED", 1),
		Logger:  slog.Default(),
	}
	if os.Getenv("NDARRAY_DEBUG") != "" {
		o.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return o
}
