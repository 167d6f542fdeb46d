// Copyright 2026 The ndarray Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package engine provides the public constructor for the execution
// engine behind ndarray handles.
//
// The engine schedules operations asynchronously with per-buffer
// dependency ordering: operations touching the same buffer run in
// submission order, operations on disjoint buffers run concurrently on
// a bounded worker pool. GPU support is wired in by default and
// initialized lazily on the first GPU allocation; when no usable
// adapter exists, GPU allocations fail with ndarray.ErrAllocation.
package engine

import (
	"github.com/informatrix/ndarray/internal/device"
	"github.com/informatrix/ndarray/internal/device/webgpu"
	"github.com/informatrix/ndarray/internal/engine"
)

// Engine is the in-process execution engine.
type Engine = engine.Engine

// Option configures an engine.
type Option = engine.Option

// Configuration options.
var (
	// WithWorkers bounds the number of concurrently executing
	// operations. Defaults to GOMAXPROCS (NDARRAY_WORKERS).
	WithWorkers = engine.WithWorkers

	// WithSeed seeds the sampling source. Defaults to 1 (NDARRAY_SEED).
	WithSeed = engine.WithSeed

	// WithLogger sets the structured logger for scheduling events.
	WithLogger = engine.WithLogger

	// WithGPUFactory overrides the GPU device constructor.
	WithGPUFactory = engine.WithGPUFactory
)

// New creates an engine with WebGPU wired in as the GPU device.
func New(opts ...Option) *Engine {
	wired := append([]Option{
		WithGPUFactory(func() (device.Device, error) { return webgpu.New() }),
	}, opts...)
	return engine.New(wired...)
}

// GPUAvailable reports whether a WebGPU adapter can be initialized on
// this system.
func GPUAvailable() bool {
	return webgpu.IsAvailable()
}
