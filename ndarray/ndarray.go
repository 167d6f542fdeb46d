// Copyright 2026 The ndarray Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ndarray provides the public API for device-aware
// multi-dimensional arrays over an asynchronous execution engine.
//
// An NDArray is a reference-counted handle to an engine-owned buffer.
// Arithmetic, fills, copies and sampling are submitted to the engine
// and execute asynchronously; WaitToRead / WaitToWrite are the
// synchronization barriers that make results observable.
//
// Example:
//
//	eng := engine.New()
//	defer eng.Close()
//
//	a, _ := ndarray.FromValues(eng, []float32{1, 2, 3, 4})
//	defer a.Release()
//	b, _ := ndarray.FromValues(eng, []float32{1, 2, 3, 4})
//	defer b.Release()
//
//	c, _ := a.Add(b)
//	defer c.Release()
//	c.WaitToRead() // c is now [2 4 6 8]
package ndarray

import (
	"github.com/informatrix/ndarray/internal/ndarray"
)

// NDArray is a reference-counted handle to one engine-owned buffer.
type NDArray = ndarray.NDArray

// Shape represents the logical dimensions of an array.
type Shape = ndarray.Shape

// Context describes the physical placement of an array.
type Context = ndarray.Context

// DeviceType identifies the kind of device an array is placed on.
type DeviceType = ndarray.DeviceType

// Device constants.
const (
	CPU       DeviceType = ndarray.CPU
	GPU       DeviceType = ndarray.GPU
	CPUPinned DeviceType = ndarray.CPUPinned
)

// DataType represents the physical element type of an array's storage.
type DataType = ndarray.DataType

// Data type constants.
const (
	Float32 DataType = ndarray.Float32
	Float16 DataType = ndarray.Float16
)

// Engine is the boundary to the execution substrate.
type Engine = ndarray.Engine

// BufferHandle is an opaque token for one engine-owned buffer.
type BufferHandle = ndarray.BufferHandle

// NilBuffer is the handle of the "none" state.
const NilBuffer BufferHandle = ndarray.NilBuffer

// Option configures array construction.
type Option = ndarray.Option

// Sentinel errors. Match with errors.Is.
var (
	ErrAllocation    = ndarray.ErrAllocation
	ErrShapeMismatch = ndarray.ErrShapeMismatch
	ErrSizeMismatch  = ndarray.ErrSizeMismatch
	ErrRange         = ndarray.ErrRange
	ErrEngine        = ndarray.ErrEngine
)

// Construction.
var (
	// New creates an array of the given shape on ctx.
	New = ndarray.New

	// FromSlice creates a CPU-resident array of the given shape and
	// copies data into it synchronously.
	FromSlice = ndarray.FromSlice

	// FromValues creates a rank-1 CPU-resident array from data.
	FromValues = ndarray.FromValues

	// FromHandle wraps an engine buffer handle the caller owns.
	FromHandle = ndarray.FromHandle
)

// Options.
var (
	// WithDType selects the storage precision (default Float32).
	WithDType = ndarray.WithDType

	// WithDeferredAlloc postpones storage reservation to first use.
	WithDeferredAlloc = ndarray.WithDeferredAlloc
)

// Contexts.
var (
	// NewContext creates a context for the given device kind and index.
	NewContext = ndarray.NewContext

	// CPUContext returns the context for host CPU device 0.
	CPUContext = ndarray.CPUContext

	// GPUContext returns the context for the GPU with the given index.
	GPUContext = ndarray.GPUContext

	// PinnedContext returns the context for page-locked host memory.
	PinnedContext = ndarray.PinnedContext
)

// Sampling and synchronization.
var (
	// SampleGaussian fills out with samples from N(mean, stddev).
	SampleGaussian = ndarray.SampleGaussian

	// SampleUniform fills out with samples from U[low, high).
	SampleUniform = ndarray.SampleUniform

	// WaitAll blocks until every pending operation of eng has completed.
	WaitAll = ndarray.WaitAll

	// BroadcastShapes resolves two shapes under NumPy-style rules.
	BroadcastShapes = ndarray.BroadcastShapes
)
