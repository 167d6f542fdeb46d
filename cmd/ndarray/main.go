// Package main provides the ndarray CLI.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/informatrix/ndarray/engine"
	"github.com/informatrix/ndarray/ndarray"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("ndarray %s\n", version)
	case "bench":
		if err := bench(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "bench: %v\n", err)
			os.Exit(1)
		}
	case "gpu":
		if engine.GPUAvailable() {
			fmt.Println("WebGPU adapter: available")
		} else {
			fmt.Println("WebGPU adapter: not available")
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("ndarray - device-aware arrays over an async engine")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  bench      Run an elementwise throughput benchmark")
	fmt.Println("  gpu        Probe WebGPU availability")
}

// bench measures elementwise throughput around a WaitAll barrier, so
// the timing covers execution rather than submission.
func bench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	size := fs.Int("size", 1<<20, "elements per array")
	iterations := fs.Int("iterations", 100, "number of chained operations")
	gpu := fs.Bool("gpu", false, "place arrays on the GPU")
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng := engine.New()
	defer eng.Close()

	ctx := ndarray.CPUContext()
	if *gpu {
		ctx = ndarray.GPUContext(0)
	}

	a, err := ndarray.New(eng, ndarray.Shape{*size}, ctx)
	if err != nil {
		return err
	}
	defer a.Release()
	b, err := ndarray.New(eng, ndarray.Shape{*size}, ctx)
	if err != nil {
		return err
	}
	defer b.Release()

	if err := a.SetScalar(1.5); err != nil {
		return err
	}
	if err := b.SetScalar(0.5); err != nil {
		return err
	}
	if err := ndarray.WaitAll(eng); err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < *iterations; i++ {
		if _, err := a.AddInPlace(b); err != nil {
			return err
		}
	}
	if err := ndarray.WaitAll(eng); err != nil {
		return err
	}
	elapsed := time.Since(start)

	ops := float64(*size) * float64(*iterations)
	fmt.Printf("device:     %s\n", ctx)
	fmt.Printf("elements:   %d x %d iterations\n", *size, *iterations)
	fmt.Printf("elapsed:    %s\n", elapsed)
	fmt.Printf("throughput: %.1f Melem/s\n", ops/elapsed.Seconds()/1e6)
	return nil
}
