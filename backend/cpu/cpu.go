// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/invphys/internal/backend/cpu"
	"github.com/born-ml/invphys/internal/parallel"
	"github.com/born-ml/invphys/tensor"
)

// Backend represents the CPU backend implementation.
//
// CPU backend provides pure Go implementations of the tensor operations used by
// forward operators and generators. Large element-wise loops are split across
// goroutines.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend using all available cores.
//
// Example:
//
//	import (
//	    "github.com/born-ml/invphys/backend/cpu"
//	    "github.com/born-ml/invphys/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that runs every operation on the calling
// goroutine. Useful when the caller already parallelizes across batches.
func NewSequential() *Backend {
	return internalcpu.NewWithConfig(parallel.Sequential())
}

// NewWithWorkers creates a CPU backend that uses at most n goroutines per operation.
func NewWithWorkers(n int) *Backend {
	return internalcpu.NewWithConfig(parallel.DefaultConfig().WithWorkers(n))
}
