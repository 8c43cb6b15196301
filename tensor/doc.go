// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense tensors exchanged by invphys operators and generators.
//
// # Overview
//
// This package provides:
//   - Generic type-safe tensors (Tensor[T, B]) over float32 and float64
//   - NumPy-style broadcasting for element-wise operations
//   - A Backend interface; backend/cpu is the pure Go implementation
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/invphys/backend/cpu"
//	    "github.com/born-ml/invphys/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    depth := tensor.Full[float32](tensor.Shape{1, 1, 4, 4}, 2, backend)
//	    t := depth.MulScalar(-0.1).Exp()  // transmission map
//	}
//
// # Broadcasting
//
// Tensor operations follow NumPy broadcasting rules:
//
//	a := tensor.Zeros[float32](tensor.Shape{3, 1}, backend)     // (3, 1)
//	b := tensor.Ones[float32](tensor.Shape{3, 4}, backend)      // (3, 4)
//	c := a.Add(b)                                                // (3, 4)
//
// Incompatible shapes panic. Code that accepts shapes from callers checks them with
// BroadcastShapes or Shape.BroadcastsTo first.
//
// # Memory
//
// Every operation returns a fresh tensor except Reshape and Unsqueeze, which return views
// sharing the input's buffer.
package tensor
