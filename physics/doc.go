// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package physics provides forward operators for physics-based inverse imaging.
//
// # Overview
//
// A forward operator maps a latent physical state to an observation (A) and maps an
// observation back toward the state space (AAdjoint). This package provides:
//   - Haze: atmospheric scattering, y = t⊙image + (1-t)⊙light with t = exp(-beta⊙depth)
//   - MRI: single-coil Cartesian MRI with a k-space sampling mask
//
// Operators with random parameters implement Parameterized; their parameters are drawn
// by the generators in physics/generator.
//
// # Basic Usage
//
//	backend := cpu.New()
//	haze, err := physics.NewHaze(0.1)
//	if err != nil {
//	    return err
//	}
//	y, err := haze.A(physics.HazeState{
//	    Image: image,                          // (B, C, H, W)
//	    Depth: depth,                          // (B, 1, H, W)
//	    Light: physics.Scalar(0.9, backend),   // broadcast
//	})
//
// # Errors
//
// Every error wraps ErrConfig, ErrShapeMismatch or ErrInfeasible; use errors.Is.
//
// # Thread Safety
//
// A and AAdjoint are safe for concurrent use. Generators are not: use one per goroutine.
package physics
