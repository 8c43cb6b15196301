// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package physics

import (
	"github.com/born-ml/invphys/internal/physics"
	"github.com/born-ml/invphys/tensor"
)

// Tensor is the float32 tensor exchanged by operators and generators.
type Tensor = physics.Tensor

// Forward is the contract every degradation operator satisfies.
type Forward[X, Y any] = physics.Forward[X, Y]

// Params are physics parameters keyed by name, as produced by a generator step.
type Params = physics.Params

// Parameterized is implemented by operators whose parameters come from a generator.
type Parameterized = physics.Parameterized

// KeyMask is the Params key holding a sampling mask.
const KeyMask = physics.KeyMask

// Error kinds.
var (
	ErrConfig        = physics.ErrConfig
	ErrShapeMismatch = physics.ErrShapeMismatch
	ErrInfeasible    = physics.ErrInfeasible
)

// Haze is the atmospheric scattering operator.
type Haze = physics.Haze

// HazeState is the latent state of the Haze operator.
type HazeState = physics.HazeState

// DefaultBeta is the scattering coefficient used when none is configured.
const DefaultBeta = physics.DefaultBeta

// NewHaze returns a Haze operator with scattering coefficient beta >= 0.
func NewHaze(beta float64) (*Haze, error) {
	return physics.NewHaze(beta)
}

// NewHazeFromConfig builds a Haze operator from a keyword configuration such as
// "haze,beta=0.2".
func NewHazeFromConfig(config string) (*Haze, error) {
	return physics.NewHazeFromConfig(config)
}

// MRI is the single-coil Cartesian MRI operator.
type MRI = physics.MRI

// NewMRI returns an MRI operator sampling with mask. A nil mask means full sampling.
func NewMRI(mask *Tensor) (*MRI, error) {
	return physics.NewMRI(mask)
}

// FromSlice copies data into a float32 tensor of the given shape on backend b.
func FromSlice(data []float32, shape tensor.Shape, b tensor.Backend) (*Tensor, error) {
	return physics.FromSlice(data, shape, b)
}

// Full returns a float32 tensor of the given shape filled with value.
func Full(shape tensor.Shape, value float32, b tensor.Backend) *Tensor {
	return physics.Full(shape, value, b)
}

// Scalar returns a 0-D float32 tensor, broadcastable against any shape.
func Scalar(value float32, b tensor.Backend) *Tensor {
	return physics.Scalar(value, b)
}
