// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package generator draws random physics parameters, such as MRI sampling masks,
// for the operators in package physics.
//
// Example:
//
//	gen, err := generator.NewAccelerationMask([]int{320, 320}, 4, generator.WithSeed(7))
//	if err != nil {
//	    return err
//	}
//	params, err := gen.Step(8)        // params[physics.KeyMask] has shape (8, 2, 320, 320)
//	err = mri.UpdateParameters(params)
package generator

import (
	"math/rand/v2"

	"github.com/born-ml/invphys/internal/physics/generator"
	"github.com/born-ml/invphys/tensor"
)

// Generator is the contract every physics-parameter generator satisfies.
type Generator = generator.Generator

// Option configures a generator at construction.
type Option = generator.Option

// AccelerationMask draws Cartesian MRI undersampling masks.
type AccelerationMask = generator.AccelerationMask

// MaskSample is the result of one AccelerationMask draw, with the retained rows.
type MaskSample = generator.MaskSample

// DefaultBandSamples is the number of evenly spaced samples laid over the center band.
const DefaultBandSamples = generator.DefaultBandSamples

// New builds a generator from a keyword configuration such as "mri,acceleration=8".
func New(config string, imgSize []int, opts ...Option) (Generator, error) {
	return generator.New(config, imgSize, opts...)
}

// NewAccelerationMask returns a mask generator for images of size (H, W) or (C, H, W).
func NewAccelerationMask(imgSize []int, acceleration int, opts ...Option) (*AccelerationMask, error) {
	return generator.NewAccelerationMask(imgSize, acceleration, opts...)
}

// SupportedAccelerations lists the acceleration factors NewAccelerationMask accepts.
func SupportedAccelerations() []int {
	return generator.SupportedAccelerations()
}

// WithSeed makes a generator reproducible.
func WithSeed(seed uint64) Option {
	return generator.WithSeed(seed)
}

// WithRand makes a generator draw from r.
func WithRand(r *rand.Rand) Option {
	return generator.WithRand(r)
}

// WithDevice selects the execution device.
func WithDevice(d tensor.Device) Option {
	return generator.WithDevice(d)
}

// WithBackend selects the backend that allocates generated tensors.
func WithBackend(b tensor.Backend) Option {
	return generator.WithBackend(b)
}

// WithBandSamples sets the number of evenly spaced center-band samples.
func WithBandSamples(n int) Option {
	return generator.WithBandSamples(n)
}

// WithAdaptiveBand samples every row of the center band exactly once.
func WithAdaptiveBand() Option {
	return generator.WithAdaptiveBand()
}
