package generator

import (
	"github.com/born-ml/invphys/internal/parameters"
	"github.com/born-ml/invphys/internal/physics"
	"github.com/born-ml/invphys/internal/tensor"
	"github.com/pkg/errors"
)

// New builds a generator from a keyword configuration string. The first entry names the
// generator; the rest are its parameters. Options passed explicitly are applied before
// the ones derived from config, so config values win.
//
// Supported:
//
//	mri,acceleration=4,band_samples=50,adaptive_band,seed=7,device=cpu
func New(config string, imgSize []int, opts ...Option) (Generator, error) {
	params := parameters.NewFromConfigString(config)
	switch {
	case hasKey(params, "mri"), hasKey(params, "acceleration_mask"):
		delete(params, "mri")
		delete(params, "acceleration_mask")
		return newAccelerationMaskFromParams(params, imgSize, opts)
	default:
		return nil, errors.Wrapf(physics.ErrConfig, "generator config %q names no known generator (want mri)", config)
	}
}

func newAccelerationMaskFromParams(params parameters.Params, imgSize []int, opts []Option) (*AccelerationMask, error) {
	acceleration, err := parameters.PopParamOr(params, "acceleration", 4)
	if err != nil {
		return nil, errors.Wrapf(physics.ErrConfig, "mri generator: %v", err)
	}
	bandSamples, err := parameters.PopParamOr(params, "band_samples", 0)
	if err != nil {
		return nil, errors.Wrapf(physics.ErrConfig, "mri generator: %v", err)
	}
	if bandSamples != 0 {
		opts = append(opts, WithBandSamples(bandSamples))
	}
	adaptive, err := parameters.PopParamOr(params, "adaptive_band", false)
	if err != nil {
		return nil, errors.Wrapf(physics.ErrConfig, "mri generator: %v", err)
	}
	if adaptive {
		opts = append(opts, WithAdaptiveBand())
	}
	if hasKey(params, "seed") {
		seed, err := parameters.PopParamOr(params, "seed", uint64(0))
		if err != nil {
			return nil, errors.Wrapf(physics.ErrConfig, "mri generator: %v", err)
		}
		opts = append(opts, WithSeed(seed))
	}
	if hasKey(params, "device") {
		name, _ := parameters.PopParamOr(params, "device", "cpu")
		device, err := tensor.ParseDevice(name)
		if err != nil {
			return nil, errors.Wrapf(physics.ErrConfig, "mri generator: %v", err)
		}
		opts = append(opts, WithDevice(device))
	}
	if len(params) > 0 {
		return nil, errors.Wrapf(physics.ErrConfig, "mri generator: unknown parameters %v", params.Keys())
	}
	return NewAccelerationMask(imgSize, acceleration, opts...)
}

func hasKey(params parameters.Params, key string) bool {
	_, ok := params[key]
	return ok
}
