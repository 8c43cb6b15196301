// Package generator produces random physics parameters (such as MRI sampling masks)
// that parameterize forward operators at run time.
package generator

import (
	"math/rand/v2"

	"github.com/born-ml/invphys/internal/backend/cpu"
	"github.com/born-ml/invphys/internal/physics"
	"github.com/born-ml/invphys/internal/tensor"
	"github.com/pkg/errors"
)

// Generator is the contract every physics-parameter generator satisfies.
//
// Each Step returns freshly allocated tensors that do not alias earlier results.
// A Generator owns its random source and is not safe for concurrent Step calls; use
// one instance (with its own seed) per goroutine.
type Generator interface {
	Step(batchSize int) (physics.Params, error)
}

// Base holds the configuration shared by all generators: the per-sample shape, the
// execution device and the random source.
type Base struct {
	shape   []int
	device  tensor.Device
	backend tensor.Backend
	rng     *rand.Rand
}

// Option configures a generator at construction.
type Option func(*options)

type options struct {
	device      tensor.Device
	backend     tensor.Backend
	rng         *rand.Rand
	bandSamples int
	adaptive    bool
}

// WithDevice selects the execution device. It must match the backend's device.
func WithDevice(d tensor.Device) Option {
	return func(o *options) { o.device = d }
}

// WithBackend selects the backend that allocates generated tensors. Defaults to CPU.
func WithBackend(b tensor.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithRand makes the generator draw from r. The generator takes ownership of r.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithSeed makes the generator reproducible: two generators built with the same seed
// and configuration produce identical sequences of Steps.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.rng = NewRand(seed) }
}

// NewRand returns the PCG-backed source used for seeded generators.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // sampling, not crypto
}

func newBase(shape []int, opts []Option) (Base, options, error) {
	o := options{device: tensor.CPU}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = cpu.New()
	}
	if o.backend.Device() != o.device {
		return Base{}, o, errors.Wrapf(physics.ErrConfig, "device %s requested but backend %s runs on %s",
			o.device, o.backend.Name(), o.backend.Device())
	}
	if o.rng == nil {
		// Seeded once from the runtime source; never shared afterwards.
		o.rng = NewRand(rand.Uint64()) //nolint:gosec // sampling, not crypto
	}
	return Base{
		shape:   append([]int(nil), shape...),
		device:  o.device,
		backend: o.backend,
		rng:     o.rng,
	}, o, nil
}

// Shape returns the configured per-sample shape.
func (b *Base) Shape() []int {
	return append([]int(nil), b.shape...)
}

// Device returns the execution device.
func (b *Base) Device() tensor.Device {
	return b.device
}
