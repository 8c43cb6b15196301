// Package physics defines the forward-operator contract used by reconstruction code and
// the concrete degradation models that implement it.
//
// A forward operator maps a latent physical state X to an observation Y (A), and maps an
// observation back toward the state space (AAdjoint). Depending on the model AAdjoint is
// either the exact adjoint under the real inner product (MRI) or a heuristic
// initializer for iterative solvers (Haze).
package physics

import (
	"github.com/born-ml/invphys/internal/tensor"
	"github.com/pkg/errors"
)

// Tensor is the tensor type exchanged by operators and generators: float32 elements on
// any backend.
type Tensor = tensor.Tensor[float32, tensor.Backend]

// Error kinds. Every error returned by this package and by generators wraps one of these,
// so callers can branch with errors.Is.
var (
	ErrConfig        = errors.New("invalid configuration")
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrInfeasible    = errors.New("sampling infeasible")
)

// Forward is the contract every degradation operator satisfies.
type Forward[X, Y any] interface {
	// A simulates the observation of state x.
	A(x X) (Y, error)

	// AAdjoint maps an observation back to a state-shaped value.
	AAdjoint(y Y) (X, error)
}

// Params are physics parameters keyed by name, as produced by a generator step.
type Params map[string]*Tensor

// KeyMask is the Params key holding a sampling mask.
const KeyMask = "mask"

// Parameterized is implemented by operators whose parameters are refreshed from a
// generator between calls.
type Parameterized interface {
	UpdateParameters(params Params) error
}

// FromSlice copies data into a float32 tensor of the given shape on backend b.
func FromSlice(data []float32, shape tensor.Shape, b tensor.Backend) (*Tensor, error) {
	t, err := tensor.FromSlice[float32, tensor.Backend](data, shape, b)
	if err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "%v", err)
	}
	return t, nil
}

// Full returns a float32 tensor of the given shape filled with value.
func Full(shape tensor.Shape, value float32, b tensor.Backend) *Tensor {
	return tensor.Full[float32, tensor.Backend](shape, value, b)
}

// Scalar returns a 0-D float32 tensor, broadcastable against any shape.
func Scalar(value float32, b tensor.Backend) *Tensor {
	return tensor.Scalar[float32, tensor.Backend](value, b)
}

func checkRank(name string, t *Tensor, rank int) error {
	if t == nil {
		return errors.Wrapf(ErrShapeMismatch, "%s is missing", name)
	}
	if t.Shape().Rank() != rank {
		return errors.Wrapf(ErrShapeMismatch, "%s must have rank %d, got shape %v", name, rank, t.Shape())
	}
	return nil
}

func checkBroadcast(name string, t *Tensor, target tensor.Shape) error {
	if t == nil {
		return errors.Wrapf(ErrShapeMismatch, "%s is missing", name)
	}
	if !t.Shape().BroadcastsTo(target) {
		return errors.Wrapf(ErrShapeMismatch, "%s shape %v does not broadcast to %v", name, t.Shape(), target)
	}
	return nil
}
