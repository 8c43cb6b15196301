package physics

import (
	"math"

	"github.com/born-ml/invphys/internal/parameters"
	"github.com/pkg/errors"
)

// DefaultBeta is the scattering coefficient used when none is configured.
const DefaultBeta = 0.1

// HazeState is the latent state of the atmospheric scattering model.
type HazeState struct {
	// Image is the clean scene radiance, shape (B, C, H, W).
	Image *Tensor

	// Depth is the non-negative scene depth, (B, 1, H, W) or anything broadcastable
	// to the image shape.
	Depth *Tensor

	// Light is the atmospheric light: a 0-D scalar or a tensor broadcastable to the
	// image shape.
	Light *Tensor
}

// Haze is the atmospheric scattering forward model
//
//	t = exp(-beta * depth)
//	y = t * image + (1 - t) * light
//
// Haze is immutable and safe for concurrent use.
type Haze struct {
	beta float64
}

var _ Forward[HazeState, *Tensor] = (*Haze)(nil)

// NewHaze returns a haze operator with scattering coefficient beta >= 0.
func NewHaze(beta float64) (*Haze, error) {
	if math.IsNaN(beta) || math.IsInf(beta, 0) || beta < 0 {
		return nil, errors.Wrapf(ErrConfig, "haze beta must be finite and >= 0, got %g", beta)
	}
	return &Haze{beta: beta}, nil
}

// NewHazeFromConfig parses a keyword configuration such as "beta=0.2".
// A leading "haze" name is accepted and ignored; unknown keys are rejected.
func NewHazeFromConfig(config string) (*Haze, error) {
	params := parameters.NewFromConfigString(config)
	delete(params, "haze")
	beta, err := parameters.PopParamOr(params, "beta", DefaultBeta)
	if err != nil {
		return nil, errors.Wrapf(ErrConfig, "haze: %v", err)
	}
	if len(params) > 0 {
		return nil, errors.Wrapf(ErrConfig, "haze: unknown parameters %v", params.Keys())
	}
	return NewHaze(beta)
}

// Beta returns the scattering coefficient.
func (h *Haze) Beta() float64 {
	return h.beta
}

// A returns the hazy observation of x, with the shape of x.Image.
// Values are not clamped: an invalid depth or light yields out-of-range output.
func (h *Haze) A(x HazeState) (*Tensor, error) {
	if err := checkRank("haze image", x.Image, 4); err != nil {
		return nil, err
	}
	target := x.Image.Shape()
	if err := checkBroadcast("haze depth", x.Depth, target); err != nil {
		return nil, err
	}
	if err := checkBroadcast("haze atmospheric light", x.Light, target); err != nil {
		return nil, err
	}

	t := x.Depth.MulScalar(-h.beta).Exp()
	oneMinusT := t.MulScalar(-1).AddScalar(1)
	return x.Image.Mul(t).Add(x.Light.Mul(oneMinusT)), nil
}

// AAdjoint returns a reconstruction seed for an observation y of shape (B, C, H, W):
// the observation itself as image, unit depth of shape (B, 1, H, W) and unit light.
// It is a heuristic initializer, not the transpose of A.
func (h *Haze) AAdjoint(y *Tensor) (HazeState, error) {
	if err := checkRank("haze observation", y, 4); err != nil {
		return HazeState{}, err
	}
	shape := y.Shape()
	b := y.Backend()
	return HazeState{
		Image: y,
		Depth: Full([]int{shape[0], 1, shape[2], shape[3]}, 1, b),
		Light: Scalar(1, b),
	}, nil
}
