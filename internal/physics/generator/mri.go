package generator

import (
	"slices"

	"github.com/born-ml/invphys/internal/physics"
	"github.com/born-ml/invphys/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultBandSamples is the number of evenly spaced points used to lay out the
// low-frequency band, independent of the band width.
const DefaultBandSamples = 50

// DefaultChannels is the channel count implied by a 2-element image size (real and
// imaginary parts).
const DefaultChannels = 2

// density is the sampling policy of one acceleration factor, as fractions of the image
// width: central is the deterministic low-frequency share, total the overall share.
type density struct {
	central, total float64
}

// densities lists the supported acceleration factors.
var densities = map[int]density{
	4: {central: 0.08, total: 0.25},
	8: {central: 0.04, total: 0.125},
}

// SupportedAccelerations returns the acceleration factors NewAccelerationMask accepts.
func SupportedAccelerations() []int {
	keys := make([]int, 0, len(densities))
	for k := range densities {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// AccelerationMask generates Cartesian MRI undersampling masks: a fixed band of
// low-frequency lines around the k-space center plus lines drawn uniformly at random,
// independently for every batch element.
type AccelerationMask struct {
	Base

	c, h, w      int
	acceleration int
	numCenter    int
	numSide      int
	bandSamples  int
	adaptive     bool
}

var _ Generator = (*AccelerationMask)(nil)

// MaskSample is the result of one AccelerationMask draw.
type MaskSample struct {
	// Mask has shape (B, C, H, W) with values in {0, 1}, identical across channels.
	Mask *physics.Tensor

	// Center lists the rows of the deterministic band, shared by all batch elements.
	Center []int

	// Lines lists, per batch element, all sampled rows (band and random), sorted.
	Lines [][]int
}

// NewAccelerationMask returns a mask generator for images of size (H, W), which implies
// DefaultChannels channels, or (C, H, W). The acceleration factor must be one of
// SupportedAccelerations.
func NewAccelerationMask(imgSize []int, acceleration int, opts ...Option) (*AccelerationMask, error) {
	var c, h, w int
	switch len(imgSize) {
	case 2:
		c, h, w = DefaultChannels, imgSize[0], imgSize[1]
	case 3:
		c, h, w = imgSize[0], imgSize[1], imgSize[2]
	default:
		return nil, errors.Wrapf(physics.ErrConfig, "img_size must be (C, H, W) or (H, W), got %v", imgSize)
	}
	if c <= 0 || h <= 0 || w <= 0 {
		return nil, errors.Wrapf(physics.ErrConfig, "img_size dimensions must be positive, got %v", imgSize)
	}
	d, ok := densities[acceleration]
	if !ok {
		return nil, errors.Wrapf(physics.ErrConfig, "acceleration %d not supported (want one of %v)",
			acceleration, SupportedAccelerations())
	}

	base, o, err := newBase([]int{c, h, w}, opts)
	if err != nil {
		return nil, err
	}

	g := &AccelerationMask{
		Base:         base,
		c:            c,
		h:            h,
		w:            w,
		acceleration: acceleration,
		numCenter:    int(d.central * float64(w)),
		numSide:      int((d.total - d.central) * float64(w)),
		bandSamples:  DefaultBandSamples,
		adaptive:     o.adaptive,
	}
	if o.bandSamples != 0 {
		g.bandSamples = o.bandSamples
	}
	if g.adaptive {
		g.bandSamples = g.numCenter/2*2 + 2
	}
	if g.bandSamples < 1 {
		return nil, errors.Wrapf(physics.ErrConfig, "band samples must be >= 1, got %d", g.bandSamples)
	}
	if g.numSide/2 > h {
		return nil, errors.Wrapf(physics.ErrInfeasible, "cannot draw %d distinct rows out of %d", g.numSide/2, h)
	}
	if _, err := g.centerRows(); err != nil {
		return nil, err
	}
	return g, nil
}

// WithBandSamples sets how many evenly spaced points lay out the low-frequency band.
func WithBandSamples(n int) Option {
	return func(o *options) { o.bandSamples = n }
}

// WithAdaptiveBand sizes the band layout to the band width, so every row between the
// band limits is retained exactly once. It overrides WithBandSamples.
func WithAdaptiveBand() Option {
	return func(o *options) { o.adaptive = true }
}

// Acceleration returns the configured acceleration factor.
func (g *AccelerationMask) Acceleration() int {
	return g.acceleration
}

// LineCounts returns the number of low-frequency lines and of side lines derived from
// the image width; half of the side lines are drawn at random per batch element.
func (g *AccelerationMask) LineCounts() (center, side int) {
	return g.numCenter, g.numSide
}

// Step draws batchSize masks and returns them under physics.KeyMask.
func (g *AccelerationMask) Step(batchSize int) (physics.Params, error) {
	s, err := g.Sample(batchSize)
	if err != nil {
		return nil, err
	}
	return physics.Params{physics.KeyMask: s.Mask}, nil
}

// Sample draws batchSize masks and also reports which rows were retained.
func (g *AccelerationMask) Sample(batchSize int) (*MaskSample, error) {
	if batchSize < 1 {
		return nil, errors.Wrapf(physics.ErrConfig, "batch size must be >= 1, got %d", batchSize)
	}
	center, err := g.centerRows()
	if err != nil {
		return nil, err
	}
	numRandom := g.numSide / 2
	klog.V(2).Infof("acceleration mask: batch=%d size=(%d,%d,%d) x%d center=%d band=%v random=%d",
		batchSize, g.c, g.h, g.w, g.acceleration, g.numCenter, center, numRandom)

	rows := tensor.Zeros[float32, tensor.Backend](tensor.Shape{batchSize, g.h, g.w}, g.backend)
	data := rows.Data()
	plane := g.h * g.w
	lines := make([][]int, batchSize)
	perm := make([]int, g.h)

	for b := 0; b < batchSize; b++ {
		selected := make(map[int]struct{}, len(center)+numRandom)
		for _, r := range center {
			selected[r] = struct{}{}
		}
		for _, r := range g.drawRows(perm, numRandom) {
			selected[r] = struct{}{}
		}

		element := data[b*plane : (b+1)*plane]
		lines[b] = make([]int, 0, len(selected))
		for r := range selected {
			lines[b] = append(lines[b], r)
			fillRow(element[r*g.w:(r+1)*g.w])
		}
		slices.Sort(lines[b])
	}

	mask := rows.Unsqueeze(1).Expand(tensor.Shape{batchSize, g.c, g.h, g.w})
	return &MaskSample{Mask: mask, Center: center, Lines: lines}, nil
}

// centerRows lays out bandSamples evenly spaced points from H/2 - n/2 to H/2 + n/2 + 1
// (n = numCenter, both ends included) and truncates them to row indices.
func (g *AccelerationMask) centerRows() ([]int, error) {
	start := float64(g.h/2 - g.numCenter/2)
	end := float64(g.h/2 + g.numCenter/2 + 1)
	rows := make([]int, 0, g.bandSamples)
	for _, v := range linspace(start, end, g.bandSamples) {
		r := int(v)
		if r < 0 || r >= g.h {
			return nil, errors.Wrapf(physics.ErrInfeasible,
				"low-frequency band [%g, %g] falls outside %d rows", start, end, g.h)
		}
		if n := len(rows); n == 0 || rows[n-1] != r {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// drawRows returns k distinct rows drawn uniformly from [0, H) by a partial
// Fisher-Yates shuffle of perm.
func (g *AccelerationMask) drawRows(perm []int, k int) []int {
	for i := range perm {
		perm[i] = i
	}
	n := len(perm)
	for i := 0; i < k; i++ {
		j := i + g.rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:k]
}

// linspace returns n evenly spaced values from start to end inclusive, computed from
// both ends so that the endpoints are exact.
func linspace(start, end float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (end - start) / float64(n-1)
	half := n / 2
	for i := 0; i < n; i++ {
		if i < half {
			out[i] = start + float64(i)*step
		} else {
			out[i] = end - float64(n-1-i)*step
		}
	}
	return out
}

func fillRow(row []float32) {
	for i := range row {
		row[i] = 1
	}
}
