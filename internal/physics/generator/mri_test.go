package generator

import (
	"slices"
	"testing"

	"github.com/born-ml/invphys/internal/backend/cpu"
	"github.com/born-ml/invphys/internal/physics"
	"github.com/born-ml/invphys/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowsOf returns the rows of batch element b, channel c that are entirely 1, and fails
// if any row is partially set.
func rowsOf(t *testing.T, mask *physics.Tensor, b, c int) []int {
	t.Helper()
	shape := mask.Shape()
	var rows []int
	for i := 0; i < shape[2]; i++ {
		ones := 0
		for j := 0; j < shape[3]; j++ {
			v := mask.At(b, c, i, j)
			require.True(t, v == 0 || v == 1, "value %v at (%d,%d,%d,%d)", v, b, c, i, j)
			if v == 1 {
				ones++
			}
		}
		require.True(t, ones == 0 || ones == shape[3], "row %d partially sampled", i)
		if ones > 0 {
			rows = append(rows, i)
		}
	}
	return rows
}

func TestAccelerationMaskShape16(t *testing.T) {
	g, err := NewAccelerationMask([]int{16, 16}, 4, WithSeed(1))
	require.NoError(t, err)

	params, err := g.Step(1)
	require.NoError(t, err)
	require.Len(t, params, 1)
	mask := params[physics.KeyMask]
	require.NotNil(t, mask)
	assert.Equal(t, tensor.Shape{1, 2, 16, 16}, mask.Shape())

	center, side := g.LineCounts()
	assert.Equal(t, 1, center) // int(0.08 * 16)
	assert.Equal(t, 2, side)   // int(0.17 * 16)

	rows := rowsOf(t, mask, 0, 0)
	assert.Contains(t, rows, 8)
	assert.Contains(t, rows, 9)
	assert.Equal(t, rows, rowsOf(t, mask, 0, 1), "channels are identical")
	assert.LessOrEqual(t, len(rows), 3, "band of 2 rows plus 1 random row")
}

func TestAccelerationMaskDensities(t *testing.T) {
	tests := []struct {
		acceleration int
		width        int
		center, side int
	}{
		{4, 16, 1, 2},
		{4, 100, 8, 17},
		{4, 320, 25, 54},
		{8, 100, 4, 8},
		{8, 320, 12, 27},
	}
	for _, tt := range tests {
		g, err := NewAccelerationMask([]int{tt.width, tt.width}, tt.acceleration, WithSeed(2))
		require.NoError(t, err)
		center, side := g.LineCounts()
		assert.Equal(t, tt.center, center, "x%d W=%d", tt.acceleration, tt.width)
		assert.Equal(t, tt.side, side, "x%d W=%d", tt.acceleration, tt.width)
	}
}

func TestAccelerationMaskCenterBand(t *testing.T) {
	for _, acceleration := range SupportedAccelerations() {
		g, err := NewAccelerationMask([]int{3, 64, 64}, acceleration, WithSeed(3))
		require.NoError(t, err)

		numCenter, _ := g.LineCounts()
		lo := 32 - numCenter/2
		hi := 32 + numCenter/2 + 1

		s, err := g.Sample(4)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{4, 3, 64, 64}, s.Mask.Shape())
		assert.Equal(t, lo, s.Center[0])
		assert.Equal(t, hi, s.Center[len(s.Center)-1])
		for b := 0; b < 4; b++ {
			for c := 0; c < 3; c++ {
				rows := rowsOf(t, s.Mask, b, c)
				assert.Equal(t, s.Lines[b], rows)
				for _, r := range s.Center {
					assert.Contains(t, rows, r, "x%d element %d channel %d", acceleration, b, c)
				}
			}
		}
	}
}

func TestAccelerationMaskRandomLinesPerElement(t *testing.T) {
	g, err := NewAccelerationMask([]int{128, 128}, 4, WithSeed(4))
	require.NoError(t, err)
	_, side := g.LineCounts()

	s, err := g.Sample(8)
	require.NoError(t, err)

	distinct := map[string]bool{}
	for b, lines := range s.Lines {
		assert.True(t, slices.IsSorted(lines))
		// band rows plus side/2 random rows, some of which may fall in the band
		assert.GreaterOrEqual(t, len(lines), len(s.Center))
		assert.LessOrEqual(t, len(lines), len(s.Center)+side/2, "element %d", b)
		distinct[fmtRows(lines)] = true
	}
	assert.Greater(t, len(distinct), 1, "batch elements draw independently")
}

func TestAccelerationMaskFreshDraws(t *testing.T) {
	g, err := NewAccelerationMask([]int{16, 16}, 4)
	require.NoError(t, err)

	first, err := g.Step(1)
	require.NoError(t, err)
	firstRows := rowsOf(t, first[physics.KeyMask], 0, 0)

	differs := false
	for trial := 0; trial < 50 && !differs; trial++ {
		next, err := g.Step(1)
		require.NoError(t, err)
		differs = !slices.Equal(firstRows, rowsOf(t, next[physics.KeyMask], 0, 0))
	}
	assert.True(t, differs, "random rows should change between calls")

	// Outputs never alias.
	again, err := g.Step(1)
	require.NoError(t, err)
	first[physics.KeyMask].Data()[0] = 42
	assert.NotEqual(t, float32(42), again[physics.KeyMask].Data()[0])
}

func TestAccelerationMaskSeededReproducible(t *testing.T) {
	a, err := NewAccelerationMask([]int{32, 32}, 8, WithSeed(99))
	require.NoError(t, err)
	b, err := NewAccelerationMask([]int{32, 32}, 8, WithRand(NewRand(99)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		sa, err := a.Sample(3)
		require.NoError(t, err)
		sb, err := b.Sample(3)
		require.NoError(t, err)
		assert.Equal(t, sa.Lines, sb.Lines)
		assert.Equal(t, sa.Mask.Data(), sb.Mask.Data())
	}
}

func TestAccelerationMaskBandLayout(t *testing.T) {
	// Default layout: 50 points spread over the band.
	g, err := NewAccelerationMask([]int{100, 100}, 4, WithSeed(5))
	require.NoError(t, err)
	s, err := g.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, []int{46, 47, 48, 49, 50, 51, 52, 53, 54, 55}, s.Center)

	// A single sample only keeps the lower band edge.
	single, err := NewAccelerationMask([]int{100, 100}, 4, WithSeed(5), WithBandSamples(1))
	require.NoError(t, err)
	s, err = single.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, []int{46}, s.Center)

	adaptive, err := NewAccelerationMask([]int{100, 100}, 4, WithSeed(5), WithAdaptiveBand())
	require.NoError(t, err)
	s, err = adaptive.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, []int{46, 47, 48, 49, 50, 51, 52, 53, 54, 55}, s.Center)
}

func TestAccelerationMaskConfigErrors(t *testing.T) {
	tests := []struct {
		name         string
		imgSize      []int
		acceleration int
		opts         []Option
		want         error
	}{
		{"rank 1", []int{16}, 4, nil, physics.ErrConfig},
		{"rank 4", []int{1, 2, 16, 16}, 4, nil, physics.ErrConfig},
		{"zero dim", []int{0, 16}, 4, nil, physics.ErrConfig},
		{"acceleration 2", []int{16, 16}, 2, nil, physics.ErrConfig},
		{"acceleration 6", []int{16, 16}, 6, nil, physics.ErrConfig},
		{"acceleration 0", []int{16, 16}, 0, nil, physics.ErrConfig},
		{"negative band samples", []int{16, 16}, 4, []Option{WithBandSamples(-3)}, physics.ErrConfig},
		{"gpu device on cpu backend", []int{16, 16}, 4, []Option{WithDevice(tensor.WebGPU)}, physics.ErrConfig},
		{"band outside rows", []int{2, 200}, 4, nil, physics.ErrInfeasible},
		{"too many random rows", []int{4, 400}, 4, nil, physics.ErrInfeasible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAccelerationMask(tt.imgSize, tt.acceleration, tt.opts...)
			assert.True(t, errors.Is(err, tt.want), "%v", err)
		})
	}

	g, err := NewAccelerationMask([]int{16, 16}, 8, WithBackend(cpu.New()))
	require.NoError(t, err)
	_, err = g.Step(0)
	assert.True(t, errors.Is(err, physics.ErrConfig), "%v", err)
}

func TestBaseAccessors(t *testing.T) {
	g, err := NewAccelerationMask([]int{16, 12}, 8, WithSeed(6))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 16, 12}, g.Shape())
	assert.Equal(t, tensor.CPU, g.Device())
	assert.Equal(t, 8, g.Acceleration())
	assert.Equal(t, []int{4, 8}, SupportedAccelerations())

	s := g.Shape()
	s[0] = 99
	assert.Equal(t, 2, g.Shape()[0])
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, linspace(0, 1, 3))
	assert.Equal(t, []float64{2}, linspace(2, 5, 1))
	got := linspace(46, 55, 50)
	assert.Len(t, got, 50)
	assert.Equal(t, 46.0, got[0])
	assert.Equal(t, 55.0, got[49])
}

func fmtRows(rows []int) string {
	b := make([]byte, 0, len(rows)*4)
	for _, r := range rows {
		b = append(b, byte(r), ',')
	}
	return string(b)
}
