package physics

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/invphys/internal/backend/cpu"
	"github.com/born-ml/invphys/internal/tensor"
	"github.com/stretchr/testify/require"
)

var testBackend tensor.Backend = cpu.New()

// randomTensor returns a tensor with values uniform in [lo, hi).
func randomTensor(t *testing.T, rng *rand.Rand, shape tensor.Shape, lo, hi float32) *Tensor {
	t.Helper()
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = lo + (hi-lo)*rng.Float32()
	}
	x, err := FromSlice(data, shape, testBackend)
	require.NoError(t, err)
	return x
}

func dot(a, b *Tensor) float64 {
	var sum float64
	ad, bd := a.Data(), b.Data()
	for i := range ad {
		sum += float64(ad[i]) * float64(bd[i])
	}
	return sum
}

func norm(a *Tensor) float64 {
	return math.Sqrt(dot(a, a))
}
