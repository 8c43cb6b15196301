package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataType(t *testing.T) {
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Float64.Size())
	assert.Equal(t, "float32", Float32.String())
	assert.Equal(t, "float64", Float64.String())
	assert.Equal(t, "unknown", DataType(42).String())
	assert.Equal(t, Float32, inferDataType(float32(0)))
	assert.Equal(t, Float64, inferDataType(float64(0)))
}

func TestShape(t *testing.T) {
	s := Shape{2, 3, 4, 5}
	assert.Equal(t, 4, s.Rank())
	assert.Equal(t, 120, s.NumElements())
	assert.Equal(t, []int{60, 20, 5, 1}, s.ComputeStrides())
	assert.Equal(t, 1, Shape{}.NumElements(), "scalar holds one element")
	assert.Empty(t, Shape{}.ComputeStrides())

	clone := s.Clone()
	clone[0] = 7
	assert.Equal(t, 2, s[0], "Clone must not alias")

	require.NoError(t, s.Validate())
	assert.Error(t, Shape{2, 0}.Validate())
	assert.Error(t, Shape{-1}.Validate())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Shape
		want      Shape
		broadcast bool
		wantErr   bool
	}{
		{"equal", Shape{2, 3, 4, 4}, Shape{2, 3, 4, 4}, Shape{2, 3, 4, 4}, false, false},
		{"depth over channels", Shape{2, 1, 4, 4}, Shape{2, 3, 4, 4}, Shape{2, 3, 4, 4}, true, false},
		{"scalar", Shape{}, Shape{2, 3, 4, 4}, Shape{2, 3, 4, 4}, true, false},
		{"per-channel light", Shape{3, 1, 1}, Shape{2, 3, 4, 4}, Shape{2, 3, 4, 4}, true, false},
		{"both sides", Shape{2, 1}, Shape{1, 5}, Shape{2, 5}, true, false},
		{"mismatch", Shape{2, 3, 4, 4}, Shape{2, 3, 4, 5}, nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}

func TestBroadcastsTo(t *testing.T) {
	target := Shape{2, 3, 4, 4}
	assert.True(t, Shape{2, 1, 4, 4}.BroadcastsTo(target))
	assert.True(t, Shape{}.BroadcastsTo(target))
	assert.False(t, Shape{2, 3, 4, 5}.BroadcastsTo(target))
	assert.False(t, Shape{4, 3, 4, 4}.BroadcastsTo(target), "must not grow the target")
}

func TestParseDevice(t *testing.T) {
	for name, want := range map[string]Device{"": CPU, "cpu": CPU, " CPU ": CPU, "gpu": WebGPU, "webgpu": WebGPU} {
		got, err := ParseDevice(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseDevice("tpu")
	assert.Error(t, err)
	assert.Equal(t, "CPU", CPU.String())
	assert.Equal(t, "WebGPU", WebGPU.String())
}

func TestRawTensor(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	require.NoError(t, err)
	assert.Equal(t, 6, raw.NumElements())
	assert.Len(t, raw.Data(), 24)
	assert.Equal(t, []int{3, 1}, raw.Strides())

	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(i)
	}
	assert.InDelta(t, 5.0, raw.Float64At(5), 1e-9)
	assert.Panics(t, func() { raw.AsFloat64() })

	clone := raw.Clone()
	clone.AsFloat32()[0] = 100
	assert.Equal(t, float32(0), raw.AsFloat32()[0], "Clone must deep copy")

	view, err := raw.View(Shape{3, 2})
	require.NoError(t, err)
	view.AsFloat32()[1] = -1
	assert.Equal(t, float32(-1), raw.AsFloat32()[1], "View shares the buffer")

	_, err = raw.View(Shape{4, 2})
	assert.Error(t, err)
	_, err = NewRaw(Shape{0, 2}, Float64, CPU)
	assert.Error(t, err)
}

func TestScalarRaw(t *testing.T) {
	raw, err := NewRaw(Shape{}, Float64, CPU)
	require.NoError(t, err)
	raw.AsFloat64()[0] = 1.5
	assert.InDelta(t, 1.5, raw.Float64At(0), 0)
}
