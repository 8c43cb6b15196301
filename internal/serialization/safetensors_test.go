package serialization

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/invphys/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRaw32(t *testing.T, shape tensor.Shape, values ...float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), values)
	return raw
}

func rawHeader(t *testing.T, header string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.WriteString(header)
	buf.Write(data)
	return buf.Bytes()
}

func TestSafeTensorsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.safetensors")

	mask := newRaw32(t, tensor.Shape{1, 2, 2, 2}, 1, 1, 0, 0, 1, 1, 0, 0)
	light := newRaw32(t, tensor.Shape{}, 0.9)
	depth, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(depth.AsFloat64(), []float64{0.5, 1.5, 2.5})

	metadata := map[string]string{"generator": "mri,acceleration=4"}
	require.NoError(t, WriteSafeTensors(path, map[string]*tensor.RawTensor{
		"mask":  mask,
		"light": light,
		"depth": depth,
	}, metadata))

	got, gotMeta, err := ReadSafeTensors(path)
	require.NoError(t, err)
	assert.Equal(t, metadata, gotMeta)
	require.Len(t, got, 3)

	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, got["mask"].Shape())
	assert.Equal(t, mask.AsFloat32(), got["mask"].AsFloat32())
	assert.Equal(t, tensor.Shape{}, got["light"].Shape())
	assert.Equal(t, []float32{0.9}, got["light"].AsFloat32())
	assert.Equal(t, tensor.Float64, got["depth"].DType())
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, got["depth"].AsFloat64())
}

func TestEncodeSafeTensorsOrdersByName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSafeTensors(&buf, map[string]*tensor.RawTensor{
		"b": newRaw32(t, tensor.Shape{1}, 2),
		"a": newRaw32(t, tensor.Shape{2}, 1, 1),
	}, nil))

	data := buf.Bytes()
	headerSize := binary.LittleEndian.Uint64(data[:8])
	header := string(data[8 : 8+headerSize])
	assert.Contains(t, header, `"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}`)
	assert.Contains(t, header, `"b":{"dtype":"F32","shape":[1],"data_offsets":[8,12]}`)
	assert.NotContains(t, header, metadataKey)
	assert.Len(t, data, 8+int(headerSize)+12)
}

func TestEncodeSafeTensorsRejectsReservedName(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeSafeTensors(&buf, map[string]*tensor.RawTensor{
		metadataKey: newRaw32(t, tensor.Shape{1}, 0),
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidTensorName)
}

func TestDecodeSafeTensorsErrors(t *testing.T) {
	four := make([]byte, 4)
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{
			name:    "unsupported dtype",
			input:   rawHeader(t, `{"x":{"dtype":"I32","shape":[1],"data_offsets":[0,4]}}`, four),
			wantErr: ErrUnsupportedDType,
		},
		{
			name:    "gap between tensors",
			input:   rawHeader(t, `{"x":{"dtype":"F32","shape":[1],"data_offsets":[4,8]}}`, append(four, four...)),
			wantErr: ErrOffsetOverlap,
		},
		{
			name:    "shape does not match offsets",
			input:   rawHeader(t, `{"x":{"dtype":"F32","shape":[2],"data_offsets":[0,4]}}`, four),
			wantErr: ErrOutOfBounds,
		},
		{
			name:    "huge shape",
			input:   rawHeader(t, `{"x":{"dtype":"F32","shape":[4611686018427387904,4],"data_offsets":[0,4]}}`, four),
			wantErr: ErrOutOfBounds,
		},
		{
			name:    "declared data beyond limit",
			input:   rawHeader(t, `{"x":{"dtype":"F32","shape":[1000000000],"data_offsets":[0,4000000000]}}`, four),
			wantErr: ErrOutOfBounds,
		},
		{
			name:    "truncated data",
			input:   rawHeader(t, `{"x":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`, four),
			wantErr: ErrOutOfBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeSafeTensors(bytes.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("header too large", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(MaxHeaderSize+1)))
		_, _, err := DecodeSafeTensors(&buf)
		assert.ErrorIs(t, err, ErrHeaderTooLarge)
	})
}

func TestReadSafeTensorsBoundsDataByFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.safetensors")
	// Declares 4000 bytes of data but the file holds only 4.
	input := rawHeader(t, `{"x":{"dtype":"F32","shape":[1000],"data_offsets":[0,4000]}}`, make([]byte, 4))
	require.NoError(t, os.WriteFile(path, input, 0o600))

	_, _, err := ReadSafeTensors(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Contains(t, err.Error(), "data limit")
}
