package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"github.com/born-ml/invphys/internal/tensor"
	"github.com/pkg/errors"
)

// MaxHeaderSize bounds the JSON header accepted by ReadSafeTensors.
const MaxHeaderSize = 100 << 20

// MaxDataSize bounds the tensor data a stream may declare. ReadSafeTensors further
// bounds it by the file size.
const MaxDataSize = 1 << 30

const metadataKey = "__metadata__"

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// WriteSafeTensors writes tensors to the file at path, replacing it.
func WriteSafeTensors(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: export path comes from the user
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %q", path)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "close %q", path)
		}
	}()
	buf := bufio.NewWriter(file)
	if err := EncodeSafeTensors(buf, tensors, metadata); err != nil {
		return err
	}
	return errors.Wrapf(buf.Flush(), "write %q", path)
}

// EncodeSafeTensors writes tensors to w.
// Tensors are written in alphabetical order by name (SafeTensors requirement).
func EncodeSafeTensors(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if name == "" || name == metadataKey {
			return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "reserved or empty name"}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	var offset int64
	for _, name := range names {
		raw := tensors[name]
		dtype, err := dtypeToSafeTensors(raw.DType())
		if err != nil {
			return &ValidationError{Err: err, Tensor: name, Details: raw.DType().String()}
		}
		shape := make([]int64, len(raw.Shape()))
		for i, dim := range raw.Shape() {
			shape[i] = int64(dim)
		}
		size := int64(len(raw.Data()))
		header[name] = SafeTensorHeader{
			DType:       dtype,
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "write header size")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, name := range names {
		if _, err := w.Write(tensors[name].Data()); err != nil {
			return errors.Wrapf(err, "write tensor %s", name)
		}
	}
	return nil
}

// ReadSafeTensors reads every tensor of the file at path onto the CPU.
func ReadSafeTensors(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	//nolint:gosec // G304: import path comes from the user
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %q", path)
	}
	defer func() { _ = file.Close() }()
	info, err := file.Stat()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "stat %q", path)
	}
	return decode(bufio.NewReader(file), min(info.Size(), MaxDataSize))
}

// DecodeSafeTensors reads a SafeTensors stream. The header is validated before any
// tensor is allocated: offsets must tile the data section in order and match each
// tensor's shape and dtype.
// Declared data beyond MaxDataSize is rejected.
func DecodeSafeTensors(r io.Reader) (map[string]*tensor.RawTensor, map[string]string, error) {
	return decode(r, MaxDataSize)
}

// decode is DecodeSafeTensors with the data section limited to maxData bytes.
func decode(r io.Reader, maxData int64) (map[string]*tensor.RawTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, errors.Wrap(err, "read header size")
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, &ValidationError{Err: ErrHeaderTooLarge, Details: fmt.Sprintf("%d bytes", headerSize)}
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, errors.Wrap(err, "read header")
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &entries); err != nil {
		return nil, nil, errors.Wrap(err, "parse header")
	}
	var metadata map[string]string
	if raw, ok := entries[metadataKey]; ok {
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, nil, errors.Wrap(err, "parse metadata")
		}
		delete(entries, metadataKey)
	}

	headers := make(map[string]SafeTensorHeader, len(entries))
	names := make([]string, 0, len(entries))
	for name, raw := range entries {
		var h SafeTensorHeader
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, nil, errors.Wrapf(err, "parse header of tensor %q", name)
		}
		headers[name] = h
		names = append(names, name)
	}
	// Sort by start offset, then name, to check the data section is tiled without gaps.
	slices.SortFunc(names, func(a, b string) int {
		if d := headers[a].DataOffsets[0] - headers[b].DataOffsets[0]; d != 0 {
			if d < 0 {
				return -1
			}
			return 1
		}
		if a < b {
			return -1
		}
		return 1
	})

	tensors := make(map[string]*tensor.RawTensor, len(names))
	var offset int64
	for _, name := range names {
		h := headers[name]
		if h.DataOffsets[0] != offset {
			return nil, nil, &ValidationError{Err: ErrOffsetOverlap, Tensor: name,
				Details: fmt.Sprintf("starts at %d, expected %d", h.DataOffsets[0], offset)}
		}
		if h.DataOffsets[1] < h.DataOffsets[0] || h.DataOffsets[1] > maxData {
			return nil, nil, &ValidationError{Err: ErrOutOfBounds, Tensor: name,
				Details: fmt.Sprintf("offsets %v exceed the %d-byte data limit", h.DataOffsets, maxData)}
		}
		dtype, err := dtypeFromSafeTensors(h.DType)
		if err != nil {
			return nil, nil, &ValidationError{Err: err, Tensor: name, Details: h.DType}
		}
		span := h.DataOffsets[1] - h.DataOffsets[0]
		size := int64(dtype.Size())
		shape := make(tensor.Shape, len(h.Shape))
		for i, dim := range h.Shape {
			if dim <= 0 || size > span/dim {
				return nil, nil, &ValidationError{Err: ErrOutOfBounds, Tensor: name,
					Details: fmt.Sprintf("shape %v does not fit offsets %v", h.Shape, h.DataOffsets)}
			}
			size *= dim
			shape[i] = int(dim)
		}
		if size != span {
			return nil, nil, &ValidationError{Err: ErrOutOfBounds, Tensor: name,
				Details: fmt.Sprintf("offsets %v do not hold %v %s", h.DataOffsets, shape, dtype)}
		}
		raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
		if err != nil {
			return nil, nil, &ValidationError{Err: ErrOutOfBounds, Tensor: name, Details: err.Error()}
		}
		tensors[name] = raw
		offset = h.DataOffsets[1]
	}

	for _, name := range names {
		if _, err := io.ReadFull(r, tensors[name].Data()); err != nil {
			return nil, nil, &ValidationError{Err: ErrOutOfBounds, Tensor: name, Details: err.Error()}
		}
	}
	return tensors, metadata, nil
}

// dtypeToSafeTensors converts tensor.DataType to SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	default:
		return "", ErrUnsupportedDType
	}
}

func dtypeFromSafeTensors(s string) (tensor.DataType, error) {
	switch s {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	default:
		return 0, ErrUnsupportedDType
	}
}
