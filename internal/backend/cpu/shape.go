package cpu

import (
	"fmt"

	"github.com/born-ml/invphys/internal/tensor"
)

// Reshape returns a view of t with newShape. The element count must match.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	view, err := t.View(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Unsqueeze adds a dimension of size 1 at the specified position.
//
// Supports negative dim indexing.
// This is a view operation (reshape).
//
// Example:
//
//	x := rows                     // Shape: [4, 16, 16]
//	y := backend.Unsqueeze(x, 1)  // Shape: [4, 1, 16, 16]
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	// For unsqueeze the valid range is [0, ndim].
	if dim < 0 {
		dim = ndim + 1 + dim
	}
	if dim < 0 || dim > ndim {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for %dD tensor (valid: [0, %d])", dim, ndim, ndim))
	}

	newShape := make(tensor.Shape, 0, ndim+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return cpu.Reshape(x, newShape)
}

// Expand broadcasts the tensor to a new shape and materializes the result.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if !x.Shape().BroadcastsTo(newShape) {
		panic(fmt.Sprintf("expand: cannot expand %v to %v", x.Shape(), newShape))
	}

	result, err := tensor.NewRaw(newShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		expandLoop(result.AsFloat32(), x.AsFloat32(), x.Shape(), newShape)
	case tensor.Float64:
		expandLoop(result.AsFloat64(), x.AsFloat64(), x.Shape(), newShape)
	default:
		panic(fmt.Sprintf("expand: unsupported dtype %s", x.DType()))
	}
	return result
}

func expandLoop[T float32 | float64](dst, src []T, inShape, outShape tensor.Shape) {
	outStrides := outShape.ComputeStrides()
	inStrides := computeBroadcastStridesForShape(inShape, outShape)
	for i := range dst {
		dst[i] = src[computeFlatIndex(i, outStrides, inStrides)]
	}
}
