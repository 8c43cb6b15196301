package cpu

import (
	"fmt"

	"github.com/born-ml/invphys/internal/tensor"
)

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation dimension.
// Supports negative dim indexing (-1 = last dimension).
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := tensors[0].Shape()
	ndim := len(shape)
	dtype := tensors[0].DType()

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	totalDim := 0
	for i, t := range tensors {
		tShape := t.Shape()
		if len(tShape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(tShape), ndim))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}
		for d := 0; d < ndim; d++ {
			if d == dim {
				totalDim += tShape[d]
			} else if tShape[d] != shape[d] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, d, tShape[d], shape[d]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[dim] = totalDim
	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	switch dtype {
	case tensor.Float32:
		catLoop(result.AsFloat32(), tensors, outShape, dim, (*tensor.RawTensor).AsFloat32)
	case tensor.Float64:
		catLoop(result.AsFloat64(), tensors, outShape, dim, (*tensor.RawTensor).AsFloat64)
	default:
		panic(fmt.Sprintf("cat: unsupported dtype %s", dtype))
	}
	return result
}

// catLoop copies contiguous blocks: each input contributes shape[dim]*inner elements
// per outer index.
func catLoop[T float32 | float64](dst []T, tensors []*tensor.RawTensor, outShape tensor.Shape, dim int,
	view func(*tensor.RawTensor) []T) {
	outer := outShape[:dim].NumElements()
	inner := outShape[dim+1:].NumElements()
	rowLen := outShape[dim] * inner

	offset := 0
	for _, t := range tensors {
		src := view(t)
		block := t.Shape()[dim] * inner
		for o := 0; o < outer; o++ {
			copy(dst[o*rowLen+offset:o*rowLen+offset+block], src[o*block:(o+1)*block])
		}
		offset += block
	}
}
