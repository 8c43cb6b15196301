package cpu

import (
	"github.com/born-ml/invphys/internal/tensor"
)

// computeBroadcastStridesForShape returns strides that map an index of outShape back
// into an input of inShape. Padded and size-1 dimensions get stride 0.
func computeBroadcastStridesForShape(inShape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	offset := len(outShape) - len(inShape)
	origStrides := inShape.ComputeStrides()

	for i := range outShape {
		inIdx := i - offset
		if inIdx < 0 || inShape[inIdx] == 1 {
			continue
		}
		strides[i] = origStrides[inIdx]
	}
	return strides
}

// computeFlatIndex converts a flat output index into the flat input index under
// broadcast-adjusted input strides.
func computeFlatIndex(outIdx int, outStrides, inStrides []int) int {
	flatIdx := 0
	for i, s := range outStrides {
		coord := outIdx / s
		outIdx %= s
		flatIdx += coord * inStrides[i]
	}
	return flatIdx
}
