package tensor

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation dimension.
// Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	re := tensor.Zeros[float32](Shape{1, 1, 8, 8}, backend)
//	im := tensor.Zeros[float32](Shape{1, 1, 8, 8}, backend)
//	x := tensor.Cat([]*Tensor[float32, B]{re, im}, 1) // Shape: [1, 2, 8, 8]
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}
	if len(tensors) == 1 {
		return tensors[0].Clone()
	}

	rawTensors := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		rawTensors[i] = t.raw
	}
	backend := tensors[0].backend
	return New[T, B](backend.Cat(rawTensors, dim), backend)
}

// Unsqueeze adds a dimension of size 1 at the specified position.
//
// Supports negative dim indexing.
// This is a view operation (no data copy).
//
// Example:
//
//	rows := tensor.Zeros[float32](Shape{4, 16, 16}, backend)
//	y := rows.Unsqueeze(1) // Shape: [4, 1, 16, 16]
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	return New[T, B](t.backend.Unsqueeze(t.raw, dim), t.backend)
}
