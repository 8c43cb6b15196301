package tensor

import "fmt"

// Shape represents the dimensions of a tensor, outermost first.
// Image batches use the (B, C, H, W) layout.
type Shape []int

// Rank returns the number of dimensions; 0 for a scalar.
func (s Shape) Rank() int {
	return len(s)
}

// NumElements returns the total number of elements in the tensor.
// A scalar (empty shape) holds a single element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is strictly positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	return append(Shape(nil), s...)
}

// ComputeStrides calculates row-major strides: stride[i] is the product of all
// dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= s[i]
	}
	return strides
}

// BroadcastsTo reports whether s can be expanded to target without changing target,
// i.e. BroadcastShapes(s, target) == target.
func (s Shape) BroadcastsTo(target Shape) bool {
	out, _, err := BroadcastShapes(s, target)
	return err == nil && out.Equal(target)
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Shapes are compared right to left; two dimensions are compatible when they are
// equal or one of them is 1, and missing leading dimensions count as 1.
//
// Returns the broadcasted shape, whether any broadcasting is needed, and an error
// if the shapes are incompatible.
//
// Examples:
//
//	(2, 1, 4, 4) + (2, 3, 4, 4) → (2, 3, 4, 4), true, nil
//	()           + (2, 3, 4, 4) → (2, 3, 4, 4), true, nil
//	(2, 3, 4, 4) + (2, 3, 4, 5) → nil, false, Error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	n := max(len(a), len(b))
	result := make(Shape, n)
	needsBroadcast := len(a) != len(b)

	for i := 1; i <= n; i++ {
		aDim, bDim := 1, 1
		if len(a)-i >= 0 {
			aDim = a[len(a)-i]
		}
		if len(b)-i >= 0 {
			bDim = b[len(b)-i]
		}

		switch {
		case aDim == bDim:
			result[n-i] = aDim
		case aDim == 1:
			result[n-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[n-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, n-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}
