package tensor

// Backend defines the operations a compute backend provides to tensors.
//
// Implementations:
//   - CPU: pure Go, internal/backend/cpu
//
// Binary operations follow NumPy broadcasting and panic on incompatible shapes;
// callers that need a recoverable error check BroadcastShapes first.
type Backend interface {
	// Element-wise binary operations
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar float64) *RawTensor
	AddScalar(x *RawTensor, scalar float64) *RawTensor

	// Math operations (element-wise)
	Exp(x *RawTensor) *RawTensor

	// Shape operations
	Reshape(x *RawTensor, newShape Shape) *RawTensor // view
	Unsqueeze(x *RawTensor, dim int) *RawTensor      // view
	Expand(x *RawTensor, shape Shape) *RawTensor     // materialized broadcast
	Cat(tensors []*RawTensor, dim int) *RawTensor    // concatenate along dimension

	// Metadata
	Name() string
	Device() Device
}
