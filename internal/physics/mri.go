package physics

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/born-ml/invphys/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
)

// MRI is the single-coil Cartesian MRI operator
//
//	A(x)        = mask ⊙ F(x)
//	AAdjoint(y) = F⁻¹(mask ⊙ y)
//
// where F is the centered orthonormal 2-D Fourier transform. Images and k-space data use
// the (B, 2, H, W) layout, channel 0 holding the real part and channel 1 the imaginary
// part. Because F is unitary and the mask is real, AAdjoint is the exact adjoint of A
// under the real inner product.
//
// The mask is refreshed with UpdateParameters, typically from an AccelerationMask
// generator step. A and AAdjoint may run concurrently with each other; UpdateParameters
// waits for them.
type MRI struct {
	mu   sync.RWMutex
	mask *Tensor
}

var (
	_ Forward[*Tensor, *Tensor] = (*MRI)(nil)
	_ Parameterized             = (*MRI)(nil)
)

// NewMRI returns an MRI operator sampling with mask. A nil mask means full sampling.
func NewMRI(mask *Tensor) (*MRI, error) {
	m := &MRI{}
	if mask == nil {
		return m, nil
	}
	if err := m.UpdateParameters(Params{KeyMask: mask}); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateParameters replaces the sampling mask with params[KeyMask].
// The mask must have rank 2 (H, W) or 4 (B, C, H, W); compatibility with the data is
// checked on each call to A and AAdjoint.
func (m *MRI) UpdateParameters(params Params) error {
	mask, ok := params[KeyMask]
	if !ok || mask == nil {
		return errors.Wrapf(ErrConfig, "mri: parameters have no %q entry", KeyMask)
	}
	if r := mask.Shape().Rank(); r != 2 && r != 4 {
		return errors.Wrapf(ErrShapeMismatch, "mri: mask must be (H, W) or (B, C, H, W), got %v", mask.Shape())
	}
	m.mu.Lock()
	m.mask = mask
	m.mu.Unlock()
	return nil
}

// Mask returns the current mask, or nil for full sampling.
func (m *MRI) Mask() *Tensor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mask
}

// A returns the masked k-space measurements of image x.
func (m *MRI) A(x *Tensor) (*Tensor, error) {
	k, err := m.transform("mri image", x, false)
	if err != nil {
		return nil, err
	}
	return m.applyMask(k)
}

// AAdjoint returns the zero-filled reconstruction of k-space measurements y.
func (m *MRI) AAdjoint(y *Tensor) (*Tensor, error) {
	if err := checkComplexLayout("mri measurements", y); err != nil {
		return nil, err
	}
	masked, err := m.applyMask(y)
	if err != nil {
		return nil, err
	}
	return m.transform("mri measurements", masked, true)
}

func (m *MRI) applyMask(k *Tensor) (*Tensor, error) {
	mask := m.Mask()
	if mask == nil {
		return k, nil
	}
	if err := checkBroadcast("mri mask", mask, k.Shape()); err != nil {
		return nil, err
	}
	return k.Mul(mask), nil
}

func checkComplexLayout(name string, x *Tensor) error {
	if err := checkRank(name, x, 4); err != nil {
		return err
	}
	if c := x.Shape()[1]; c != 2 {
		return errors.Wrapf(ErrShapeMismatch, "%s must have 2 channels (real, imaginary), got %d", name, c)
	}
	return nil
}

// transform applies the centered orthonormal 2-D FFT (or its inverse) to every batch
// element of x and returns a new tensor.
func (m *MRI) transform(name string, x *Tensor, inverse bool) (*Tensor, error) {
	if err := checkComplexLayout(name, x); err != nil {
		return nil, err
	}
	shape := x.Shape()
	batch, h, w := shape[0], shape[2], shape[3]
	plane := h * w

	out := tensor.Zeros[float32, tensor.Backend](shape, x.Backend())
	src, dst := x.Data(), out.Data()
	grid := make([]complex128, plane)
	shifted := make([]complex128, plane)
	fft := newFFT2(h, w)

	for b := 0; b < batch; b++ {
		re := src[(2*b)*plane : (2*b+1)*plane]
		im := src[(2*b+1)*plane : (2*b+2)*plane]
		for i := range grid {
			grid[i] = complex(float64(re[i]), float64(im[i]))
		}

		// Centered transform: fftshift ∘ F ∘ ifftshift.
		shift2(shifted, grid, h, w, h-h/2, w-w/2)
		if inverse {
			fft.inverse(shifted)
		} else {
			fft.forward(shifted)
		}
		shift2(grid, shifted, h, w, h/2, w/2)

		outRe := dst[(2*b)*plane : (2*b+1)*plane]
		outIm := dst[(2*b+1)*plane : (2*b+2)*plane]
		for i, v := range grid {
			outRe[i] = float32(real(v))
			outIm[i] = float32(imag(v))
		}
	}
	return out, nil
}

// shift2 rolls the h×w grid src by (dh, dw) into dst.
func shift2(dst, src []complex128, h, w, dh, dw int) {
	for r := 0; r < h; r++ {
		rr := (r + dh) % h
		for c := 0; c < w; c++ {
			dst[rr*w+(c+dw)%w] = src[r*w+c]
		}
	}
}

// fft2 is an orthonormal 2-D FFT over a row-major h×w grid.
// It owns work buffers and must not be shared between goroutines.
type fft2 struct {
	h, w       int
	rows, cols *fourier.CmplxFFT
	col        []complex128
	scale      complex128
}

func newFFT2(h, w int) *fft2 {
	return &fft2{
		h:     h,
		w:     w,
		rows:  fourier.NewCmplxFFT(w),
		cols:  fourier.NewCmplxFFT(h),
		col:   make([]complex128, h),
		scale: complex(1/math.Sqrt(float64(h*w)), 0),
	}
}

func (f *fft2) forward(grid []complex128) {
	for r := 0; r < f.h; r++ {
		row := grid[r*f.w : (r+1)*f.w]
		f.rows.Coefficients(row, row)
	}
	for c := 0; c < f.w; c++ {
		for r := 0; r < f.h; r++ {
			f.col[r] = grid[r*f.w+c]
		}
		f.cols.Coefficients(f.col, f.col)
		for r := 0; r < f.h; r++ {
			grid[r*f.w+c] = f.col[r] * f.scale
		}
	}
}

// inverse uses F⁻¹(x) = conj(F(conj(x))), valid for the orthonormal transform.
func (f *fft2) inverse(grid []complex128) {
	for i, v := range grid {
		grid[i] = cmplx.Conj(v)
	}
	f.forward(grid)
	for i, v := range grid {
		grid[i] = cmplx.Conj(v)
	}
}
