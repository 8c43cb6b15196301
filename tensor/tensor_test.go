// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/born-ml/invphys/internal/backend/cpu"
	"github.com/born-ml/invphys/tensor"
)

// TestBackendInterface verifies that cpu.CPUBackend implements tensor.Backend.
func TestBackendInterface(_ *testing.T) {
	var _ tensor.Backend = (*cpu.CPUBackend)(nil)
}

// TestRawTensorAPI verifies RawTensor type alias exposes expected API.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if shape := raw.Shape(); !shape.Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", shape)
	}
	if dtype := raw.DType(); dtype != tensor.Float32 {
		t.Errorf("DType() = %v, want Float32", dtype)
	}
	if device := raw.Device(); device != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", device)
	}
	if n := raw.NumElements(); n != 6 {
		t.Errorf("NumElements() = %d, want 6", n)
	}
	if n := len(raw.Data()); n != 6*4 {
		t.Errorf("Data() length = %d, want %d", n, 6*4)
	}

	// Clone must not share the buffer.
	clone := raw.Clone()
	clone.AsFloat32()[0] = 1
	if raw.AsFloat32()[0] != 0 {
		t.Error("Clone() shares data with the original")
	}
}

// TestTensorCreationFunctions verifies high-level tensor creation API.
func TestTensorCreationFunctions(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name      string
		fn        func() (*tensor.Tensor[float32, *cpu.CPUBackend], error)
		wantShape tensor.Shape
		wantFirst float32
	}{
		{
			name: "Zeros",
			fn: func() (*tensor.Tensor[float32, *cpu.CPUBackend], error) {
				return tensor.Zeros[float32](tensor.Shape{2, 3}, backend), nil
			},
			wantShape: tensor.Shape{2, 3},
			wantFirst: 0,
		},
		{
			name: "Ones",
			fn: func() (*tensor.Tensor[float32, *cpu.CPUBackend], error) {
				return tensor.Ones[float32](tensor.Shape{2, 3}, backend), nil
			},
			wantShape: tensor.Shape{2, 3},
			wantFirst: 1,
		},
		{
			name: "Full",
			fn: func() (*tensor.Tensor[float32, *cpu.CPUBackend], error) {
				return tensor.Full[float32](tensor.Shape{2, 3}, 3.5, backend), nil
			},
			wantShape: tensor.Shape{2, 3},
			wantFirst: 3.5,
		},
		{
			name: "Scalar",
			fn: func() (*tensor.Tensor[float32, *cpu.CPUBackend], error) {
				return tensor.Scalar[float32](0.9, backend), nil
			},
			wantShape: tensor.Shape{},
			wantFirst: 0.9,
		},
		{
			name: "FromSlice",
			fn: func() (*tensor.Tensor[float32, *cpu.CPUBackend], error) {
				return tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
			},
			wantShape: tensor.Shape{2, 3},
			wantFirst: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.fn()
			if err != nil {
				t.Fatalf("%s() returned error: %v", tt.name, err)
			}
			if !result.Shape().Equal(tt.wantShape) {
				t.Errorf("%s() shape = %v, want %v", tt.name, result.Shape(), tt.wantShape)
			}
			if got := result.Data()[0]; got != tt.wantFirst {
				t.Errorf("%s() first element = %v, want %v", tt.name, got, tt.wantFirst)
			}
		})
	}
}

// TestDeviceConstants verifies device constants and parsing.
func TestDeviceConstants(t *testing.T) {
	devices := []struct {
		name   string
		device tensor.Device
	}{
		{"cpu", tensor.CPU},
		{"webgpu", tensor.WebGPU},
	}

	for _, d := range devices {
		t.Run(d.name, func(t *testing.T) {
			got, err := tensor.ParseDevice(d.name)
			if err != nil {
				t.Fatalf("ParseDevice(%q) failed: %v", d.name, err)
			}
			if got != d.device {
				t.Errorf("ParseDevice(%q) = %v, want %v", d.name, got, d.device)
			}
			if str := d.device.String(); str == "" || str == "Unknown" {
				t.Errorf("Device.String() = %q, want non-empty known device name", str)
			}
		})
	}

	if _, err := tensor.ParseDevice("tpu"); err == nil {
		t.Error("ParseDevice(\"tpu\") succeeded, want error")
	}
}

// TestDataTypeConstants verifies all data type constants are accessible.
func TestDataTypeConstants(t *testing.T) {
	dtypes := []struct {
		name  string
		dtype tensor.DataType
		size  int
	}{
		{"Float32", tensor.Float32, 4},
		{"Float64", tensor.Float64, 8},
	}

	for _, dt := range dtypes {
		t.Run(dt.name, func(t *testing.T) {
			if str := dt.dtype.String(); str == "" {
				t.Errorf("DataType.String() = %q, want non-empty", str)
			}
			if size := dt.dtype.Size(); size != dt.size {
				t.Errorf("DataType.Size() = %d, want %d", size, dt.size)
			}
		})
	}
}

// TestShapeAPI verifies Shape type alias exposes expected API.
func TestShapeAPI(t *testing.T) {
	shape := tensor.Shape{2, 3, 4}

	if n := shape.NumElements(); n != 24 {
		t.Errorf("NumElements() = %d, want 24", n)
	}
	if !shape.Equal(tensor.Shape{2, 3, 4}) {
		t.Error("Equal() = false, want true for identical shapes")
	}

	clone := shape.Clone()
	clone[0] = 999
	if shape[0] == 999 {
		t.Error("Clone() didn't create independent copy")
	}
}

// TestBroadcastShapes verifies BroadcastShapes utility function.
func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name          string
		shapeA        tensor.Shape
		shapeB        tensor.Shape
		wantShape     tensor.Shape
		wantBroadcast bool
		wantErr       bool
	}{
		{
			name:      "same shape",
			shapeA:    tensor.Shape{2, 3},
			shapeB:    tensor.Shape{2, 3},
			wantShape: tensor.Shape{2, 3},
		},
		{
			name:          "broadcast scalar",
			shapeA:        tensor.Shape{2, 3},
			shapeB:        tensor.Shape{},
			wantShape:     tensor.Shape{2, 3},
			wantBroadcast: true,
		},
		{
			name:          "broadcast depth channel",
			shapeA:        tensor.Shape{2, 1, 4, 4},
			shapeB:        tensor.Shape{2, 3, 4, 4},
			wantShape:     tensor.Shape{2, 3, 4, 4},
			wantBroadcast: true,
		},
		{
			name:    "incompatible",
			shapeA:  tensor.Shape{2, 3, 4, 4},
			shapeB:  tensor.Shape{2, 3, 4, 5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotShape, gotBroadcast, err := tensor.BroadcastShapes(tt.shapeA, tt.shapeB)

			if (err != nil) != tt.wantErr {
				t.Errorf("BroadcastShapes() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err == nil {
				if !gotShape.Equal(tt.wantShape) {
					t.Errorf("BroadcastShapes() shape = %v, want %v", gotShape, tt.wantShape)
				}
				if gotBroadcast != tt.wantBroadcast {
					t.Errorf("BroadcastShapes() broadcast = %v, want %v", gotBroadcast, tt.wantBroadcast)
				}
			}
		})
	}
}

// TestManipulationFunctions verifies manipulation utility functions.
func TestManipulationFunctions(t *testing.T) {
	backend := cpu.New()

	a := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
	b := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	c := tensor.Cat([]*tensor.Tensor[float32, *cpu.CPUBackend]{a, b}, 0)

	wantShape := tensor.Shape{4, 3}
	if !c.Shape().Equal(wantShape) {
		t.Errorf("Cat() shape = %v, want %v", c.Shape(), wantShape)
	}
	if got := c.At(3, 2); got != 0 {
		t.Errorf("Cat() [3,2] = %v, want 0", got)
	}
}
