// Package serialization exports and imports named tensors in the SafeTensors format, so
// simulated observations and sampling masks can be inspected with other tools.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON, tensor name -> {dtype, shape, data_offsets}, optional __metadata__]
//	  [Tensor data: raw little-endian bytes, tensors in alphabetical order]
//
// Example usage:
//
//	err := serialization.WriteSafeTensors("batch0.safetensors", map[string]*tensor.RawTensor{
//	    "mask":        mask.Raw(),
//	    "observation": y.Raw(),
//	}, map[string]string{"generator": "mri,acceleration=4"})
//
//	tensors, metadata, err := serialization.ReadSafeTensors("batch0.safetensors")
package serialization
