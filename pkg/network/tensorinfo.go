// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package network

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chewxy/math32"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// TensorInfo describes the values flowing through an output slot: dimensions, element type
// and, for quantized types, the quantization parameters.
//
// A dimension of 0 means "unknown" and is only acceptable while the output of a layer is being
// inferred.
type TensorInfo struct {
	Dimensions []int
	DType      dtypes.DType

	QuantizationScale  float32
	QuantizationOffset int32
}

// MakeTensorInfo returns a TensorInfo with the given dtype and dimensions. The dimensions are copied.
func MakeTensorInfo(dtype dtypes.DType, dimensions ...int) TensorInfo {
	return TensorInfo{Dimensions: slices.Clone(dimensions), DType: dtype}
}

// Rank of the tensor. Scalars have rank 0.
func (info TensorInfo) Rank() int { return len(info.Dimensions) }

// NumElements is the product of the dimensions.
func (info TensorInfo) NumElements() int {
	size := 1
	for _, dim := range info.Dimensions {
		size *= dim
	}
	return size
}

// Memory returns the number of bytes needed to hold the tensor values.
func (info TensorInfo) Memory() uintptr {
	return uintptr(info.NumElements()) * info.DType.Memory()
}

// IsQuantized returns whether the tensor holds asymmetric quantized values.
func (info TensorInfo) IsQuantized() bool {
	return info.DType == dtypes.Uint8
}

// IsFullySpecified returns whether all dimensions are known.
func (info TensorInfo) IsFullySpecified() bool {
	return !slices.Contains(info.Dimensions, 0)
}

// Equal compares dimensions, dtype and quantization parameters.
func (info TensorInfo) Equal(other TensorInfo) bool {
	return info.DType == other.DType &&
		slices.Equal(info.Dimensions, other.Dimensions) &&
		info.QuantizationScale == other.QuantizationScale &&
		info.QuantizationOffset == other.QuantizationOffset
}

// Clone returns a deep copy.
func (info TensorInfo) Clone() TensorInfo {
	info.Dimensions = slices.Clone(info.Dimensions)
	return info
}

// WithDimensions returns a copy of the TensorInfo with the dimensions replaced.
func (info TensorInfo) WithDimensions(dimensions ...int) TensorInfo {
	info.Dimensions = slices.Clone(dimensions)
	return info
}

// Validate checks that dimensions are non-negative and that quantized tensors have a usable scale.
func (info TensorInfo) Validate() error {
	if info.DType == dtypes.InvalidDType {
		return errors.Errorf("tensor info %s has invalid dtype", info)
	}
	for axis, dim := range info.Dimensions {
		if dim < 0 {
			return errors.Errorf("tensor info %s has negative dimension %d for axis %d", info, dim, axis)
		}
	}
	if info.IsQuantized() {
		scale := info.QuantizationScale
		if math32.IsNaN(scale) || math32.IsInf(scale, 0) || scale <= 0 {
			return errors.Errorf("quantized tensor info %s must have a finite positive scale, got %g", info, scale)
		}
	}
	return nil
}

// String implements fmt.Stringer.
func (info TensorInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s)", info.DType)
	if len(info.Dimensions) > 0 {
		fmt.Fprintf(&sb, "%v", info.Dimensions)
	}
	if info.IsQuantized() {
		fmt.Fprintf(&sb, "{scale=%g, offset=%d}", info.QuantizationScale, info.QuantizationOffset)
	}
	return sb.String()
}

// ConstTensor is a TensorInfo plus the raw bytes of its values, in little-endian order.
type ConstTensor struct {
	Info TensorInfo
	Data []byte
}

// Validate checks that the amount of data matches the TensorInfo.
func (t ConstTensor) Validate() error {
	if err := t.Info.Validate(); err != nil {
		return err
	}
	if uintptr(len(t.Data)) != t.Info.Memory() {
		return errors.Errorf("constant tensor %s requires %d bytes, got %d", t.Info, t.Info.Memory(), len(t.Data))
	}
	return nil
}
