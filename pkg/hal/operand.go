// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package hal defines the versioned model description received by the driver: operands,
// operations and the model that owns them, plus accessors to read operand metadata and
// constant data.
//
// Operands and operations are referenced by index, and the values stored here are
// immutable once the model is built: the conversion engine only reads from it.
package hal

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
)

// Version of the HAL operation set a model (or an operation) belongs to.
type Version int

const (
	V1_0 Version = iota
	V1_1
)

// String implements fmt.Stringer.
func (v Version) String() string {
	switch v {
	case V1_0:
		return "1.0"
	case V1_1:
		return "1.1"
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// OperandType is the type of an operand, following the NN HAL numbering.
type OperandType int32

const (
	OperandTypeFloat32           OperandType = 0
	OperandTypeInt32             OperandType = 1
	OperandTypeUint32            OperandType = 2
	OperandTypeTensorFloat32     OperandType = 3
	OperandTypeTensorInt32       OperandType = 4
	OperandTypeTensorQuant8Asymm OperandType = 5
	OperandTypeBool              OperandType = 6
	OperandTypeTensorFloat16     OperandType = 8
	OperandTypeFloat16           OperandType = 10
)

var operandTypeNames = map[OperandType]string{
	OperandTypeFloat32:           "FLOAT32",
	OperandTypeInt32:             "INT32",
	OperandTypeUint32:            "UINT32",
	OperandTypeTensorFloat32:     "TENSOR_FLOAT32",
	OperandTypeTensorInt32:       "TENSOR_INT32",
	OperandTypeTensorQuant8Asymm: "TENSOR_QUANT8_ASYMM",
	OperandTypeBool:              "BOOL",
	OperandTypeTensorFloat16:     "TENSOR_FLOAT16",
	OperandTypeFloat16:           "FLOAT16",
}

// String implements fmt.Stringer.
func (t OperandType) String() string {
	if name, found := operandTypeNames[t]; found {
		return name
	}
	return fmt.Sprintf("OperandType(%d)", int32(t))
}

// ParseOperandType returns the OperandType for the given name, e.g.: "TENSOR_FLOAT32".
func ParseOperandType(name string) (OperandType, bool) {
	for t, n := range operandTypeNames {
		if n == name {
			return t, true
		}
	}
	return -1, false
}

// IsScalar returns whether operands of this type hold exactly one value and have no dimensions.
func (t OperandType) IsScalar() bool {
	switch t {
	case OperandTypeFloat32, OperandTypeInt32, OperandTypeUint32, OperandTypeBool, OperandTypeFloat16:
		return true
	}
	return false
}

// IsQuantized returns whether values of this type carry a scale and zero-point.
func (t OperandType) IsQuantized() bool {
	return t == OperandTypeTensorQuant8Asymm
}

// DType returns the element type used to store the operand values, or dtypes.InvalidDType
// if the operand type is not known.
func (t OperandType) DType() dtypes.DType {
	switch t {
	case OperandTypeFloat32, OperandTypeTensorFloat32:
		return dtypes.Float32
	case OperandTypeFloat16, OperandTypeTensorFloat16:
		return dtypes.Float16
	case OperandTypeInt32, OperandTypeTensorInt32:
		return dtypes.Int32
	case OperandTypeUint32:
		return dtypes.Uint32
	case OperandTypeTensorQuant8Asymm:
		return dtypes.Uint8
	case OperandTypeBool:
		return dtypes.Bool
	}
	return dtypes.InvalidDType
}

// Lifetime tells where the value of an operand comes from.
type Lifetime int32

const (
	// LifetimeTemporaryVariable is produced by an operation and consumed by others.
	LifetimeTemporaryVariable Lifetime = iota
	// LifetimeModelInput is fed at execution time.
	LifetimeModelInput
	// LifetimeModelOutput is produced by an operation and returned from the model.
	LifetimeModelOutput
	// LifetimeConstantCopy values are stored in Model.OperandValues.
	LifetimeConstantCopy
	// LifetimeConstantReference values are stored in one of the Model.Pools.
	LifetimeConstantReference
	// LifetimeNoValue marks an omitted optional operand.
	LifetimeNoValue
)

var lifetimeNames = []string{
	LifetimeTemporaryVariable: "TEMPORARY_VARIABLE",
	LifetimeModelInput:        "MODEL_INPUT",
	LifetimeModelOutput:       "MODEL_OUTPUT",
	LifetimeConstantCopy:      "CONSTANT_COPY",
	LifetimeConstantReference: "CONSTANT_REFERENCE",
	LifetimeNoValue:           "NO_VALUE",
}

// String implements fmt.Stringer.
func (l Lifetime) String() string {
	if l >= 0 && int(l) < len(lifetimeNames) {
		return lifetimeNames[l]
	}
	return fmt.Sprintf("Lifetime(%d)", int32(l))
}

// IsConstant returns whether the value is known at model-build time.
func (l Lifetime) IsConstant() bool {
	return l == LifetimeConstantCopy || l == LifetimeConstantReference
}

// DataLocation points to the bytes of a constant operand.
//
// For LifetimeConstantCopy PoolIndex is ignored and Offset is relative to Model.OperandValues.
type DataLocation struct {
	PoolIndex uint32
	Offset    uint32
	Length    uint32
}

// Operand describes a typed and shaped value in the model.
type Operand struct {
	Type       OperandType
	Dimensions []uint32

	// Scale and ZeroPoint are only meaningful for quantized types.
	Scale     float32
	ZeroPoint int32

	Lifetime Lifetime
	Location DataLocation
}

// Rank returns the number of dimensions.
func (o *Operand) Rank() int { return len(o.Dimensions) }

// NumElements returns the number of values of the operand. Scalars have one element.
func (o *Operand) NumElements() int {
	size := 1
	for _, dim := range o.Dimensions {
		size *= int(dim)
	}
	return size
}

// String implements fmt.Stringer.
func (o *Operand) String() string {
	if o == nil {
		return "<nil operand>"
	}
	return fmt.Sprintf("%s%v(%s)", o.Type, o.Dimensions, o.Lifetime)
}
