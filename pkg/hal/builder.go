// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hal

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/gomlx/exceptions"
)

// ModelBuilder incrementally assembles a Model. It is used by loaders and tests.
//
// Methods that add operands return the index of the new operand. Misuse (e.g. referencing an
// operand that doesn't exist) panics with an exception.
type ModelBuilder struct {
	model Model
}

// NewModelBuilder returns a builder for a model of the given version.
func NewModelBuilder(version Version) *ModelBuilder {
	return &ModelBuilder{model: Model{Version: version}}
}

func (b *ModelBuilder) addOperand(operand Operand) uint32 {
	b.model.Operands = append(b.model.Operands, operand)
	return uint32(len(b.model.Operands) - 1)
}

// AddInput adds a model input operand.
func (b *ModelBuilder) AddInput(operandType OperandType, dims ...uint32) uint32 {
	idx := b.addOperand(Operand{Type: operandType, Dimensions: slices.Clone(dims), Lifetime: LifetimeModelInput})
	b.model.InputIndexes = append(b.model.InputIndexes, idx)
	return idx
}

// AddTensor adds an intermediary operand, produced and consumed by operations.
// Zero dimensions are left for the conversion to infer.
func (b *ModelBuilder) AddTensor(operandType OperandType, dims ...uint32) uint32 {
	return b.addOperand(Operand{Type: operandType, Dimensions: slices.Clone(dims), Lifetime: LifetimeTemporaryVariable})
}

// AddOutput adds a model output operand.
func (b *ModelBuilder) AddOutput(operandType OperandType, dims ...uint32) uint32 {
	idx := b.addOperand(Operand{Type: operandType, Dimensions: slices.Clone(dims), Lifetime: LifetimeModelOutput})
	b.model.OutputIndexes = append(b.model.OutputIndexes, idx)
	return idx
}

// SetQuantization sets the scale and zero-point of an operand.
func (b *ModelBuilder) SetQuantization(operandIdx uint32, scale float32, zeroPoint int32) *ModelBuilder {
	operand := b.operand(operandIdx)
	operand.Scale = scale
	operand.ZeroPoint = zeroPoint
	return b
}

func (b *ModelBuilder) operand(idx uint32) *Operand {
	if int(idx) >= len(b.model.Operands) {
		exceptions.Panicf("ModelBuilder: operand %d doesn't exist (%d operands defined)", idx, len(b.model.Operands))
	}
	return &b.model.Operands[idx]
}

// addCopy appends data to the OperandValues storage and adds a LifetimeConstantCopy operand pointing to it.
func (b *ModelBuilder) addCopy(operandType OperandType, dims []uint32, data []byte) uint32 {
	loc := DataLocation{Offset: uint32(len(b.model.OperandValues)), Length: uint32(len(data))}
	b.model.OperandValues = append(b.model.OperandValues, data...)
	return b.addOperand(Operand{
		Type:       operandType,
		Dimensions: slices.Clone(dims),
		Lifetime:   LifetimeConstantCopy,
		Location:   loc,
	})
}

func encodeInt32s(values []int32) []byte {
	data := make([]byte, 4*len(values))
	for ii, v := range values {
		binary.LittleEndian.PutUint32(data[4*ii:], uint32(v))
	}
	return data
}

func encodeFloat32s(values []float32) []byte {
	data := make([]byte, 4*len(values))
	for ii, v := range values {
		binary.LittleEndian.PutUint32(data[4*ii:], math.Float32bits(v))
	}
	return data
}

// AddInt32Constant adds a constant TENSOR_INT32 operand. If no dims are given, it is a vector
// of len(values).
func (b *ModelBuilder) AddInt32Constant(values []int32, dims ...uint32) uint32 {
	if len(dims) == 0 {
		dims = []uint32{uint32(len(values))}
	}
	return b.addCopy(OperandTypeTensorInt32, dims, encodeInt32s(values))
}

// AddInt32Scalar adds a constant INT32 scalar operand.
func (b *ModelBuilder) AddInt32Scalar(value int32) uint32 {
	return b.addCopy(OperandTypeInt32, nil, encodeInt32s([]int32{value}))
}

// AddFloat32Scalar adds a constant FLOAT32 scalar operand.
func (b *ModelBuilder) AddFloat32Scalar(value float32) uint32 {
	return b.addCopy(OperandTypeFloat32, nil, encodeFloat32s([]float32{value}))
}

// AddFloat32Constant adds a constant TENSOR_FLOAT32 operand. If no dims are given, it is a vector
// of len(values).
func (b *ModelBuilder) AddFloat32Constant(values []float32, dims ...uint32) uint32 {
	if len(dims) == 0 {
		dims = []uint32{uint32(len(values))}
	}
	return b.addCopy(OperandTypeTensorFloat32, dims, encodeFloat32s(values))
}

// AddPoolConstant adds a LifetimeConstantReference operand whose bytes live in a new memory pool.
func (b *ModelBuilder) AddPoolConstant(operandType OperandType, dims []uint32, data []byte) uint32 {
	b.model.Pools = append(b.model.Pools, slices.Clone(data))
	return b.addOperand(Operand{
		Type:       operandType,
		Dimensions: slices.Clone(dims),
		Lifetime:   LifetimeConstantReference,
		Location:   DataLocation{PoolIndex: uint32(len(b.model.Pools) - 1), Length: uint32(len(data))},
	})
}

// AddNoValue adds an operand marking an omitted optional input.
func (b *ModelBuilder) AddNoValue(operandType OperandType) uint32 {
	return b.addOperand(Operand{Type: operandType, Lifetime: LifetimeNoValue})
}

// AddOperation appends an operation and returns its position in the model.
func (b *ModelBuilder) AddOperation(opType OperationType, inputs []uint32, outputs []uint32) int {
	for _, idx := range inputs {
		_ = b.operand(idx)
	}
	for _, idx := range outputs {
		_ = b.operand(idx)
	}
	b.model.Operations = append(b.model.Operations, Operation{
		Type:    opType,
		Inputs:  slices.Clone(inputs),
		Outputs: slices.Clone(outputs),
	})
	return len(b.model.Operations) - 1
}

// RelaxFloat32ToFloat16 sets the model's RelaxComputationFloat32toFloat16 flag.
func (b *ModelBuilder) RelaxFloat32ToFloat16(relax bool) *ModelBuilder {
	b.model.RelaxComputationFloat32toFloat16 = relax
	return b
}

// Build returns the model built so far. The builder should not be used afterwards.
func (b *ModelBuilder) Build() *Model {
	m := b.model
	return &m
}
