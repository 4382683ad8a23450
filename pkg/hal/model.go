// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hal

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Model is a full computation description: the operands, the operations over them, which
// operands are fed and returned, and the storage of constant values.
type Model struct {
	Version    Version
	Operands   []Operand
	Operations []Operation

	InputIndexes  []uint32
	OutputIndexes []uint32

	// OperandValues holds the bytes of LifetimeConstantCopy operands.
	OperandValues []byte

	// Pools hold the bytes of LifetimeConstantReference operands.
	Pools [][]byte

	// RelaxComputationFloat32toFloat16 allows float32 computations to be carried out in float16.
	RelaxComputationFloat32toFloat16 bool
}

// Operand returns the operand at the given model index, or an error if it is out of range.
func (m *Model) Operand(index uint32) (*Operand, error) {
	if int(index) >= len(m.Operands) {
		return nil, errors.Errorf("operand index %d out of range (model has %d operands)", index, len(m.Operands))
	}
	return &m.Operands[index], nil
}

// InputOperand returns the operand feeding input inputIndex of op.
func (m *Model) InputOperand(op *Operation, inputIndex int) (*Operand, error) {
	if inputIndex < 0 || inputIndex >= len(op.Inputs) {
		return nil, errors.Errorf("%s: input %d out of range (operation has %d inputs)", op.Type, inputIndex, len(op.Inputs))
	}
	operand, err := m.Operand(op.Inputs[inputIndex])
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: input %d", op.Type, inputIndex)
	}
	return operand, nil
}

// OptionalInputOperand is like InputOperand but it distinguishes an absent optional input
// (found=false, no error) from a malformed reference (error).
//
// An input is absent if the operation doesn't list it, or if the operand has LifetimeNoValue.
func (m *Model) OptionalInputOperand(op *Operation, inputIndex int) (operand *Operand, found bool, err error) {
	if inputIndex < 0 {
		return nil, false, errors.Errorf("%s: negative input index %d", op.Type, inputIndex)
	}
	if inputIndex >= len(op.Inputs) {
		return nil, false, nil
	}
	operand, err = m.Operand(op.Inputs[inputIndex])
	if err != nil {
		return nil, false, errors.WithMessagef(err, "%s: optional input %d", op.Type, inputIndex)
	}
	if operand.Lifetime == LifetimeNoValue {
		return nil, false, nil
	}
	return operand, true, nil
}

// OutputOperand returns the operand written by output outputIndex of op.
func (m *Model) OutputOperand(op *Operation, outputIndex int) (*Operand, error) {
	if outputIndex < 0 || outputIndex >= len(op.Outputs) {
		return nil, errors.Errorf("%s: output %d out of range (operation has %d outputs)", op.Type, outputIndex, len(op.Outputs))
	}
	operand, err := m.Operand(op.Outputs[outputIndex])
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: output %d", op.Type, outputIndex)
	}
	return operand, nil
}

// OperandValue returns the raw bytes of a constant operand. The returned slice aliases the
// model storage and must not be modified.
func (m *Model) OperandValue(operand *Operand) ([]byte, error) {
	loc := operand.Location
	var storage []byte
	switch operand.Lifetime {
	case LifetimeConstantCopy:
		storage = m.OperandValues
	case LifetimeConstantReference:
		if int(loc.PoolIndex) >= len(m.Pools) {
			return nil, errors.Errorf("operand %s references pool %d, but model has only %d pools",
				operand, loc.PoolIndex, len(m.Pools))
		}
		storage = m.Pools[loc.PoolIndex]
	default:
		return nil, errors.Errorf("operand %s is not a constant, it has no value", operand)
	}
	end := uint64(loc.Offset) + uint64(loc.Length)
	if end > uint64(len(storage)) {
		return nil, errors.Errorf("operand %s location [%d, %d) is beyond its storage of %d bytes",
			operand, loc.Offset, end, len(storage))
	}
	return storage[loc.Offset:end], nil
}

// Int32Values decodes all values of a constant INT32 or TENSOR_INT32 operand.
func (m *Model) Int32Values(operand *Operand) ([]int32, error) {
	if operand.Type != OperandTypeInt32 && operand.Type != OperandTypeTensorInt32 {
		return nil, errors.Errorf("operand %s is not of an int32 type", operand)
	}
	data, err := m.OperandValue(operand)
	if err != nil {
		return nil, err
	}
	numElements := operand.NumElements()
	if len(data) != 4*numElements {
		return nil, errors.Errorf("operand %s holds %d bytes, but %d int32 values require %d bytes",
			operand, len(data), numElements, 4*numElements)
	}
	values := make([]int32, numElements)
	for ii := range values {
		values[ii] = int32(binary.LittleEndian.Uint32(data[4*ii:]))
	}
	return values, nil
}

// Int32Scalar decodes a constant scalar INT32 operand.
func (m *Model) Int32Scalar(operand *Operand) (int32, error) {
	if operand.Type != OperandTypeInt32 {
		return 0, errors.Errorf("operand %s is not an INT32 scalar", operand)
	}
	values, err := m.Int32Values(operand)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, errors.Errorf("INT32 scalar operand %s holds %d values, wanted 1", operand, len(values))
	}
	return values[0], nil
}

// Float32Scalar decodes a constant scalar FLOAT32 or FLOAT16 operand. Non-finite values are rejected.
func (m *Model) Float32Scalar(operand *Operand) (float32, error) {
	data, err := m.OperandValue(operand)
	if err != nil {
		return 0, err
	}
	var value float32
	switch operand.Type {
	case OperandTypeFloat32:
		if len(data) != 4 {
			return 0, errors.Errorf("FLOAT32 scalar operand %s holds %d bytes, wanted 4", operand, len(data))
		}
		value = math.Float32frombits(binary.LittleEndian.Uint32(data))
	case OperandTypeFloat16:
		if len(data) != 2 {
			return 0, errors.Errorf("FLOAT16 scalar operand %s holds %d bytes, wanted 2", operand, len(data))
		}
		value = float16.Frombits(binary.LittleEndian.Uint16(data)).Float32()
	default:
		return 0, errors.Errorf("operand %s is not a float scalar", operand)
	}
	if math32.IsNaN(value) || math32.IsInf(value, 0) {
		return 0, errors.Errorf("float scalar operand %s is not finite (%g)", operand, value)
	}
	return value, nil
}

// InputInt32 reads input inputIndex of op as a constant INT32 scalar.
func (m *Model) InputInt32(op *Operation, inputIndex int) (int32, error) {
	operand, err := m.InputOperand(op, inputIndex)
	if err != nil {
		return 0, err
	}
	value, err := m.Int32Scalar(operand)
	if err != nil {
		return 0, errors.WithMessagef(err, "%s: input %d", op.Type, inputIndex)
	}
	return value, nil
}

// InputFloat32 reads input inputIndex of op as a constant float scalar.
func (m *Model) InputFloat32(op *Operation, inputIndex int) (float32, error) {
	operand, err := m.InputOperand(op, inputIndex)
	if err != nil {
		return 0, err
	}
	value, err := m.Float32Scalar(operand)
	if err != nil {
		return 0, errors.WithMessagef(err, "%s: input %d", op.Type, inputIndex)
	}
	return value, nil
}

// Validate checks the model is self-consistent: operand references are in range, constant
// locations fit their storage and no operation is newer than the model version.
func (m *Model) Validate() error {
	if m.Version != V1_0 && m.Version != V1_1 {
		return errors.Errorf("unknown model version %s", m.Version)
	}
	for ii := range m.Operands {
		operand := &m.Operands[ii]
		if operand.Type.DType() == dtypes.InvalidDType {
			return errors.Errorf("operand #%d has unknown type %s", ii, operand.Type)
		}
		if operand.Type.IsScalar() && len(operand.Dimensions) != 0 {
			return errors.Errorf("operand #%d of scalar type %s has dimensions %v", ii, operand.Type, operand.Dimensions)
		}
		if operand.Lifetime.IsConstant() {
			if _, err := m.OperandValue(operand); err != nil {
				return errors.WithMessagef(err, "operand #%d", ii)
			}
		}
	}
	checkIndexes := func(kind string, indexes []uint32) error {
		for _, idx := range indexes {
			if int(idx) >= len(m.Operands) {
				return errors.Errorf("%s operand index %d out of range (model has %d operands)", kind, idx, len(m.Operands))
			}
		}
		return nil
	}
	if err := checkIndexes("model input", m.InputIndexes); err != nil {
		return err
	}
	if err := checkIndexes("model output", m.OutputIndexes); err != nil {
		return err
	}
	for ii := range m.Operations {
		op := &m.Operations[ii]
		if !op.Type.IsValid() {
			return errors.Errorf("operation #%d has unknown type %s", ii, op.Type)
		}
		if op.Type.Version() > m.Version {
			return errors.Errorf("operation #%d %s requires version %s, but model is version %s",
				ii, op.Type, op.Type.Version(), m.Version)
		}
		if err := checkIndexes(op.Type.String()+" input", op.Inputs); err != nil {
			return errors.WithMessagef(err, "operation #%d", ii)
		}
		if err := checkIndexes(op.Type.String()+" output", op.Outputs); err != nil {
			return errors.WithMessagef(err, "operation #%d", ii)
		}
	}
	return nil
}
