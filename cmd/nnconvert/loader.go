// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/pkg/errors"
)

// jsonModel is the file format read by nnconvert. Operands are referred to by name.
type jsonModel struct {
	Version    string          `json:"version"`
	Relax      bool            `json:"relax"`
	Operands   []jsonOperand   `json:"operands"`
	Operations []jsonOperation `json:"operations"`
}

// jsonOperand describes one operand. Role is "input", "output", "novalue" or empty. Operands with an empty
// role are constants if they hold values (Int32, Float32 or raw Data bytes, base64 encoded), and
// intermediary tensors otherwise.
type jsonOperand struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Dims      []uint32  `json:"dims"`
	Role      string    `json:"role"`
	Scale     float32   `json:"scale"`
	ZeroPoint int32     `json:"zeroPoint"`
	Int32     []int32   `json:"int32"`
	Float32   []float32 `json:"float32"`
	Data      []byte    `json:"data"`
}

type jsonOperation struct {
	Type    string   `json:"type"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

// LoadModelFile reads a JSON model from the given file.
func LoadModelFile(path string) (*hal.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open model file")
	}
	defer func() { _ = f.Close() }()
	model, err := LoadModel(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "model file %q", path)
	}
	return model, nil
}

// LoadModel reads a JSON model and builds it.
func LoadModel(r io.Reader) (*hal.Model, error) {
	var jm jsonModel
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&jm); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON model")
	}
	var model *hal.Model
	err := exceptions.TryCatch[error](func() { model = jm.build() })
	if err != nil {
		return nil, err
	}
	return model, nil
}

// build the model, panicking with an exception on errors.
func (jm *jsonModel) build() *hal.Model {
	var version hal.Version
	switch jm.Version {
	case "1.0":
		version = hal.V1_0
	case "1.1", "":
		version = hal.V1_1
	default:
		exceptions.Panicf("unknown model version %q, valid values are 1.0 and 1.1", jm.Version)
	}
	b := hal.NewModelBuilder(version)
	b.RelaxFloat32ToFloat16(jm.Relax)

	indices := make(map[string]uint32, len(jm.Operands))
	for ii := range jm.Operands {
		operand := &jm.Operands[ii]
		if operand.Name == "" {
			exceptions.Panicf("operand #%d has no name", ii)
		}
		if _, found := indices[operand.Name]; found {
			exceptions.Panicf("operand %q defined more than once", operand.Name)
		}
		operandType, ok := hal.ParseOperandType(operand.Type)
		if !ok {
			exceptions.Panicf("operand %q has unknown type %q", operand.Name, operand.Type)
		}
		idx := operand.add(b, operandType)
		if operand.Scale != 0 || operand.ZeroPoint != 0 {
			b.SetQuantization(idx, operand.Scale, operand.ZeroPoint)
		}
		indices[operand.Name] = idx
	}

	lookup := func(names []string) []uint32 {
		result := make([]uint32, len(names))
		for ii, name := range names {
			idx, found := indices[name]
			if !found {
				exceptions.Panicf("operand %q not defined", name)
			}
			result[ii] = idx
		}
		return result
	}
	for _, op := range jm.Operations {
		opType, ok := hal.ParseOperationType(op.Type)
		if !ok {
			exceptions.Panicf("unknown operation type %q", op.Type)
		}
		b.AddOperation(opType, lookup(op.Inputs), lookup(op.Outputs))
	}
	return b.Build()
}

func (operand *jsonOperand) add(b *hal.ModelBuilder, operandType hal.OperandType) uint32 {
	hasValues := len(operand.Int32) > 0 || len(operand.Float32) > 0 || len(operand.Data) > 0
	if hasValues && operand.Role != "" {
		exceptions.Panicf("operand %q with role %q can't hold values", operand.Name, operand.Role)
	}
	switch operand.Role {
	case "input":
		return b.AddInput(operandType, operand.Dims...)
	case "output":
		return b.AddOutput(operandType, operand.Dims...)
	case "novalue":
		return b.AddNoValue(operandType)
	case "":
	default:
		exceptions.Panicf("operand %q has unknown role %q", operand.Name, operand.Role)
	}

	switch {
	case !hasValues:
		return b.AddTensor(operandType, operand.Dims...)
	case len(operand.Data) > 0:
		return b.AddPoolConstant(operandType, operand.Dims, operand.Data)
	case operandType == hal.OperandTypeInt32 && len(operand.Int32) == 1:
		return b.AddInt32Scalar(operand.Int32[0])
	case operandType == hal.OperandTypeTensorInt32 && len(operand.Int32) > 0:
		return b.AddInt32Constant(operand.Int32, operand.Dims...)
	case operandType == hal.OperandTypeFloat32 && len(operand.Float32) == 1:
		return b.AddFloat32Scalar(operand.Float32[0])
	case operandType == hal.OperandTypeTensorFloat32 && len(operand.Float32) > 0:
		return b.AddFloat32Constant(operand.Float32, operand.Dims...)
	}
	exceptions.Panicf("operand %q of type %s: values don't match the type, use \"data\" for raw bytes",
		operand.Name, operandType)
	return 0
}
