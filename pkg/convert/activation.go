// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"

	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
)

// FuseCode is the activation fused into the output of some operations.
type FuseCode int32

const (
	FuseNone FuseCode = iota
	FuseRelu
	FuseRelu1
	FuseRelu6
)

// String implements fmt.Stringer.
func (c FuseCode) String() string {
	switch c {
	case FuseNone:
		return "NONE"
	case FuseRelu:
		return "RELU"
	case FuseRelu1:
		return "RELU1"
	case FuseRelu6:
		return "RELU6"
	}
	return fmt.Sprintf("FuseCode(%d)", int32(c))
}

// ActivationDescriptor returns the descriptor of the activation layer for the code, or nil for FuseNone.
func (c FuseCode) ActivationDescriptor() (*network.ActivationDescriptor, error) {
	switch c {
	case FuseNone:
		return nil, nil
	case FuseRelu:
		return &network.ActivationDescriptor{Function: network.ActivationReLu}, nil
	case FuseRelu1:
		return &network.ActivationDescriptor{Function: network.ActivationBoundedReLu, A: 1, B: -1}, nil
	case FuseRelu6:
		return &network.ActivationDescriptor{Function: network.ActivationBoundedReLu, A: 6, B: 0}, nil
	}
	return nil, ErrActivationFailed
}

// GetOptionalInputActivation reads the fused activation code at the input inputIndex. An absent input
// means FuseNone.
func GetOptionalInputActivation(op *hal.Operation, inputIndex int, model *hal.Model) (FuseCode, error) {
	opName := op.Type.String()
	operand, found, err := model.OptionalInputOperand(op, inputIndex)
	if err != nil {
		return FuseNone, WrapMalformed(err, opName, "invalid activation input %d", inputIndex)
	}
	if !found {
		return FuseNone, nil
	}
	if operand.Type != hal.OperandTypeInt32 {
		return FuseNone, Malformedf(opName, "activation input %d must be an INT32 scalar, got %s", inputIndex, operand)
	}
	value, err := model.Int32Scalar(operand)
	if err != nil {
		return FuseNone, WrapMalformed(err, opName, "invalid activation input %d", inputIndex)
	}
	return FuseCode(value), nil
}

// ActivationPlan is a fused activation that has been checked against the backend, but not yet added to the
// network.
type ActivationPlan struct {
	desc *network.ActivationDescriptor
	info network.TensorInfo
	name string
}

// PlanActivation builds the descriptor for the activation code and checks its support for an input and output
// of the given TensorInfo. An unrecognized code fails with ErrActivationFailed as cause.
func PlanActivation(ctx *Context, opName string, code FuseCode, info network.TensorInfo) (*ActivationPlan, error) {
	desc, err := code.ActivationDescriptor()
	if err != nil {
		return nil, WrapUnsupported(err, opName, "unknown fused activation code %d", int32(code))
	}
	plan := &ActivationPlan{desc: desc, info: info, name: fmt.Sprintf("%s:%s", opName, code)}
	if desc == nil {
		return plan, nil
	}
	err = IsLayerSupported(ctx, opName, func(b backends.Backend) (bool, string) {
		return b.IsActivationSupported(info, info, desc)
	})
	if err != nil {
		return nil, WrapUnsupported(ErrActivationFailed, opName, "fused activation %s: %v", code, err)
	}
	return plan, nil
}

// IsNone returns whether there is no activation to add.
func (p *ActivationPlan) IsNone() bool { return p.desc == nil }

// Apply appends the activation after the output 0 of start, and returns the last layer: start itself if
// there is no activation.
func (p *ActivationPlan) Apply(ctx *Context, start *network.Layer) *network.Layer {
	start.OutputSlot(0).SetTensorInfo(p.info)
	if p.desc == nil {
		return start
	}
	activation := ctx.Network.AddLayer(network.LayerTypeActivation, p.desc, p.name)
	start.OutputSlot(0).Connect(activation.InputSlot(0))
	return activation
}
