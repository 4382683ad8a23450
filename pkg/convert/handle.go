// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/backends/shapeinference"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/pkg/errors"
)

// TensorInfoForOperand returns the TensorInfo of the operand: its dimensions, element type and, for quantized
// operands, scale and zero point.
func TensorInfoForOperand(operand *hal.Operand) (network.TensorInfo, error) {
	dtype := operand.Type.DType()
	if dtype == dtypes.InvalidDType {
		return network.TensorInfo{}, errors.Errorf("operand %s has no tensor representation", operand)
	}
	dims := make([]int, len(operand.Dimensions))
	for ii, dim := range operand.Dimensions {
		dims[ii] = int(dim)
	}
	info := network.MakeTensorInfo(dtype, dims...)
	if operand.Type.IsQuantized() {
		info.QuantizationScale = operand.Scale
		info.QuantizationOffset = operand.ZeroPoint
	}
	return info, nil
}

// LayerInputHandle is the resolution of an operation input: either the output slot of a previous layer, or a
// constant whose layer is only added to the network when the handle is first connected.
//
// An invalid handle carries the reason in Err.
type LayerInputHandle struct {
	ctx        *Context
	operandIdx uint32
	info       network.TensorInfo
	slot       *network.OutputSlot
	constant   *network.ConstTensor
	err        error
}

// IsValid returns whether the input was resolved.
func (h *LayerInputHandle) IsValid() bool {
	return h.err == nil && (h.slot != nil || h.constant != nil)
}

// Err returns why the handle is invalid, or nil.
func (h *LayerInputHandle) Err() error { return h.err }

// TensorInfo of the input.
func (h *LayerInputHandle) TensorInfo() network.TensorInfo { return h.info }

// IsConstant returns whether the input is a constant.
func (h *LayerInputHandle) IsConstant() bool { return h.constant != nil }

// OperandIndex returns the index of the resolved operand.
func (h *LayerInputHandle) OperandIndex() uint32 { return h.operandIdx }

// Connect connects the input to the given input slot, adding the constant layer if needed.
// It panics if the handle is invalid.
func (h *LayerInputHandle) Connect(in *network.InputSlot) {
	if !h.IsValid() {
		exceptions.Panicf("connecting invalid input handle for operand #%d to %s: %v", h.operandIdx, in.Layer(), h.err)
	}
	h.outputSlot().Connect(in)
}

func (h *LayerInputHandle) outputSlot() *network.OutputSlot {
	if h.slot != nil {
		return h.slot
	}
	if slot, found := h.ctx.OutputSlot(h.operandIdx); found {
		// Materialized by another handle of the same operand.
		h.slot = slot
		return slot
	}
	layer := h.ctx.Network.AddConstantLayer(*h.constant, fmt.Sprintf("Constant[%d]", h.operandIdx))
	h.slot = layer.OutputSlot(0)
	h.ctx.outputSlots[h.operandIdx] = h.slot
	return h.slot
}

func invalidHandle(operandIdx uint32, err error) *LayerInputHandle {
	return &LayerInputHandle{operandIdx: operandIdx, err: err}
}

// ConvertToLayerInputHandle resolves the input inputIndex of the operation. Operands produced by previous
// operations (or model inputs) resolve to their registered output slot; constant operands are checked against
// the backend and resolve to a pending constant. It never returns nil: check IsValid.
func ConvertToLayerInputHandle(op *hal.Operation, inputIndex int, model *hal.Model, ctx *Context) *LayerInputHandle {
	opName := op.Type.String()
	operand, err := model.InputOperand(op, inputIndex)
	if err != nil {
		return invalidHandle(0, WrapMalformed(err, opName, "invalid input #%d", inputIndex))
	}
	operandIdx := op.Inputs[inputIndex]
	info, err := TensorInfoForOperand(operand)
	if err != nil {
		return invalidHandle(operandIdx, WrapMalformed(err, opName, "invalid input #%d", inputIndex))
	}
	if slot, found := ctx.OutputSlot(operandIdx); found {
		return &LayerInputHandle{ctx: ctx, operandIdx: operandIdx, info: slot.TensorInfo(), slot: slot}
	}

	switch operand.Lifetime {
	case hal.LifetimeTemporaryVariable, hal.LifetimeModelInput, hal.LifetimeModelOutput:
		return invalidHandle(operandIdx, Malformedf(opName,
			"input #%d (operand #%d %s) is not produced by any previously converted operation",
			inputIndex, operandIdx, operand))

	case hal.LifetimeConstantCopy, hal.LifetimeConstantReference:
		data, err := model.OperandValue(operand)
		if err != nil {
			return invalidHandle(operandIdx, WrapMalformed(err, opName, "invalid constant input #%d", inputIndex))
		}
		tensor := network.ConstTensor{Info: info, Data: data}
		if err := tensor.Validate(); err != nil {
			return invalidHandle(operandIdx, WrapMalformed(err, opName, "invalid constant input #%d", inputIndex))
		}
		err = IsLayerSupported(ctx, opName, func(b backends.Backend) (bool, string) {
			return b.IsConstantSupported(info)
		})
		if err != nil {
			return invalidHandle(operandIdx, err)
		}
		return &LayerInputHandle{ctx: ctx, operandIdx: operandIdx, info: info, constant: &tensor}

	default:
		return invalidHandle(operandIdx, Malformedf(opName, "input #%d (operand #%d) has unsupported lifetime %s",
			inputIndex, operandIdx, operand.Lifetime))
	}
}

// InputHandles resolves the given inputs of the operation, returning the first failure.
func InputHandles(op *hal.Operation, model *hal.Model, ctx *Context, inputIndices ...int) ([]*LayerInputHandle, error) {
	handles := make([]*LayerInputHandle, len(inputIndices))
	for ii, inputIdx := range inputIndices {
		handles[ii] = ConvertToLayerInputHandle(op, inputIdx, model, ctx)
		if !handles[ii].IsValid() {
			return nil, handles[ii].Err()
		}
	}
	return handles, nil
}

// OutputInfo returns the declared TensorInfo of the output outputIndex of the operation.
func OutputInfo(op *hal.Operation, outputIndex int, model *hal.Model) (network.TensorInfo, error) {
	opName := op.Type.String()
	operand, err := model.OutputOperand(op, outputIndex)
	if err != nil {
		return network.TensorInfo{}, WrapMalformed(err, opName, "could not read output %d", outputIndex)
	}
	info, err := TensorInfoForOperand(operand)
	if err != nil {
		return network.TensorInfo{}, WrapMalformed(err, opName, "invalid output %d", outputIndex)
	}
	return info, nil
}

// CompleteOutputInfo reads the declared output outputIndex and reconciles it with the inferred one.
func CompleteOutputInfo(op *hal.Operation, outputIndex int, model *hal.Model, inferred network.TensorInfo) (network.TensorInfo, error) {
	declared, err := OutputInfo(op, outputIndex, model)
	if err != nil {
		return declared, err
	}
	completed, err := shapeinference.CompleteOutputInfo(declared, inferred)
	if err != nil {
		return declared, WrapMalformed(err, op.Type.String(), "invalid output %d", outputIndex)
	}
	return completed, nil
}
