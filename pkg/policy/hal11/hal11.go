// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package hal11 converts the operations of the 1.1 operation set.
//
// Operations already present in 1.0 are delegated to the hal10 policy, with the model seen as a 1.0 model.
// The operations introduced in 1.1 are converted here: DIV, SUB, MEAN, PAD, SPACE_TO_BATCH_ND, SQUEEZE,
// STRIDED_SLICE, TRANSPOSE and BATCH_TO_SPACE_ND.
package hal11

import (
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/convert"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/gomlx/nndriver/pkg/policy/hal10"
	"github.com/gomlx/nndriver/pkg/support/xslices"
)

// PolicyName is used in error messages.
const PolicyName = "hal_1_1"

// Policy returns a new Policy with the 1.1 converters, delegating 1.0 operations to hal10.Policy.
func Policy() *convert.Policy {
	p := convert.NewPolicy(PolicyName, hal.V1_1)
	p.Delegate(convert.Delegation{
		Name:      "compliant with 1.0",
		Compliant: CompliantWithV1_0,
		Translate: ConvertToV1_0,
		Target:    hal10.Policy(),
	})
	p.Register(hal.OperationTypeDiv, ConvertDiv)
	p.Register(hal.OperationTypeSub, ConvertSub)
	p.Register(hal.OperationTypeMean, ConvertMean)
	p.Register(hal.OperationTypePad, ConvertPad)
	p.Register(hal.OperationTypeSpaceToBatchND, ConvertSpaceToBatchNd)
	p.Register(hal.OperationTypeSqueeze, ConvertSqueeze)
	p.Register(hal.OperationTypeStridedSlice, ConvertStridedSlice)
	p.Register(hal.OperationTypeTranspose, ConvertTranspose)
	p.Register(hal.OperationTypeBatchToSpaceND, ConvertBatchToSpaceNd)
	return p
}

// CompliantWithV1_0 returns whether the operation exists in the 1.0 operation set.
func CompliantWithV1_0(op *hal.Operation, _ *hal.Model) bool {
	return op.Type.IsValid() && op.Type.Version() == hal.V1_0
}

// ConvertToV1_0 returns the operation and a 1.0 view of the model: the version is set to 1.0 and the
// float32 to float16 relaxation, which doesn't exist in 1.0, is dropped. The model is not modified.
func ConvertToV1_0(op *hal.Operation, model *hal.Model) (*hal.Operation, *hal.Model) {
	view := *model
	view.Version = hal.V1_0
	view.RelaxComputationFloat32toFloat16 = false
	return op, &view
}

// ConvertDiv converts DIV: two broadcast compatible inputs and an optional fused activation at input 2.
func ConvertDiv(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convert.ConvertElementwiseBinary(op, model, ctx, network.LayerTypeDivision,
		func(b backends.Backend, input0, input1, output network.TensorInfo) (bool, string) {
			return b.IsDivisionSupported(input0, input1, output)
		})
}

// ConvertSub converts SUB: two broadcast compatible inputs and an optional fused activation at input 2.
func ConvertSub(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convert.ConvertElementwiseBinary(op, model, ctx, network.LayerTypeSubtraction,
		func(b backends.Backend, input0, input1, output network.TensorInfo) (bool, string) {
			return b.IsSubtractionSupported(input0, input1, output)
		})
}

// int32Operand reads the values and the dimensions of a constant TENSOR_INT32 input.
func int32Operand(op *hal.Operation, inputIndex int, model *hal.Model, name string) (values []int32, dims []int, err error) {
	opName := op.Type.String()
	operand, err := model.InputOperand(op, inputIndex)
	if err != nil {
		return nil, nil, convert.WrapMalformed(err, opName, "could not read %s operand", name)
	}
	values, err = model.Int32Values(operand)
	if err != nil {
		return nil, nil, convert.WrapMalformed(err, opName, "%s operand has invalid values", name)
	}
	return values, xslices.Ints(operand.Dimensions), nil
}

// finishSingleInput checks the backend support of the single input layer described by desc and, if supported,
// adds it and tracks its output.
func finishSingleInput(op *hal.Operation, ctx *convert.Context, input *convert.LayerInputHandle,
	desc network.Descriptor, output network.TensorInfo,
	query func(b backends.Backend, input, output network.TensorInfo) (bool, string)) error {
	err := convert.IsLayerSupported(ctx, op.Type.String(), func(b backends.Backend) (bool, string) {
		return query(b, input.TensorInfo(), output)
	})
	if err != nil {
		return err
	}
	layer := ctx.Network.AddLayer(desc.LayerType(), desc, convert.LayerName(op))
	input.Connect(layer.InputSlot(0))
	return ctx.TrackOutputSlot(op, 0, layer, 0, output)
}
