// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package hal10 converts the operations of the 1.0 operation set.
//
// Supported: ADD, MUL, FLOOR, LOGISTIC, RELU, RELU1, RELU6, TANH, RESHAPE, SOFTMAX, CONCATENATION,
// DEQUANTIZE and L2_NORMALIZATION. Other 1.0 operations are reported as unsupported.
package hal10

import (
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/convert"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
)

// PolicyName is used in error messages.
const PolicyName = "hal_1_0"

// Policy returns a new Policy with the 1.0 converters.
func Policy() *convert.Policy {
	p := convert.NewPolicy(PolicyName, hal.V1_0)
	p.Register(hal.OperationTypeAdd, ConvertAdd)
	p.Register(hal.OperationTypeMul, ConvertMul)
	p.Register(hal.OperationTypeFloor, ConvertFloor)
	p.Register(hal.OperationTypeLogistic, ConvertLogistic)
	p.Register(hal.OperationTypeRelu, ConvertRelu)
	p.Register(hal.OperationTypeRelu1, ConvertRelu1)
	p.Register(hal.OperationTypeRelu6, ConvertRelu6)
	p.Register(hal.OperationTypeTanh, ConvertTanh)
	p.Register(hal.OperationTypeReshape, ConvertReshape)
	p.Register(hal.OperationTypeSoftmax, ConvertSoftmax)
	p.Register(hal.OperationTypeConcatenation, ConvertConcatenation)
	p.Register(hal.OperationTypeDequantize, ConvertDequantize)
	p.Register(hal.OperationTypeL2Normalization, ConvertL2Normalization)
	return p
}

// ConvertAdd converts ADD: two broadcast compatible inputs and a fused activation.
func ConvertAdd(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convert.ConvertElementwiseBinary(op, model, ctx, network.LayerTypeAddition,
		func(b backends.Backend, input0, input1, output network.TensorInfo) (bool, string) {
			return b.IsAdditionSupported(input0, input1, output)
		})
}

// ConvertMul converts MUL: two broadcast compatible inputs and a fused activation.
func ConvertMul(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convert.ConvertElementwiseBinary(op, model, ctx, network.LayerTypeMultiplication,
		func(b backends.Backend, input0, input1, output network.TensorInfo) (bool, string) {
			return b.IsMultiplicationSupported(input0, input1, output)
		})
}

// unaryQuery asks the backend about a layer with one input and one output.
type unaryQuery func(b backends.Backend, input, output network.TensorInfo) (bool, string)

// convertUnary converts an operation with input 0 and output 0 of the same shape into one layer.
func convertUnary(op *hal.Operation, model *hal.Model, ctx *convert.Context, layerType network.LayerType,
	desc network.Descriptor, query unaryQuery) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	// Only the dimensions are inferred, the output dtype is the declared one.
	output, err := convert.CompleteOutputInfo(op, 0, model, input.TensorInfo())
	if err != nil {
		return err
	}
	err = convert.IsLayerSupported(ctx, opName, func(b backends.Backend) (bool, string) {
		return query(b, input.TensorInfo(), output)
	})
	if err != nil {
		return err
	}
	layer := ctx.Network.AddLayer(layerType, desc, convert.LayerName(op))
	input.Connect(layer.InputSlot(0))
	return ctx.TrackOutputSlot(op, 0, layer, 0, output)
}

// ConvertFloor converts FLOOR.
func ConvertFloor(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convertUnary(op, model, ctx, network.LayerTypeFloor, nil,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsFloorSupported(input, output)
		})
}

// ConvertDequantize converts DEQUANTIZE: a quantized input into a float output of the same shape.
func ConvertDequantize(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convertUnary(op, model, ctx, network.LayerTypeDequantize, nil,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsDequantizeSupported(input, output)
		})
}

func convertActivation(op *hal.Operation, model *hal.Model, ctx *convert.Context, desc *network.ActivationDescriptor) error {
	return convertUnary(op, model, ctx, network.LayerTypeActivation, desc,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsActivationSupported(input, output, desc)
		})
}

// ConvertLogistic converts LOGISTIC to a Sigmoid activation.
func ConvertLogistic(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convertActivation(op, model, ctx, &network.ActivationDescriptor{Function: network.ActivationSigmoid})
}

// ConvertRelu converts RELU.
func ConvertRelu(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convertActivation(op, model, ctx, &network.ActivationDescriptor{Function: network.ActivationReLu})
}

// ConvertRelu1 converts RELU1, clamping to [-1, 1].
func ConvertRelu1(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convertActivation(op, model, ctx, &network.ActivationDescriptor{Function: network.ActivationBoundedReLu, A: 1, B: -1})
}

// ConvertRelu6 converts RELU6, clamping to [0, 6].
func ConvertRelu6(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convertActivation(op, model, ctx, &network.ActivationDescriptor{Function: network.ActivationBoundedReLu, A: 6})
}

// ConvertTanh converts TANH.
func ConvertTanh(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	return convertActivation(op, model, ctx, &network.ActivationDescriptor{Function: network.ActivationTanH, A: 1, B: 1})
}
