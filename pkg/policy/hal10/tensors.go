// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hal10

import (
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/backends/shapeinference"
	"github.com/gomlx/nndriver/pkg/convert"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/gomlx/nndriver/pkg/support/xslices"
)

// ConvertReshape converts RESHAPE: input 0 is the tensor, input 1 the TENSOR_INT32 target shape, where one
// dimension can be -1.
func ConvertReshape(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	shapeOperand, err := model.InputOperand(op, 1)
	if err != nil {
		return convert.WrapMalformed(err, opName, "could not read shape operand")
	}
	values, err := model.Int32Values(shapeOperand)
	if err != nil {
		return convert.WrapMalformed(err, opName, "could not read values of shape operand")
	}
	if err := shapeinference.CheckRankAtMost(input.TensorInfo(), shapeinference.MaxRank); err != nil {
		return convert.WrapUnsupported(err, opName, "invalid input")
	}
	if len(values) > shapeinference.MaxRank {
		return convert.Unsupportedf(opName, "target shape of rank %d greater than %d", len(values), shapeinference.MaxRank)
	}
	target := xslices.Ints(values)
	inferred, err := shapeinference.ReshapeOp(input.TensorInfo(), target)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid target shape %v", target)
	}
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	desc := &network.ReshapeDescriptor{TargetShape: inferred.Dimensions}
	err = convert.IsLayerSupported(ctx, opName, func(b backends.Backend) (bool, string) {
		return b.IsReshapeSupported(input.TensorInfo(), output, desc)
	})
	if err != nil {
		return err
	}
	layer := ctx.Network.AddLayer(network.LayerTypeReshape, desc, convert.LayerName(op))
	input.Connect(layer.InputSlot(0))
	return ctx.TrackOutputSlot(op, 0, layer, 0, output)
}

// ConvertSoftmax converts SOFTMAX: input 0 is the tensor, input 1 the float scalar beta.
func ConvertSoftmax(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	beta, err := model.InputFloat32(op, 1)
	if err != nil {
		return convert.WrapMalformed(err, opName, "could not read beta")
	}
	desc := &network.SoftmaxDescriptor{Beta: beta}
	return convertWithDescriptor(op, model, ctx, input, desc, func(b backends.Backend, output network.TensorInfo) (bool, string) {
		return b.IsSoftmaxSupported(input.TensorInfo(), output, desc)
	})
}

// ConvertL2Normalization converts L2_NORMALIZATION, normalizing over the channels of a 4D input.
func ConvertL2Normalization(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	if err := shapeinference.CheckRankEquals(input.TensorInfo(), 4); err != nil {
		return convert.WrapUnsupported(err, opName, "invalid input")
	}
	desc := &network.L2NormalizationDescriptor{DataLayout: ctx.Layout}
	return convertWithDescriptor(op, model, ctx, input, desc, func(b backends.Backend, output network.TensorInfo) (bool, string) {
		return b.IsL2NormalizationSupported(input.TensorInfo(), output, desc)
	})
}

// convertWithDescriptor finishes the conversion of a single input operation whose output has the same shape
// as its input.
func convertWithDescriptor(op *hal.Operation, model *hal.Model, ctx *convert.Context, input *convert.LayerInputHandle,
	desc network.Descriptor, query func(b backends.Backend, output network.TensorInfo) (bool, string)) error {
	output, err := convert.CompleteOutputInfo(op, 0, model, input.TensorInfo())
	if err != nil {
		return err
	}
	err = convert.IsLayerSupported(ctx, op.Type.String(), func(b backends.Backend) (bool, string) {
		return query(b, output)
	})
	if err != nil {
		return err
	}
	layer := ctx.Network.AddLayer(desc.LayerType(), desc, convert.LayerName(op))
	input.Connect(layer.InputSlot(0))
	return ctx.TrackOutputSlot(op, 0, layer, 0, output)
}

// ConvertConcatenation converts CONCATENATION: inputs 0 to n-2 are the tensors to concatenate, and the last
// input is the INT32 axis, which can be negative.
func ConvertConcatenation(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	numViews := len(op.Inputs) - 1
	if numViews < 1 {
		return convert.Malformedf(opName, "requires at least one tensor and the axis, got %d inputs", len(op.Inputs))
	}
	inputs, err := convert.InputHandles(op, model, ctx, xslices.Iota(0, numViews)...)
	if err != nil {
		return err
	}
	axis, err := model.InputInt32(op, numViews)
	if err != nil {
		return convert.WrapMalformed(err, opName, "could not read axis")
	}
	infos := make([]network.TensorInfo, numViews)
	for ii, input := range inputs {
		infos[ii] = input.TensorInfo()
		if err := shapeinference.CheckRankAtMost(infos[ii], shapeinference.MaxRank); err != nil {
			return convert.WrapUnsupported(err, opName, "invalid input %d", ii)
		}
	}
	axes, err := shapeinference.NormalizeAxes([]int32{axis}, infos[0].Rank())
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid axis")
	}
	inferred, err := shapeinference.ConcatOp(infos, axes[0])
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid inputs")
	}
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	desc := &network.ConcatDescriptor{Axis: axes[0], NumViews: numViews}
	err = convert.IsLayerSupported(ctx, opName, func(b backends.Backend) (bool, string) {
		return b.IsConcatSupported(infos, output, desc)
	})
	if err != nil {
		return err
	}
	layer := ctx.Network.AddLayer(network.LayerTypeConcat, desc, convert.LayerName(op))
	for ii, input := range inputs {
		input.Connect(layer.InputSlot(ii))
	}
	return ctx.TrackOutputSlot(op, 0, layer, 0, output)
}
