// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hal11

import (
	"slices"

	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/backends/shapeinference"
	"github.com/gomlx/nndriver/pkg/convert"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/gomlx/nndriver/pkg/support/xslices"
)

// ConvertMean converts MEAN: input 0 is the tensor, input 1 the TENSOR_INT32 axes (negative values allowed,
// duplicates ignored) and input 2 the INT32 "keep dims" flag (any non-zero value keeps the reduced axes).
func ConvertMean(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	inputInfo := input.TensorInfo()
	axisValues, _, err := int32Operand(op, 1, model, "axis")
	if err != nil {
		return err
	}
	axes, err := shapeinference.NormalizeAxes(axisValues, inputInfo.Rank())
	if err != nil {
		return convert.WrapMalformed(err, opName, "input 1 has invalid values")
	}
	keepDims, err := model.InputInt32(op, 2)
	if err != nil {
		return convert.WrapMalformed(err, opName, "could not read input 2")
	}
	desc := &network.MeanDescriptor{Axis: axes, KeepDims: keepDims != 0}
	inferred, err := shapeinference.MeanOp(inputInfo, desc.Axis, desc.KeepDims)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid input")
	}
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	return finishSingleInput(op, ctx, input, desc, output,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsMeanSupported(input, output, desc)
		})
}

// ConvertPad converts PAD: input 0 is the tensor, and input 1 the TENSOR_INT32 paddings of shape [rank, 2],
// with the non-negative (before, after) padding of each axis.
func ConvertPad(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	inputInfo := input.TensorInfo()
	rank := inputInfo.Rank()
	paddings, paddingsDims, err := int32Operand(op, 1, model, "paddings")
	if err != nil {
		return err
	}
	if err := shapeinference.CheckOperandShape("paddings", paddingsDims, rank, 2); err != nil {
		return convert.WrapMalformed(err, opName, "invalid paddings")
	}
	padList, err := shapeinference.PadList(paddings, rank)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid paddings")
	}
	desc := &network.PadDescriptor{PadList: padList}
	inferred, err := shapeinference.PadOp(inputInfo, padList)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid paddings")
	}
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	return finishSingleInput(op, ctx, input, desc, output,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsPadSupported(input, output, desc)
		})
}

// ConvertSqueeze converts SQUEEZE into a Reshape: input 0 is the tensor and the optional input 1 the
// TENSOR_INT32 axes to squeeze, all by default. Only listed axes of dimension 1 are removed.
func ConvertSqueeze(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	inputInfo := input.TensorInfo()
	if err := shapeinference.CheckRankAtMost(inputInfo, shapeinference.MaxRank); err != nil {
		return convert.WrapUnsupported(err, opName, "invalid input")
	}
	axes, err := squeezeAxes(op, model, inputInfo.Rank())
	if err != nil {
		return err
	}
	inferred := shapeinference.SqueezeOp(inputInfo, axes)
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	desc := &network.ReshapeDescriptor{TargetShape: inferred.Dimensions}
	return finishSingleInput(op, ctx, input, desc, output,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsReshapeSupported(input, output, desc)
		})
}

// squeezeAxes returns the normalized axes of the optional input 1 of SQUEEZE, or all axes if it is absent.
func squeezeAxes(op *hal.Operation, model *hal.Model, rank int) ([]int, error) {
	opName := op.Type.String()
	_, found, err := model.OptionalInputOperand(op, 1)
	if err != nil {
		return nil, convert.WrapMalformed(err, opName, "invalid axis operand")
	}
	if !found {
		return shapeinference.SequenceAxes(rank), nil
	}
	values, _, err := int32Operand(op, 1, model, "axis")
	if err != nil {
		return nil, err
	}
	axes, err := shapeinference.NormalizeAxes(values, rank)
	if err != nil {
		return nil, convert.WrapMalformed(err, opName, "invalid axis operand")
	}
	return axes, nil
}

// ConvertStridedSlice converts STRIDED_SLICE: input 0 is the tensor, inputs 1, 2 and 3 the TENSOR_INT32 begin,
// end and strides (one value per axis, strides non-zero), and inputs 4, 5 and 6 the INT32 begin, end and
// shrink axis masks.
func ConvertStridedSlice(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	inputInfo := input.TensorInfo()
	rank := inputInfo.Rank()
	if err := shapeinference.CheckRankAtMost(inputInfo, shapeinference.MaxRank); err != nil {
		return convert.WrapUnsupported(err, opName, "invalid input")
	}

	var params [3][]int
	for ii, name := range []string{"begin", "end", "strides"} {
		values, _, err := int32Operand(op, ii+1, model, name)
		if err != nil {
			return err
		}
		params[ii] = xslices.Ints(values)
	}
	begin, end, strides := params[0], params[1], params[2]
	if slices.Contains(strides, 0) {
		return convert.Malformedf(opName, "stride must be non-zero, got %v", strides)
	}
	for ii, values := range params {
		if len(values) != rank {
			return convert.Malformedf(opName, "operand %d has %d values, expected one per axis of the input %s",
				ii+1, len(values), inputInfo)
		}
	}

	desc := &network.StridedSliceDescriptor{Begin: begin, End: end, Stride: strides, DataLayout: ctx.Layout}
	var err error
	for ii, mask := range []*int32{&desc.BeginMask, &desc.EndMask, &desc.ShrinkAxisMask} {
		*mask, err = model.InputInt32(op, 4+ii)
		if err != nil {
			return convert.WrapMalformed(err, opName, "could not read input %d", 4+ii)
		}
	}
	inferred, err := shapeinference.StridedSliceOp(inputInfo, begin, end, strides,
		desc.BeginMask, desc.EndMask, desc.ShrinkAxisMask)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid slice")
	}
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	return finishSingleInput(op, ctx, input, desc, output,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsStridedSliceSupported(input, output, desc)
		})
}

// supportedPermutations are the only permutations accepted by TRANSPOSE: NHWC to NCHW, NCHW to NHWC, and
// [3, 2, 0, 1].
var supportedPermutations = [][]int{{0, 3, 1, 2}, {0, 2, 3, 1}, {3, 2, 0, 1}}

// SupportedPermutations returns a copy of the permutations TRANSPOSE accepts.
func SupportedPermutations() [][]int {
	perms := make([][]int, len(supportedPermutations))
	for ii, perm := range supportedPermutations {
		perms[ii] = slices.Clone(perm)
	}
	return perms
}

// TransposePermutation returns the permutation of TRANSPOSE: the optional input 1, or the reverse of the axes
// if it is absent.
func TransposePermutation(op *hal.Operation, model *hal.Model, rank int) (network.PermutationVector, error) {
	opName := op.Type.String()
	_, found, err := model.OptionalInputOperand(op, 1)
	if err != nil {
		return nil, convert.WrapMalformed(err, opName, "invalid perm operand")
	}
	if !found {
		return shapeinference.DefaultPermutation(rank), nil
	}
	values, dims, err := int32Operand(op, 1, model, "perm")
	if err != nil {
		return nil, err
	}
	if err := shapeinference.CheckOperandShape("perm", dims, rank); err != nil {
		return nil, convert.WrapMalformed(err, opName, "invalid perm operand")
	}
	return xslices.Ints(values), nil
}

// ConvertTranspose converts TRANSPOSE into a Permute: input 0 is the tensor and the optional input 1 the
// TENSOR_INT32 permutation. Only the permutations listed by SupportedPermutations are converted.
func ConvertTranspose(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	inputInfo := input.TensorInfo()
	if err := shapeinference.CheckRankAtMost(inputInfo, shapeinference.MaxRank); err != nil {
		return convert.WrapUnsupported(err, opName, "invalid input")
	}
	perm, err := TransposePermutation(op, model, inputInfo.Rank())
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(supportedPermutations, perm.IsEqual) {
		return convert.Unsupportedf(opName, "only %v permutations are supported, got %v", supportedPermutations, perm)
	}
	desc := &network.PermuteDescriptor{DimMappings: perm}
	inferred, err := shapeinference.PermuteOp(inputInfo, perm)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid permutation")
	}
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	return finishSingleInput(op, ctx, input, desc, output,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsPermuteSupported(input, output, desc)
		})
}

// ConvertSpaceToBatchNd converts SPACE_TO_BATCH_ND: input 0 is a 4D tensor, input 1 the TENSOR_INT32 block
// shape with one value >= 1 per spatial axis, and input 2 the TENSOR_INT32 paddings of shape [2, 2].
func ConvertSpaceToBatchNd(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	inputInfo := input.TensorInfo()
	if err := shapeinference.CheckRankEquals(inputInfo, 4); err != nil {
		return convert.WrapUnsupported(err, opName, "invalid input")
	}
	spatialDims := inputInfo.Rank() - 2

	blockValues, blockDims, err := int32Operand(op, 1, model, "block shape")
	if err != nil {
		return err
	}
	if err := shapeinference.CheckOperandShape("block shape", blockDims, spatialDims); err != nil {
		return convert.WrapMalformed(err, opName, "invalid block shape")
	}
	blockShape, err := shapeinference.BlockShape(blockValues, spatialDims)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid block shape")
	}
	paddings, paddingsDims, err := int32Operand(op, 2, model, "paddings")
	if err != nil {
		return err
	}
	if err := shapeinference.CheckOperandShape("paddings", paddingsDims, spatialDims, 2); err != nil {
		return convert.WrapMalformed(err, opName, "invalid paddings")
	}
	padList, err := shapeinference.PadList(paddings, spatialDims)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid paddings")
	}

	desc := &network.SpaceToBatchNdDescriptor{BlockShape: blockShape, PadList: padList, DataLayout: ctx.Layout}
	inferred, err := shapeinference.SpaceToBatchNdOp(inputInfo, blockShape, padList, desc.DataLayout)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid input")
	}
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	return finishSingleInput(op, ctx, input, desc, output,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsSpaceToBatchNdSupported(input, output, desc)
		})
}

// ConvertBatchToSpaceNd converts BATCH_TO_SPACE_ND: input 0 is a 4D tensor and input 1 the TENSOR_INT32 block
// shape with values >= 1. The operation has no crops, the descriptor crops are always zero.
func ConvertBatchToSpaceNd(op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	opName := op.Type.String()
	input := convert.ConvertToLayerInputHandle(op, 0, model, ctx)
	if !input.IsValid() {
		return input.Err()
	}
	inputInfo := input.TensorInfo()
	if err := shapeinference.CheckRankEquals(inputInfo, 4); err != nil {
		return convert.WrapUnsupported(err, opName, "invalid input")
	}
	spatialDims := inputInfo.Rank() - 2

	blockValues, blockDims, err := int32Operand(op, 1, model, "block shape")
	if err != nil {
		return err
	}
	if err := shapeinference.CheckOperandShape("block shape", blockDims, spatialDims); err != nil {
		return convert.WrapMalformed(err, opName, "invalid block shape")
	}
	blockShape, err := shapeinference.BlockShape(blockValues, spatialDims)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid block shape")
	}

	desc := &network.BatchToSpaceNdDescriptor{
		BlockShape: blockShape,
		Crops:      make([]network.PadPair, 2),
		DataLayout: ctx.Layout,
	}
	inferred, err := shapeinference.BatchToSpaceNdOp(inputInfo, blockShape, desc.Crops, desc.DataLayout)
	if err != nil {
		return convert.WrapMalformed(err, opName, "invalid input")
	}
	output, err := convert.CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	return finishSingleInput(op, ctx, input, desc, output,
		func(b backends.Backend, input, output network.TensorInfo) (bool, string) {
			return b.IsBatchToSpaceNdSupported(input, output, desc)
		})
}
