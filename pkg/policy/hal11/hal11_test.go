// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hal11

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/backends/reference"
	"github.com/gomlx/nndriver/pkg/convert"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newContext creates a context with the reference backend (with the given configuration) and the model inputs.
func newContext(t *testing.T, model *hal.Model, config string) *convert.Context {
	t.Helper()
	require.NoError(t, model.Validate())
	backend, err := reference.New(config)
	require.NoError(t, err)
	ctx := convert.NewContext(network.New(t.Name()), backend)
	require.NoError(t, convert.AddInputLayers(model, ctx))
	return ctx
}

// convertAll converts all operations of the model, returning the first error.
func convertAll(model *hal.Model, ctx *convert.Context) error {
	policy := Policy()
	for ii := range model.Operations {
		if err := policy.ConvertOperation(&model.Operations[ii], model, ctx); err != nil {
			return err
		}
	}
	return nil
}

func convertModel(t *testing.T, model *hal.Model, config string) (*convert.Context, error) {
	t.Helper()
	ctx := newContext(t, model, config)
	return ctx, convertAll(model, ctx)
}

func producer(t *testing.T, ctx *convert.Context, operandIdx uint32) *network.Layer {
	t.Helper()
	slot, found := ctx.OutputSlot(operandIdx)
	require.True(t, found, "operand #%d not registered", operandIdx)
	return slot.Layer()
}

func outputDims(t *testing.T, ctx *convert.Context, operandIdx uint32) []int {
	t.Helper()
	slot, found := ctx.OutputSlot(operandIdx)
	require.True(t, found, "operand #%d not registered", operandIdx)
	return slot.TensorInfo().Dimensions
}

func countLayers(net *network.Network, layerType network.LayerType) int {
	var count int
	for _, layer := range net.Layers() {
		if layer.Type() == layerType {
			count++
		}
	}
	return count
}

// unaryModel builds a model with one operation of the given type on a float32 input, with extra inputs
// created by addParams.
func unaryModel(opType hal.OperationType, inputDims []uint32, addParams func(b *hal.ModelBuilder) []uint32,
	outputDims ...uint32) (*hal.Model, uint32) {
	b := hal.NewModelBuilder(hal.V1_1)
	x := b.AddInput(hal.OperandTypeTensorFloat32, inputDims...)
	inputs := []uint32{x}
	if addParams != nil {
		inputs = append(inputs, addParams(b)...)
	}
	out := b.AddOutput(hal.OperandTypeTensorFloat32, outputDims...)
	b.AddOperation(opType, inputs, []uint32{out})
	return b.Build(), out
}

func int32s(values ...int32) func(b *hal.ModelBuilder) []uint32 {
	return func(b *hal.ModelBuilder) []uint32 {
		return []uint32{b.AddInt32Constant(values)}
	}
}

func TestPolicy(t *testing.T) {
	p := Policy()
	assert.Len(t, p.SupportedOperations(), 13+9)
	for _, opType := range []hal.OperationType{hal.OperationTypeDiv, hal.OperationTypeTranspose, hal.OperationTypeAdd} {
		assert.True(t, p.Handles(opType), "operation %s", opType)
	}

	op := &hal.Operation{Type: hal.OperationTypeSoftmax}
	model := &hal.Model{Version: hal.V1_1, RelaxComputationFloat32toFloat16: true}
	assert.True(t, CompliantWithV1_0(op, model))
	assert.False(t, CompliantWithV1_0(&hal.Operation{Type: hal.OperationTypeMean}, model))
	op10, model10 := ConvertToV1_0(op, model)
	assert.Equal(t, op, op10)
	assert.Equal(t, hal.V1_0, model10.Version)
	assert.False(t, model10.RelaxComputationFloat32toFloat16)
	assert.Equal(t, hal.V1_1, model.Version)
	assert.True(t, model.RelaxComputationFloat32toFloat16)
}

func TestDelegation(t *testing.T) {
	b := hal.NewModelBuilder(hal.V1_1)
	x := b.AddInput(hal.OperandTypeTensorFloat32, 2, 2)
	y := b.AddInput(hal.OperandTypeTensorFloat32, 2, 2)
	sum := b.AddTensor(hal.OperandTypeTensorFloat32, 2, 2)
	diff := b.AddOutput(hal.OperandTypeTensorFloat32, 2, 2)
	b.AddOperation(hal.OperationTypeAdd, []uint32{x, y}, []uint32{sum})
	b.AddOperation(hal.OperationTypeSub, []uint32{sum, y}, []uint32{diff})
	b.RelaxFloat32ToFloat16(true)
	ctx, err := convertModel(t, b.Build(), "")
	require.NoError(t, err)
	assert.Equal(t, network.LayerTypeAddition, producer(t, ctx, sum).Type())
	assert.Equal(t, network.LayerTypeSubtraction, producer(t, ctx, diff).Type())

	// 1.0 operations that are not supported fail in the 1.0 policy.
	model, _ := unaryModel(hal.OperationTypeMaxPool2D, []uint32{1, 4, 4, 3}, nil, 1, 4, 4, 3)
	_, err = convertModel(t, model, "")
	require.Error(t, err)
	assert.True(t, convert.IsUnsupported(err))
	assert.Equal(t, "hal_1_0: Operation type MAX_POOL_2D not supported", errors.Cause(err).Error())
}

func TestDivSub(t *testing.T) {
	build := func(opType hal.OperationType, dims0, dims1 []uint32, fuseCode int32) (*hal.Model, uint32) {
		b := hal.NewModelBuilder(hal.V1_1)
		x := b.AddInput(hal.OperandTypeTensorFloat32, dims0...)
		y := b.AddInput(hal.OperandTypeTensorFloat32, dims1...)
		out := b.AddOutput(hal.OperandTypeTensorFloat32)
		b.AddOperation(opType, []uint32{x, y, b.AddInt32Scalar(fuseCode)}, []uint32{out})
		return b.Build(), out
	}

	// Same shapes: no broadcast wiring.
	model, out := build(hal.OperationTypeDiv, []uint32{2, 3}, []uint32{2, 3}, int32(convert.FuseNone))
	ctx, err := convertModel(t, model, "")
	require.NoError(t, err)
	assert.Equal(t, network.LayerTypeDivision, producer(t, ctx, out).Type())
	assert.Equal(t, 0, countLayers(ctx.Network, network.LayerTypeReshape))

	// Lower rank input is reshaped.
	model, out = build(hal.OperationTypeSub, []uint32{3}, []uint32{4, 2, 3}, int32(convert.FuseRelu1))
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	activation := producer(t, ctx, out)
	require.Equal(t, network.LayerTypeActivation, activation.Type())
	assert.Equal(t, []int{4, 2, 3}, outputDims(t, ctx, out))
	sub := activation.InputSlot(0).Connection().Layer()
	require.Equal(t, network.LayerTypeSubtraction, sub.Type())
	reshape := sub.InputSlot(0).Connection().Layer()
	require.Equal(t, network.LayerTypeReshape, reshape.Type())
	assert.Equal(t, []int{1, 1, 3}, reshape.Descriptor().(*network.ReshapeDescriptor).TargetShape)
	assert.Equal(t, network.LayerTypeInput, sub.InputSlot(1).Connection().Layer().Type())

	// Unknown activation codes.
	model, _ = build(hal.OperationTypeDiv, []uint32{2}, []uint32{2}, 7)
	ctx, err = convertModel(t, model, "")
	assert.True(t, errors.Is(err, convert.ErrActivationFailed), "%v", err)
	assert.Equal(t, 2, ctx.Network.NumLayers())

	// Division is only supported for floats by the reference backend.
	b := hal.NewModelBuilder(hal.V1_1)
	x := b.AddInput(hal.OperandTypeTensorQuant8Asymm, 2)
	b.SetQuantization(x, 1, 0)
	out = b.AddOutput(hal.OperandTypeTensorQuant8Asymm, 2)
	b.SetQuantization(out, 1, 0)
	b.AddOperation(hal.OperationTypeDiv, []uint32{x, x}, []uint32{out})
	ctx, err = convertModel(t, b.Build(), "")
	assert.True(t, convert.IsUnsupported(err), "%v", err)
	assert.Equal(t, 1, ctx.Network.NumLayers())
	assert.Equal(t, 1, ctx.NumRegistered())
}

func TestMean(t *testing.T) {
	build := func(axes []int32, keepDims int32) (*hal.Model, uint32) {
		return unaryModel(hal.OperationTypeMean, []uint32{2, 3, 4}, func(b *hal.ModelBuilder) []uint32 {
			return []uint32{b.AddInt32Constant(axes), b.AddInt32Scalar(keepDims)}
		})
	}

	model, out := build([]int32{-1, 2}, 5)
	ctx, err := convertModel(t, model, "")
	require.NoError(t, err)
	desc := producer(t, ctx, out).Descriptor().(*network.MeanDescriptor)
	assert.Equal(t, []int{2}, desc.Axis)
	assert.True(t, desc.KeepDims)
	assert.Equal(t, []int{2, 3, 1}, outputDims(t, ctx, out))

	// Negative values also keep the reduced axes.
	model, out = build([]int32{2}, -1)
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	desc = producer(t, ctx, out).Descriptor().(*network.MeanDescriptor)
	assert.True(t, desc.KeepDims)
	assert.Equal(t, []int{2, 3, 1}, outputDims(t, ctx, out))

	model, out = build([]int32{0, -3, 1}, 0)
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	desc = producer(t, ctx, out).Descriptor().(*network.MeanDescriptor)
	assert.Equal(t, []int{0, 1}, desc.Axis)
	assert.False(t, desc.KeepDims)
	assert.Equal(t, []int{4}, outputDims(t, ctx, out))

	model, _ = build([]int32{3}, 0)
	ctx, err = convertModel(t, model, "")
	assert.True(t, convert.IsMalformed(err), "%v", err)
	assert.Equal(t, 1, ctx.NumRegistered())

	// Missing keep dims operand.
	model, _ = unaryModel(hal.OperationTypeMean, []uint32{2, 3}, int32s(0))
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsMalformed(err), "%v", err)

	// Keep dims operand with zero elements.
	model, _ = build([]int32{2}, 1)
	keepDimsOperand := &model.Operands[model.Operations[0].Inputs[2]]
	keepDimsOperand.Dimensions = []uint32{0}
	keepDimsOperand.Location.Length = 0
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsMalformed(err), "%v", err)
}

func TestPad(t *testing.T) {
	build := func(paddings []int32, dims ...uint32) (*hal.Model, uint32) {
		return unaryModel(hal.OperationTypePad, []uint32{2, 3}, func(b *hal.ModelBuilder) []uint32 {
			return []uint32{b.AddInt32Constant(paddings, dims...)}
		})
	}
	model, out := build([]int32{1, 1, 0, 2}, 2, 2)
	ctx, err := convertModel(t, model, "")
	require.NoError(t, err)
	desc := producer(t, ctx, out).Descriptor().(*network.PadDescriptor)
	assert.Equal(t, []network.PadPair{{Before: 1, After: 1}, {Before: 0, After: 2}}, desc.PadList)
	assert.Equal(t, []int{4, 5}, outputDims(t, ctx, out))

	for name, tc := range map[string]struct {
		paddings []int32
		dims     []uint32
	}{
		"flat operand":     {[]int32{1, 1, 0, 2}, []uint32{4}},
		"negative padding": {[]int32{1, -1, 0, 2}, []uint32{2, 2}},
		"missing axis":     {[]int32{1, 1}, []uint32{1, 2}},
	} {
		model, _ = build(tc.paddings, tc.dims...)
		ctx, err = convertModel(t, model, "")
		assert.True(t, convert.IsMalformed(err), "%s: %v", name, err)
		assert.Equal(t, 1, ctx.NumRegistered(), name)
		assert.Equal(t, 1, ctx.Network.NumLayers(), name)
	}
}

func TestGateRejectionWithConstantInput(t *testing.T) {
	b := hal.NewModelBuilder(hal.V1_1)
	c := b.AddFloat32Constant([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	out := b.AddOutput(hal.OperandTypeTensorFloat32, 4, 5)
	b.AddOperation(hal.OperationTypePad, []uint32{c, b.AddInt32Constant([]int32{1, 1, 0, 2}, 2, 2)}, []uint32{out})
	model := b.Build()

	ctx, err := convertModel(t, model, "disable=Pad")
	assert.True(t, convert.IsUnsupported(err), "%v", err)
	assert.Equal(t, 0, ctx.Network.NumLayers())
	assert.Equal(t, 0, ctx.NumRegistered())

	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	assert.Equal(t, 2, ctx.Network.NumLayers())
	assert.Equal(t, network.LayerTypeConstant, producer(t, ctx, out).InputSlot(0).Connection().Layer().Type())
}

func TestSqueeze(t *testing.T) {
	model, out := unaryModel(hal.OperationTypeSqueeze, []uint32{1, 3, 1, 5}, nil)
	ctx, err := convertModel(t, model, "")
	require.NoError(t, err)
	layer := producer(t, ctx, out)
	require.Equal(t, network.LayerTypeReshape, layer.Type())
	assert.Equal(t, []int{3, 5}, layer.Descriptor().(*network.ReshapeDescriptor).TargetShape)
	assert.Equal(t, []int{3, 5}, outputDims(t, ctx, out))

	model, out = unaryModel(hal.OperationTypeSqueeze, []uint32{1, 3, 1, 5}, int32s(0))
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 5}, outputDims(t, ctx, out))

	// Listed axes with dimension other than 1 are kept, negative axes are normalized.
	model, out = unaryModel(hal.OperationTypeSqueeze, []uint32{1, 3, 1, 5}, int32s(1, -2))
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, outputDims(t, ctx, out))

	// An omitted axis operand squeezes all axes.
	model, out = unaryModel(hal.OperationTypeSqueeze, []uint32{1, 3, 1, 5}, func(b *hal.ModelBuilder) []uint32 {
		return []uint32{b.AddNoValue(hal.OperandTypeTensorInt32)}
	}, 3, 5)
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, outputDims(t, ctx, out))

	// Round-trip: the output resolves with the declared TensorInfo.
	next := &hal.Operation{Type: hal.OperationTypeFloor, Inputs: []uint32{out}}
	h := convert.ConvertToLayerInputHandle(next, 0, model, ctx)
	require.True(t, h.IsValid())
	declared, err := convert.OutputInfo(&model.Operations[0], 0, model)
	require.NoError(t, err)
	assert.True(t, declared.Equal(h.TensorInfo()))

	// Declared output that doesn't match.
	model, _ = unaryModel(hal.OperationTypeSqueeze, []uint32{1, 3, 1, 5}, int32s(0), 3, 5)
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsMalformed(err), "%v", err)
}

// registerInput adds an input layer bypassing the backend checks, to test converters with inputs the
// backend would reject.
func registerInput(t *testing.T, ctx *convert.Context, operandIdx uint32, info network.TensorInfo) {
	layer := ctx.Network.AddInputLayer(int(operandIdx), "input")
	layer.OutputSlot(0).SetTensorInfo(info)
	require.NoError(t, ctx.RegisterOutputSlot(operandIdx, layer.OutputSlot(0)))
}

func TestRankLimits(t *testing.T) {
	rank5 := []uint32{1, 2, 1, 2, 1}
	for _, tc := range []struct {
		opType hal.OperationType
		params func(b *hal.ModelBuilder) []uint32
	}{
		{hal.OperationTypeSqueeze, nil},
		{hal.OperationTypeTranspose, nil},
		{hal.OperationTypeStridedSlice, func(b *hal.ModelBuilder) []uint32 {
			return []uint32{
				b.AddInt32Constant([]int32{0, 0, 0, 0, 0}), b.AddInt32Constant([]int32{1, 2, 1, 2, 1}),
				b.AddInt32Constant([]int32{1, 1, 1, 1, 1}),
				b.AddInt32Scalar(0), b.AddInt32Scalar(0), b.AddInt32Scalar(0),
			}
		}},
		{hal.OperationTypeSpaceToBatchND, func(b *hal.ModelBuilder) []uint32 {
			return []uint32{b.AddInt32Constant([]int32{1, 1}), b.AddInt32Constant([]int32{0, 0, 0, 0}, 2, 2)}
		}},
		{hal.OperationTypeBatchToSpaceND, int32s(1, 1)},
	} {
		t.Run(tc.opType.String(), func(t *testing.T) {
			model, _ := unaryModel(tc.opType, rank5, tc.params)
			backend, err := reference.New("")
			require.NoError(t, err)
			ctx := convert.NewContext(network.New(t.Name()), backend)
			registerInput(t, ctx, model.InputIndexes[0], network.MakeTensorInfo(dtypes.Float32, 1, 2, 1, 2, 1))
			err = convertAll(model, ctx)
			assert.True(t, convert.IsUnsupported(err), "%v", err)
			assert.Equal(t, 1, ctx.Network.NumLayers())
			assert.Equal(t, 1, ctx.NumRegistered())
		})
	}
}

func TestStridedSlice(t *testing.T) {
	build := func(begin, end, strides []int32, shrinkMask int32) (*hal.Model, uint32) {
		return unaryModel(hal.OperationTypeStridedSlice, []uint32{5, 6}, func(b *hal.ModelBuilder) []uint32 {
			return []uint32{
				b.AddInt32Constant(begin), b.AddInt32Constant(end), b.AddInt32Constant(strides),
				b.AddInt32Scalar(0), b.AddInt32Scalar(0), b.AddInt32Scalar(shrinkMask),
			}
		})
	}
	model, out := build([]int32{1, 0}, []int32{4, 6}, []int32{1, 2}, 0)
	ctx, err := convertModel(t, model, "")
	require.NoError(t, err)
	desc := producer(t, ctx, out).Descriptor().(*network.StridedSliceDescriptor)
	assert.Equal(t, []int{1, 2}, desc.Stride)
	assert.Equal(t, network.NHWC, desc.DataLayout)
	assert.Equal(t, []int{3, 3}, outputDims(t, ctx, out))

	model, out = build([]int32{1, 0}, []int32{2, 6}, []int32{1, 1}, 1)
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), producer(t, ctx, out).Descriptor().(*network.StridedSliceDescriptor).ShrinkAxisMask)
	assert.Equal(t, []int{6}, outputDims(t, ctx, out))

	// Zero strides are rejected, whatever the other arguments.
	for _, tc := range [][3][]int32{
		{{0, 0}, {5, 6}, {1, 0}},
		{{0, 0, 0}, {5}, {0}},
		{{0}, {5, 6}, {0, 0, 1}},
	} {
		model, _ = build(tc[0], tc[1], tc[2], 0)
		ctx, err = convertModel(t, model, "")
		require.Error(t, err)
		assert.True(t, convert.IsMalformed(err))
		assert.Contains(t, err.Error(), "stride must be non-zero")
		assert.Equal(t, 1, ctx.NumRegistered())
	}

	// Wrong number of values.
	model, _ = build([]int32{0}, []int32{5, 6}, []int32{1, 1}, 0)
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsMalformed(err), "%v", err)
}

func TestTranspose(t *testing.T) {
	inputDims := []uint32{1, 2, 3, 4}

	// No perm operand: reverse permutation, which is not one of the supported ones.
	model, _ := unaryModel(hal.OperationTypeTranspose, inputDims, nil)
	perm, err := TransposePermutation(&model.Operations[0], model, 4)
	require.NoError(t, err)
	assert.Equal(t, network.PermutationVector{3, 2, 1, 0}, perm)
	ctx, err := convertModel(t, model, "")
	assert.True(t, convert.IsUnsupported(err), "%v", err)
	assert.Equal(t, 1, ctx.Network.NumLayers())

	model, out := unaryModel(hal.OperationTypeTranspose, inputDims, int32s(0, 3, 1, 2))
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	desc := producer(t, ctx, out).Descriptor().(*network.PermuteDescriptor)
	assert.Equal(t, network.PermutationVector{0, 3, 1, 2}, desc.DimMappings)
	assert.Equal(t, []int{1, 4, 2, 3}, outputDims(t, ctx, out))

	model, out = unaryModel(hal.OperationTypeTranspose, inputDims, int32s(3, 2, 0, 1))
	ctx, err = convertModel(t, model, "")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 1, 2}, outputDims(t, ctx, out))

	model, _ = unaryModel(hal.OperationTypeTranspose, inputDims, int32s(1, 0, 2, 3))
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsUnsupported(err), "%v", err)

	model, _ = unaryModel(hal.OperationTypeTranspose, inputDims, int32s(0, 3, 1))
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsMalformed(err), "%v", err)

	// Changing the returned permutations doesn't change what is accepted.
	perms := SupportedPermutations()
	require.Len(t, perms, 3)
	perms[0][1] = 1
	perms[1] = []int{1, 0, 2, 3}
	assert.Equal(t, [][]int{{0, 3, 1, 2}, {0, 2, 3, 1}, {3, 2, 0, 1}}, SupportedPermutations())
	model, _ = unaryModel(hal.OperationTypeTranspose, inputDims, int32s(1, 0, 2, 3))
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsUnsupported(err), "%v", err)
}

func TestSpaceToBatchNd(t *testing.T) {
	build := func(block, paddings []int32, paddingsDims ...uint32) (*hal.Model, uint32) {
		return unaryModel(hal.OperationTypeSpaceToBatchND, []uint32{1, 4, 4, 3}, func(b *hal.ModelBuilder) []uint32 {
			return []uint32{b.AddInt32Constant(block), b.AddInt32Constant(paddings, paddingsDims...)}
		})
	}
	model, out := build([]int32{2, 2}, []int32{0, 0, 1, 1}, 2, 2)
	ctx, err := convertModel(t, model, "")
	require.NoError(t, err)
	desc := producer(t, ctx, out).Descriptor().(*network.SpaceToBatchNdDescriptor)
	assert.Equal(t, []int{2, 2}, desc.BlockShape)
	assert.Equal(t, []network.PadPair{{Before: 0, After: 0}, {Before: 1, After: 1}}, desc.PadList)
	assert.Equal(t, network.NHWC, desc.DataLayout)
	assert.Equal(t, []int{4, 2, 3, 3}, outputDims(t, ctx, out))

	for name, tc := range map[string]struct {
		block, paddings []int32
		paddingsDims    []uint32
	}{
		"block zero":          {[]int32{2, 0}, []int32{0, 0, 0, 0}, []uint32{2, 2}},
		"block too short":     {[]int32{2}, []int32{0, 0, 0, 0}, []uint32{2, 2}},
		"flat paddings":       {[]int32{2, 2}, []int32{0, 0, 0, 0}, []uint32{4}},
		"negative paddings":   {[]int32{2, 2}, []int32{0, -1, 0, 0}, []uint32{2, 2}},
		"not divisible block": {[]int32{3, 3}, []int32{0, 0, 0, 0}, []uint32{2, 2}},
	} {
		model, _ = build(tc.block, tc.paddings, tc.paddingsDims...)
		_, err = convertModel(t, model, "")
		assert.True(t, convert.IsMalformed(err), "%s: %v", name, err)
	}

	model, _ = unaryModel(hal.OperationTypeSpaceToBatchND, []uint32{4, 4, 3}, func(b *hal.ModelBuilder) []uint32 {
		return []uint32{b.AddInt32Constant([]int32{2, 2}), b.AddInt32Constant([]int32{0, 0, 0, 0}, 2, 2)}
	})
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsUnsupported(err), "%v", err)
}

func TestBatchToSpaceNd(t *testing.T) {
	model, out := unaryModel(hal.OperationTypeBatchToSpaceND, []uint32{4, 2, 2, 3}, int32s(2, 2))
	ctx, err := convertModel(t, model, "")
	require.NoError(t, err)
	desc := producer(t, ctx, out).Descriptor().(*network.BatchToSpaceNdDescriptor)
	assert.Equal(t, []network.PadPair{{Before: 0, After: 0}, {Before: 0, After: 0}}, desc.Crops)
	assert.Equal(t, []int{2, 2}, desc.BlockShape)
	assert.Equal(t, []int{1, 4, 4, 3}, outputDims(t, ctx, out))

	model, _ = unaryModel(hal.OperationTypeBatchToSpaceND, []uint32{4, 2, 2, 3}, int32s(2, 0))
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsMalformed(err), "%v", err)

	// Block shape with the wrong number of values.
	model, _ = unaryModel(hal.OperationTypeBatchToSpaceND, []uint32{4, 2, 2, 3}, int32s(2, 2, 2))
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsMalformed(err), "%v", err)
	assert.Contains(t, err.Error(), "block shape")

	model, _ = unaryModel(hal.OperationTypeBatchToSpaceND, []uint32{4, 2, 3}, int32s(2, 2))
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsUnsupported(err), "%v", err)

	// The rank is checked before the block shape is read.
	model, _ = unaryModel(hal.OperationTypeBatchToSpaceND, []uint32{4, 2, 3}, nil)
	_, err = convertModel(t, model, "")
	assert.True(t, convert.IsUnsupported(err), "%v", err)
}

func TestLayout(t *testing.T) {
	model, out := unaryModel(hal.OperationTypeBatchToSpaceND, []uint32{4, 3, 2, 2}, int32s(2, 2))
	ctx := newContext(t, model, "").WithLayout(network.NCHW)
	require.NoError(t, convertAll(model, ctx))
	desc := producer(t, ctx, out).Descriptor().(*network.BatchToSpaceNdDescriptor)
	assert.Equal(t, network.NCHW, desc.DataLayout)
	assert.Equal(t, []int{1, 3, 4, 4}, outputDims(t, ctx, out))
}
