// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/backends/shapeinference"
	"github.com/gomlx/nndriver/pkg/network"
)

// TensorInfo is an alias for convenience.
type TensorInfo = backends.TensorInfo

// IsInputSupported implements backends.LayerSupport.
func (b *Backend) IsInputSupported(input TensorInfo) (bool, string) {
	return b.checkCommon(network.LayerTypeInput, shapeinference.MaxRank, input)
}

// IsOutputSupported implements backends.LayerSupport.
func (b *Backend) IsOutputSupported(output TensorInfo) (bool, string) {
	return b.checkCommon(network.LayerTypeOutput, shapeinference.MaxRank, output)
}

// IsConstantSupported implements backends.LayerSupport.
func (b *Backend) IsConstantSupported(output TensorInfo) (bool, string) {
	return b.checkCommon(network.LayerTypeConstant, shapeinference.MaxRank, output)
}

// IsActivationSupported implements backends.LayerSupport.
func (b *Backend) IsActivationSupported(input, output TensorInfo, desc *network.ActivationDescriptor) (bool, string) {
	layerType := network.LayerTypeActivation
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, arithmeticDTypes, input, output); !ok {
		return ok, reason
	}
	r := rejection{layerType}
	switch desc.Function {
	case network.ActivationSigmoid, network.ActivationTanH, network.ActivationReLu:
	case network.ActivationBoundedReLu:
		if desc.A < desc.B {
			return r.reject("BoundedReLu upper bound %g is lower than its lower bound %g", desc.A, desc.B)
		}
	default:
		return r.reject("unknown activation function %s", desc.Function)
	}
	if !slices.Equal(input.Dimensions, output.Dimensions) {
		return r.reject("input %s and output %s must have the same shape", input, output)
	}
	return true, ""
}

// isElementwiseSupported checks binary element-wise layers: same dtype, and inputs broadcastable to
// the output shape.
func (b *Backend) isElementwiseSupported(layerType network.LayerType, allowed []dtypes.DType, input0, input1, output TensorInfo) (bool, string) {
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input0, input1, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, allowed, input0, input1, output); !ok {
		return ok, reason
	}
	r := rejection{layerType}
	broadcast, err := shapeinference.BroadcastShapes(input0, input1)
	if err != nil {
		return r.reject("%v", err)
	}
	if !slices.Equal(broadcast.Dimensions, output.Dimensions) {
		return r.reject("inputs %s and %s broadcast to %v, but output is %s", input0, input1, broadcast.Dimensions, output)
	}
	return true, ""
}

// IsAdditionSupported implements backends.LayerSupport.
func (b *Backend) IsAdditionSupported(input0, input1, output TensorInfo) (bool, string) {
	return b.isElementwiseSupported(network.LayerTypeAddition, arithmeticDTypes, input0, input1, output)
}

// IsSubtractionSupported implements backends.LayerSupport.
func (b *Backend) IsSubtractionSupported(input0, input1, output TensorInfo) (bool, string) {
	return b.isElementwiseSupported(network.LayerTypeSubtraction, arithmeticDTypes, input0, input1, output)
}

// IsMultiplicationSupported implements backends.LayerSupport.
func (b *Backend) IsMultiplicationSupported(input0, input1, output TensorInfo) (bool, string) {
	return b.isElementwiseSupported(network.LayerTypeMultiplication, arithmeticDTypes, input0, input1, output)
}

// IsDivisionSupported implements backends.LayerSupport. Quantized division is not supported.
func (b *Backend) IsDivisionSupported(input0, input1, output TensorInfo) (bool, string) {
	return b.isElementwiseSupported(network.LayerTypeDivision, floatDTypes, input0, input1, output)
}

// IsFloorSupported implements backends.LayerSupport.
func (b *Backend) IsFloorSupported(input, output TensorInfo) (bool, string) {
	layerType := network.LayerTypeFloor
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	return checkSameDType(layerType, floatDTypes, input, output)
}

// IsDequantizeSupported implements backends.LayerSupport.
func (b *Backend) IsDequantizeSupported(input, output TensorInfo) (bool, string) {
	layerType := network.LayerTypeDequantize
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	r := rejection{layerType}
	if !input.IsQuantized() {
		return r.reject("input %s is not quantized", input)
	}
	if !slices.Contains(floatDTypes, output.DType) {
		return r.reject("output %s must be a float", output)
	}
	if !slices.Equal(input.Dimensions, output.Dimensions) {
		return r.reject("input %s and output %s must have the same shape", input, output)
	}
	return true, ""
}

// IsMeanSupported implements backends.LayerSupport.
func (b *Backend) IsMeanSupported(input, output TensorInfo, desc *network.MeanDescriptor) (bool, string) {
	layerType := network.LayerTypeMean
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, arithmeticDTypes, input, output); !ok {
		return ok, reason
	}
	r := rejection{layerType}
	inferred, err := shapeinference.MeanOp(input, desc.Axis, desc.KeepDims)
	if err != nil {
		return r.reject("%v", err)
	}
	if !slices.Equal(inferred.Dimensions, output.Dimensions) {
		return r.reject("output %s doesn't match the reduced shape %v", output, inferred.Dimensions)
	}
	return true, ""
}

// IsPadSupported implements backends.LayerSupport.
func (b *Backend) IsPadSupported(input, output TensorInfo, desc *network.PadDescriptor) (bool, string) {
	layerType := network.LayerTypePad
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, arithmeticDTypes, input, output); !ok {
		return ok, reason
	}
	r := rejection{layerType}
	if input.IsQuantized() && desc.PadValue != 0 {
		return r.reject("quantized inputs can only be padded with 0, got %g", desc.PadValue)
	}
	if _, err := shapeinference.PadOp(input, desc.PadList); err != nil {
		return r.reject("%v", err)
	}
	return true, ""
}

// IsSpaceToBatchNdSupported implements backends.LayerSupport.
func (b *Backend) IsSpaceToBatchNdSupported(input, output TensorInfo, desc *network.SpaceToBatchNdDescriptor) (bool, string) {
	layerType := network.LayerTypeSpaceToBatchNd
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, arithmeticDTypes, input, output); !ok {
		return ok, reason
	}
	if _, err := shapeinference.SpaceToBatchNdOp(input, desc.BlockShape, desc.PadList, desc.DataLayout); err != nil {
		return rejection{layerType}.reject("%v", err)
	}
	return true, ""
}

// IsBatchToSpaceNdSupported implements backends.LayerSupport.
func (b *Backend) IsBatchToSpaceNdSupported(input, output TensorInfo, desc *network.BatchToSpaceNdDescriptor) (bool, string) {
	layerType := network.LayerTypeBatchToSpaceNd
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, arithmeticDTypes, input, output); !ok {
		return ok, reason
	}
	if _, err := shapeinference.BatchToSpaceNdOp(input, desc.BlockShape, desc.Crops, desc.DataLayout); err != nil {
		return rejection{layerType}.reject("%v", err)
	}
	return true, ""
}

// IsReshapeSupported implements backends.LayerSupport.
func (b *Backend) IsReshapeSupported(input, output TensorInfo, desc *network.ReshapeDescriptor) (bool, string) {
	layerType := network.LayerTypeReshape
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, anyDTypes, input, output); !ok {
		return ok, reason
	}
	if _, err := shapeinference.ReshapeOp(input, desc.TargetShape); err != nil {
		return rejection{layerType}.reject("%v", err)
	}
	return true, ""
}

// IsStridedSliceSupported implements backends.LayerSupport.
func (b *Backend) IsStridedSliceSupported(input, output TensorInfo, desc *network.StridedSliceDescriptor) (bool, string) {
	layerType := network.LayerTypeStridedSlice
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, arithmeticDTypes, input, output); !ok {
		return ok, reason
	}
	_, err := shapeinference.StridedSliceOp(input, desc.Begin, desc.End, desc.Stride,
		desc.BeginMask, desc.EndMask, desc.ShrinkAxisMask)
	if err != nil {
		return rejection{layerType}.reject("%v", err)
	}
	return true, ""
}

// IsPermuteSupported implements backends.LayerSupport.
func (b *Backend) IsPermuteSupported(input, output TensorInfo, desc *network.PermuteDescriptor) (bool, string) {
	layerType := network.LayerTypePermute
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, anyDTypes, input, output); !ok {
		return ok, reason
	}
	inferred, err := shapeinference.PermuteOp(input, desc.DimMappings)
	if err != nil {
		return rejection{layerType}.reject("%v", err)
	}
	if !slices.Equal(inferred.Dimensions, output.Dimensions) {
		return rejection{layerType}.reject("output %s doesn't match the permuted shape %v", output, inferred.Dimensions)
	}
	return true, ""
}

// IsSoftmaxSupported implements backends.LayerSupport.
func (b *Backend) IsSoftmaxSupported(input, output TensorInfo, desc *network.SoftmaxDescriptor) (bool, string) {
	layerType := network.LayerTypeSoftmax
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, arithmeticDTypes, input, output); !ok {
		return ok, reason
	}
	r := rejection{layerType}
	if input.Rank() != 2 && input.Rank() != 4 {
		return r.reject("only inputs of rank 2 or 4 are supported, got %s", input)
	}
	if desc.Beta <= 0 {
		return r.reject("beta must be positive, got %g", desc.Beta)
	}
	return true, ""
}

// IsL2NormalizationSupported implements backends.LayerSupport.
func (b *Backend) IsL2NormalizationSupported(input, output TensorInfo, desc *network.L2NormalizationDescriptor) (bool, string) {
	layerType := network.LayerTypeL2Normalization
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, input, output); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, floatDTypes, input, output); !ok {
		return ok, reason
	}
	if err := shapeinference.CheckRankEquals(input, 4); err != nil {
		return rejection{layerType}.reject("%v", err)
	}
	return true, ""
}

// IsConcatSupported implements backends.LayerSupport.
func (b *Backend) IsConcatSupported(inputs []TensorInfo, output TensorInfo, desc *network.ConcatDescriptor) (bool, string) {
	layerType := network.LayerTypeConcat
	r := rejection{layerType}
	if len(inputs) != desc.NumViews {
		return r.reject("descriptor has %d views, but %d inputs were given", desc.NumViews, len(inputs))
	}
	infos := append(slices.Clone(inputs), output)
	if ok, reason := b.checkCommon(layerType, shapeinference.MaxRank, infos...); !ok {
		return ok, reason
	}
	if ok, reason := checkSameDType(layerType, arithmeticDTypes, infos...); !ok {
		return ok, reason
	}
	inferred, err := shapeinference.ConcatOp(inputs, desc.Axis)
	if err != nil {
		return r.reject("%v", err)
	}
	if !slices.Equal(inferred.Dimensions, output.Dimensions) {
		return r.reject("output %s doesn't match the concatenated shape %v", output, inferred.Dimensions)
	}
	return true, ""
}
