// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package network

import (
	"fmt"
	"slices"
)

// Descriptor is the parameter bundle of a layer. Each parameterized layer type has its own descriptor.
type Descriptor interface {
	// LayerType the descriptor configures.
	LayerType() LayerType
}

// PadPair is the amount of padding (or cropping) before and after one axis.
type PadPair struct {
	Before, After int
}

// String implements fmt.Stringer.
func (p PadPair) String() string { return fmt.Sprintf("(%d,%d)", p.Before, p.After) }

// BindingDescriptor configures Input and Output layers with the binding id used to feed or fetch them.
type BindingDescriptor struct {
	LayerTypeValue LayerType
	ID             int
}

func (d *BindingDescriptor) LayerType() LayerType { return d.LayerTypeValue }

// ConstantDescriptor holds the tensor a Constant layer outputs.
type ConstantDescriptor struct {
	Tensor ConstTensor
}

func (d *ConstantDescriptor) LayerType() LayerType { return LayerTypeConstant }

// ActivationFunction applied by an Activation layer.
type ActivationFunction int

const (
	ActivationSigmoid ActivationFunction = iota
	ActivationTanH
	ActivationReLu
	// ActivationBoundedReLu clamps to [B, A].
	ActivationBoundedReLu
)

var activationNames = []string{"Sigmoid", "TanH", "ReLu", "BoundedReLu"}

// String implements fmt.Stringer.
func (f ActivationFunction) String() string {
	if f >= 0 && int(f) < len(activationNames) {
		return activationNames[f]
	}
	return fmt.Sprintf("ActivationFunction(%d)", int(f))
}

// ActivationDescriptor configures an element-wise activation. A and B parametrize some
// functions: BoundedReLu uses A as the upper bound and B as the lower bound; TanH computes A*tanh(B*x).
type ActivationDescriptor struct {
	Function ActivationFunction
	A, B     float32
}

func (d *ActivationDescriptor) LayerType() LayerType { return LayerTypeActivation }

// MeanDescriptor reduces the input over Axis, given sorted and unique. An empty Axis reduces over all axes.
type MeanDescriptor struct {
	Axis     []int
	KeepDims bool
}

func (d *MeanDescriptor) LayerType() LayerType { return LayerTypeMean }

// PadDescriptor pads each axis of the input with PadValue.
type PadDescriptor struct {
	PadList  []PadPair
	PadValue float32
}

func (d *PadDescriptor) LayerType() LayerType { return LayerTypePad }

// SpaceToBatchNdDescriptor moves blocks of the (padded) spatial dimensions into the batch dimension.
type SpaceToBatchNdDescriptor struct {
	BlockShape []int
	PadList    []PadPair
	DataLayout DataLayout
}

func (d *SpaceToBatchNdDescriptor) LayerType() LayerType { return LayerTypeSpaceToBatchNd }

// BatchToSpaceNdDescriptor is the inverse of SpaceToBatchNd, with Crops removed from the spatial dimensions.
type BatchToSpaceNdDescriptor struct {
	BlockShape []int
	Crops      []PadPair
	DataLayout DataLayout
}

func (d *BatchToSpaceNdDescriptor) LayerType() LayerType { return LayerTypeBatchToSpaceNd }

// ReshapeDescriptor reshapes the input to TargetShape, which must hold the same number of elements.
type ReshapeDescriptor struct {
	TargetShape []int
}

func (d *ReshapeDescriptor) LayerType() LayerType { return LayerTypeReshape }

// StridedSliceDescriptor follows the usual strided-slice semantics: bit i of BeginMask (EndMask)
// means Begin[i] (End[i]) is ignored and the widest range is used; bit i of ShrinkAxisMask removes
// axis i from the output, which must then have size 1.
type StridedSliceDescriptor struct {
	Begin, End, Stride []int

	BeginMask      int32
	EndMask        int32
	ShrinkAxisMask int32

	DataLayout DataLayout
}

func (d *StridedSliceDescriptor) LayerType() LayerType { return LayerTypeStridedSlice }

// PermutationVector describes a transposition: output axis i is input axis p[i].
type PermutationVector []int

// IsEqual returns whether both permutations are the same.
func (p PermutationVector) IsEqual(other []int) bool {
	return slices.Equal(p, other)
}

// IsValid returns whether p is a permutation of 0..len(p)-1.
func (p PermutationVector) IsValid() bool {
	seen := make([]bool, len(p))
	for _, axis := range p {
		if axis < 0 || axis >= len(p) || seen[axis] {
			return false
		}
		seen[axis] = true
	}
	return true
}

// PermuteDescriptor transposes the input axes.
type PermuteDescriptor struct {
	DimMappings PermutationVector
}

func (d *PermuteDescriptor) LayerType() LayerType { return LayerTypePermute }

// SoftmaxDescriptor computes softmax(Beta * x) over the last axis.
type SoftmaxDescriptor struct {
	Beta float32
}

func (d *SoftmaxDescriptor) LayerType() LayerType { return LayerTypeSoftmax }

// ConcatDescriptor concatenates NumViews inputs along Axis.
type ConcatDescriptor struct {
	Axis     int
	NumViews int
}

func (d *ConcatDescriptor) LayerType() LayerType { return LayerTypeConcat }

// L2NormalizationDescriptor normalizes over the channels axis given by DataLayout.
type L2NormalizationDescriptor struct {
	DataLayout DataLayout
}

func (d *L2NormalizationDescriptor) LayerType() LayerType { return LayerTypeL2Normalization }
