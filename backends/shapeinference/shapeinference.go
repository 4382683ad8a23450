// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapeinference calculates the TensorInfo resulting from layers and validates their parameters.
//
// It is used by the converters to build descriptors and check declared outputs, and by backends to
// validate the shapes they are queried about.
//
// All functions are pure: they return an error for invalid inputs and never change their arguments.
// Inferred outputs keep the dtype and quantization parameters of the (first) input.
package shapeinference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/gomlx/nndriver/pkg/support/sets"
	"github.com/pkg/errors"
)

// TensorInfo is an alias for convenience.
type TensorInfo = network.TensorInfo

// MaxRank is the highest rank handled by the rank-limited layers.
const MaxRank = 4

// CheckRankAtMost returns an error if info has a rank greater than maxRank.
func CheckRankAtMost(info TensorInfo, maxRank int) error {
	if info.Rank() > maxRank {
		return errors.Errorf("inputs with rank greater than %d are not supported, got %s", maxRank, info)
	}
	return nil
}

// CheckRankEquals returns an error if info doesn't have exactly the given rank.
func CheckRankEquals(info TensorInfo, rank int) error {
	if info.Rank() != rank {
		return errors.Errorf("only inputs with rank %d are supported, got %s", rank, info)
	}
	return nil
}

// NormalizeAxes maps each axis in [-rank, rank-1] to (axis + rank) % rank and collapses duplicates.
// The result is sorted.
func NormalizeAxes(axes []int32, rank int) ([]int, error) {
	unique := sets.Make[int](len(axes))
	for _, axis := range axes {
		a := int(axis)
		if a < -rank || a >= rank {
			return nil, errors.Errorf("axis %d out of range for rank %d, it must be in [%d, %d]", axis, rank, -rank, rank-1)
		}
		unique.Insert((a + rank) % rank)
	}
	return sets.Sorted(unique), nil
}

// SequenceAxes returns [0, 1, ..., rank-1].
func SequenceAxes(rank int) []int {
	axes := make([]int, rank)
	for ii := range axes {
		axes[ii] = ii
	}
	return axes
}

// DefaultPermutation returns the reverse permutation [rank-1, ..., 1, 0].
func DefaultPermutation(rank int) []int {
	perm := SequenceAxes(rank)
	slices.Reverse(perm)
	return perm
}

// CheckOperandShape validates the dimensions of a parameter operand (e.g. a pad list or block shape).
// The name is used in the error message.
func CheckOperandShape(name string, dims []int, expected ...int) error {
	if !slices.Equal(dims, expected) {
		return errors.Errorf("invalid %s operand: expected shape %v, got %v", name, expected, dims)
	}
	return nil
}

// BroadcastShapes returns the result of combining a and b element-wise: dimensions are aligned to the
// right, and each pair of dimensions must be equal or one of them 1. The dtypes must match.
func BroadcastShapes(a, b TensorInfo) (output TensorInfo, err error) {
	if a.DType == dtypes.InvalidDType || a.DType != b.DType {
		err = errors.Errorf("data types (DType) of element-wise operands must match, got %s and %s", a, b)
		return
	}
	rank := max(a.Rank(), b.Rank())
	aDims := BroadcastReshapeDims(a.Dimensions, rank)
	bDims := BroadcastReshapeDims(b.Dimensions, rank)
	output = a.WithDimensions(aDims...)
	for axis := range rank {
		aDim, bDim := aDims[axis], bDims[axis]
		if aDim != 1 && bDim != 1 && aDim != bDim {
			err = errors.Errorf("dimension of axis #%d (right-aligned) doesn't match and cannot be broadcast, got shapes %s and %s",
				axis, a, b)
			return
		}
		if aDim == 1 {
			output.Dimensions[axis] = bDim
		}
	}
	return
}

// BroadcastReshapeDims prepends 1s to dims until it has the given rank.
func BroadcastReshapeDims(dims []int, rank int) []int {
	if len(dims) >= rank {
		return slices.Clone(dims)
	}
	reshaped := make([]int, rank)
	prefix := rank - len(dims)
	for ii := range prefix {
		reshaped[ii] = 1
	}
	copy(reshaped[prefix:], dims)
	return reshaped
}

// PadList converts a flat [rank, 2] list of (before, after) values. Values must be non-negative.
func PadList(values []int32, rank int) ([]network.PadPair, error) {
	if len(values) != 2*rank {
		return nil, errors.Errorf("invalid paddings operand: expected %d values (shape [%d, 2]), got %d", 2*rank, rank, len(values))
	}
	padList := make([]network.PadPair, rank)
	for ii := range padList {
		before, after := values[2*ii], values[2*ii+1]
		if before < 0 || after < 0 {
			return nil, errors.Errorf("invalid paddings operand: padding values must be non-negative, got (%d, %d) for axis %d",
				before, after, ii)
		}
		padList[ii] = network.PadPair{Before: int(before), After: int(after)}
	}
	return padList, nil
}

// BlockShape converts the block sizes of SpaceToBatchNd/BatchToSpaceNd. There must be one per spatial
// dimension, each at least 1.
func BlockShape(values []int32, spatialDims int) ([]int, error) {
	if len(values) != spatialDims {
		return nil, errors.Errorf("invalid block shape operand: expected shape [%d], got %d values", spatialDims, len(values))
	}
	block := make([]int, len(values))
	for ii, v := range values {
		if v < 1 {
			return nil, errors.Errorf("block sizes must be greater than or equal to 1 in all spatial dimensions, got %v", values)
		}
		block[ii] = int(v)
	}
	return block, nil
}

// ReshapeOp returns input reshaped to target. One target dimension can be -1, in which case it is
// inferred so the number of elements is preserved.
func ReshapeOp(input TensorInfo, target []int) (output TensorInfo, err error) {
	dims := slices.Clone(target)
	inferredAxis := -1
	known := 1
	for axis, dim := range dims {
		switch {
		case dim == -1:
			if inferredAxis != -1 {
				err = errors.Errorf("Reshape(%s, %v): only one dimension can be -1", input, target)
				return
			}
			inferredAxis = axis
		case dim <= 0:
			err = errors.Errorf("Reshape(%s, %v): invalid dimension %d for axis %d", input, target, dim, axis)
			return
		default:
			known *= dim
		}
	}
	size := input.NumElements()
	if inferredAxis != -1 {
		if size%known != 0 {
			err = errors.Errorf("Reshape(%s, %v): cannot infer dimension -1, %d elements not divisible by %d",
				input, target, size, known)
			return
		}
		dims[inferredAxis] = size / known
		known = size
	}
	if known != size {
		err = errors.Errorf("Reshape(%s, %v): sizes don't match (%d != %d)", input, target, size, known)
		return
	}
	return input.WithDimensions(dims...), nil
}

// SqueezeOp removes the axes listed (already normalized) whose dimension is 1. Listed axes with
// other dimensions are kept.
func SqueezeOp(input TensorInfo, axes []int) TensorInfo {
	dims := make([]int, 0, input.Rank())
	for axis, dim := range input.Dimensions {
		if dim == 1 && slices.Contains(axes, axis) {
			continue
		}
		dims = append(dims, dim)
	}
	return input.WithDimensions(dims...)
}

// MeanOp reduces input over the given (normalized, unique) axes. An empty list reduces all axes.
func MeanOp(input TensorInfo, axes []int, keepDims bool) (output TensorInfo, err error) {
	rank := input.Rank()
	if len(axes) == 0 {
		axes = SequenceAxes(rank)
	}
	for _, axis := range axes {
		if axis < 0 || axis >= rank {
			err = errors.Errorf("Mean(%s): axis %d out of range", input, axis)
			return
		}
	}
	dims := make([]int, 0, rank)
	for axis, dim := range input.Dimensions {
		if slices.Contains(axes, axis) {
			if keepDims {
				dims = append(dims, 1)
			}
			continue
		}
		dims = append(dims, dim)
	}
	return input.WithDimensions(dims...), nil
}

// PadOp returns the shape of input padded with padList, one pair per axis.
func PadOp(input TensorInfo, padList []network.PadPair) (output TensorInfo, err error) {
	if len(padList) != input.Rank() {
		err = errors.Errorf("Pad(%s): pad list has %d entries, one per axis required", input, len(padList))
		return
	}
	output = input.Clone()
	for axis, pad := range padList {
		if pad.Before < 0 || pad.After < 0 {
			err = errors.Errorf("Pad(%s): negative padding %s for axis %d", input, pad, axis)
			return
		}
		output.Dimensions[axis] += pad.Before + pad.After
	}
	return
}

// PermuteOp transposes input: output axis i is input axis perm[i].
func PermuteOp(input TensorInfo, perm []int) (output TensorInfo, err error) {
	rank := input.Rank()
	if len(perm) != rank {
		err = errors.Errorf("Permute() requires all axes permutations to be defined, input has shape %s, but %d permutations were given",
			input, len(perm))
		return
	}
	if !network.PermutationVector(perm).IsValid() {
		err = errors.Errorf("invalid permutation %v given to Permute(%s), each axis must appear exactly once", perm, input)
		return
	}
	output = input.Clone()
	for axis, srcAxis := range perm {
		output.Dimensions[axis] = input.Dimensions[srcAxis]
	}
	return
}

// SpaceToBatchNdOp returns the shape after padding the spatial dimensions and moving blocks of them
// into the batch dimension. Input must be rank 4.
func SpaceToBatchNdOp(input TensorInfo, blockShape []int, padList []network.PadPair, layout network.DataLayout) (output TensorInfo, err error) {
	if err = CheckRankEquals(input, 4); err != nil {
		return
	}
	if len(blockShape) != 2 || len(padList) != 2 {
		err = errors.Errorf("SpaceToBatchNd(%s): block shape %v and pad list %v must have 2 entries", input, blockShape, padList)
		return
	}
	hAxis, wAxis := layout.SpatialAxes()
	output = input.Clone()
	for ii, axis := range []int{hAxis, wAxis} {
		padded := input.Dimensions[axis] + padList[ii].Before + padList[ii].After
		if blockShape[ii] < 1 || padded%blockShape[ii] != 0 {
			err = errors.Errorf("SpaceToBatchNd(%s): padded spatial dimension %d (axis %d) is not divisible by block size %d",
				input, padded, axis, blockShape[ii])
			return
		}
		output.Dimensions[axis] = padded / blockShape[ii]
	}
	output.Dimensions[0] *= blockShape[0] * blockShape[1]
	return
}

// BatchToSpaceNdOp is the inverse of SpaceToBatchNdOp, removing crops from the spatial dimensions.
// Input must be rank 4.
func BatchToSpaceNdOp(input TensorInfo, blockShape []int, crops []network.PadPair, layout network.DataLayout) (output TensorInfo, err error) {
	if err = CheckRankEquals(input, 4); err != nil {
		return
	}
	if len(blockShape) != 2 || len(crops) != 2 {
		err = errors.Errorf("BatchToSpaceNd(%s): block shape %v and crops %v must have 2 entries", input, blockShape, crops)
		return
	}
	blockSize := blockShape[0] * blockShape[1]
	if blockSize < 1 || input.Dimensions[0]%blockSize != 0 {
		err = errors.Errorf("BatchToSpaceNd(%s): batch dimension is not divisible by the block size %v", input, blockShape)
		return
	}
	hAxis, wAxis := layout.SpatialAxes()
	output = input.Clone()
	output.Dimensions[0] /= blockSize
	for ii, axis := range []int{hAxis, wAxis} {
		dim := input.Dimensions[axis]*blockShape[ii] - crops[ii].Before - crops[ii].After
		if dim < 0 {
			err = errors.Errorf("BatchToSpaceNd(%s): crops %s larger than spatial dimension of axis %d", input, crops[ii], axis)
			return
		}
		output.Dimensions[axis] = dim
	}
	return
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// StridedSliceOp returns the shape of slicing input with begin/end/stride (one entry per axis) and masks.
//
// Negative begin/end values count from the end of the axis. Bit i of beginMask (endMask) selects the
// widest start (end) for axis i. Bit i of shrinkAxisMask takes only the element at begin[i] and removes
// the axis from the output.
func StridedSliceOp(input TensorInfo, begin, end, stride []int, beginMask, endMask, shrinkAxisMask int32) (output TensorInfo, err error) {
	rank := input.Rank()
	if len(begin) != rank || len(end) != rank || len(stride) != rank {
		err = errors.Errorf("StridedSlice(%s): begin, end and stride must have %d values, got %d, %d and %d",
			input, rank, len(begin), len(end), len(stride))
		return
	}
	dims := make([]int, 0, rank)
	for axis, dim := range input.Dimensions {
		s := stride[axis]
		if s == 0 {
			err = errors.Errorf("StridedSlice(%s): stride must be non-zero, got %v", input, stride)
			return
		}
		bit := int32(1) << axis
		if shrinkAxisMask&bit != 0 {
			b := begin[axis]
			if b < 0 {
				b += dim
			}
			if b < 0 || b >= dim {
				err = errors.Errorf("StridedSlice(%s): shrunk axis %d has begin %d out of range", input, axis, begin[axis])
				return
			}
			continue
		}
		b := clampSliceIndex(begin[axis], dim, s, beginMask&bit != 0, true)
		e := clampSliceIndex(end[axis], dim, s, endMask&bit != 0, false)
		size := 0
		if s > 0 && e > b {
			size = ceilDiv(e-b, s)
		} else if s < 0 && b > e {
			size = ceilDiv(b-e, -s)
		}
		dims = append(dims, size)
	}
	return input.WithDimensions(dims...), nil
}

// clampSliceIndex resolves a begin or end index of a strided slice for an axis of size dim.
func clampSliceIndex(index, dim, stride int, masked, isBegin bool) int {
	if masked {
		switch {
		case stride > 0 && isBegin:
			return 0
		case stride > 0:
			return dim
		case isBegin:
			return dim - 1
		default:
			return -1
		}
	}
	if index < 0 {
		index += dim
	}
	if stride > 0 {
		return min(max(index, 0), dim)
	}
	return min(max(index, -1), dim-1)
}

// ConcatOp concatenates inputs along the (non-negative) axis.
func ConcatOp(inputs []TensorInfo, axis int) (output TensorInfo, err error) {
	if len(inputs) == 0 {
		err = errors.Errorf("ConcatOp requires at least one input")
		return
	}
	first := inputs[0]
	rank := first.Rank()
	if axis < 0 || axis >= rank {
		err = errors.Errorf("invalid concatenation axis %d for inputs with rank %d", axis, rank)
		return
	}
	output = first.Clone()
	for ii, input := range inputs[1:] {
		if input.DType != first.DType {
			err = errors.Errorf("mismatched DTypes for ConcatOp: input #0 has %s, input #%d has %s", first.DType, ii+1, input.DType)
			return
		}
		if input.Rank() != rank {
			err = errors.Errorf("mismatched ranks for ConcatOp: input #0 has rank %d, input #%d has rank %d", rank, ii+1, input.Rank())
			return
		}
		for d := range rank {
			if d == axis {
				output.Dimensions[d] += input.Dimensions[d]
			} else if input.Dimensions[d] != first.Dimensions[d] {
				err = errors.Errorf("mismatched dimensions for ConcatOp at axis %d: input #0 has %d, input #%d has %d",
					d, first.Dimensions[d], ii+1, input.Dimensions[d])
				return
			}
		}
	}
	return
}

// CompleteOutputInfo reconciles the declared TensorInfo of an output with the one inferred from the
// inputs: known declared dimensions must match the inferred ones, and unknown (0) dimensions, or an
// unknown rank (no dimensions), are filled from the inferred TensorInfo. The dtype and quantization of
// the declared output are kept.
func CompleteOutputInfo(declared, inferred TensorInfo) (TensorInfo, error) {
	completed := declared.Clone()
	if declared.Rank() == 0 {
		completed.Dimensions = slices.Clone(inferred.Dimensions)
		return completed, nil
	}
	if declared.Rank() != inferred.Rank() {
		return completed, errors.Errorf("declared output %s has rank %d, but the inferred output %s has rank %d",
			declared, declared.Rank(), inferred, inferred.Rank())
	}
	for axis, dim := range declared.Dimensions {
		switch dim {
		case 0:
			completed.Dimensions[axis] = inferred.Dimensions[axis]
		case inferred.Dimensions[axis]:
		default:
			return completed, errors.Errorf("declared output %s doesn't match the inferred output %s on axis %d",
				declared, inferred, axis)
		}
	}
	return completed, nil
}
