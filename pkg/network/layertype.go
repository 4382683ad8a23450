// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package network

import (
	"fmt"

	"github.com/pkg/errors"
)

// LayerType enumerates the kinds of layers a Network can hold.
type LayerType int

const (
	LayerTypeInvalid LayerType = iota
	LayerTypeInput
	LayerTypeOutput
	LayerTypeConstant
	LayerTypeActivation
	LayerTypeAddition
	LayerTypeBatchToSpaceNd
	LayerTypeConcat
	LayerTypeDequantize
	LayerTypeDivision
	LayerTypeFloor
	LayerTypeL2Normalization
	LayerTypeMean
	LayerTypeMultiplication
	LayerTypePad
	LayerTypePermute
	LayerTypeReshape
	LayerTypeSoftmax
	LayerTypeSpaceToBatchNd
	LayerTypeStridedSlice
	LayerTypeSubtraction
	LayerTypeLast // Sentinel, not a valid layer type.
)

// layerSpec holds the fixed arity of each layer type.
// A negative number of inputs means it is given by the descriptor (Concat).
type layerSpec struct {
	name       string
	numInputs  int
	numOutputs int
}

var layerSpecs = [LayerTypeLast]layerSpec{
	LayerTypeInvalid:         {"Invalid", 0, 0},
	LayerTypeInput:           {"Input", 0, 1},
	LayerTypeOutput:          {"Output", 1, 0},
	LayerTypeConstant:        {"Constant", 0, 1},
	LayerTypeActivation:      {"Activation", 1, 1},
	LayerTypeAddition:        {"Addition", 2, 1},
	LayerTypeBatchToSpaceNd:  {"BatchToSpaceNd", 1, 1},
	LayerTypeConcat:          {"Concat", -1, 1},
	LayerTypeDequantize:      {"Dequantize", 1, 1},
	LayerTypeDivision:        {"Division", 2, 1},
	LayerTypeFloor:           {"Floor", 1, 1},
	LayerTypeL2Normalization: {"L2Normalization", 1, 1},
	LayerTypeMean:            {"Mean", 1, 1},
	LayerTypeMultiplication:  {"Multiplication", 2, 1},
	LayerTypePad:             {"Pad", 1, 1},
	LayerTypePermute:         {"Permute", 1, 1},
	LayerTypeReshape:         {"Reshape", 1, 1},
	LayerTypeSoftmax:         {"Softmax", 1, 1},
	LayerTypeSpaceToBatchNd:  {"SpaceToBatchNd", 1, 1},
	LayerTypeStridedSlice:    {"StridedSlice", 1, 1},
	LayerTypeSubtraction:     {"Subtraction", 2, 1},
}

// String implements fmt.Stringer.
func (t LayerType) String() string {
	if t.IsValid() || t == LayerTypeInvalid {
		return layerSpecs[t].name
	}
	return fmt.Sprintf("LayerType(%d)", int(t))
}

// IsValid returns whether t is a concrete layer type.
func (t LayerType) IsValid() bool {
	return t > LayerTypeInvalid && t < LayerTypeLast
}

// ParseLayerType returns the layer type with the given name, e.g. "Pad".
func ParseLayerType(name string) (LayerType, error) {
	for t := LayerTypeInput; t < LayerTypeLast; t++ {
		if layerSpecs[t].name == name {
			return t, nil
		}
	}
	return LayerTypeInvalid, errors.Errorf("unknown layer type %q", name)
}

// LayerTypes returns all valid layer types.
func LayerTypes() []LayerType {
	types := make([]LayerType, 0, LayerTypeLast-1)
	for t := LayerTypeInput; t < LayerTypeLast; t++ {
		types = append(types, t)
	}
	return types
}
