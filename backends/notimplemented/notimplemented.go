// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package notimplemented implements a backends.Backend that rejects every layer with a "not implemented"
// reason.
//
// It can be embedded to bootstrap a backend implementation, or to create mock backends in tests that
// override only a few queries.
package notimplemented

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/network"
)

// Backend is a dummy backend that can be embedded to create mock backends.
type Backend struct{}

var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return "notimplemented"
}

// String returns the same as Name.
func (b *Backend) String() string {
	return b.Name()
}

// Description is a longer description of the Backend.
func (b *Backend) Description() string {
	return "Not Implemented Backend (mock backend for testing)"
}

// Capabilities returns empty capabilities.
func (b *Backend) Capabilities() backends.Capabilities {
	return backends.Capabilities{
		Layers: make(map[network.LayerType]bool),
		DTypes: make(map[dtypes.DType]bool),
	}
}

func notImplemented(layerType network.LayerType) (bool, string) {
	return false, fmt.Sprintf("%s layer not implemented", layerType)
}

// IsInputSupported always rejects.
func (b *Backend) IsInputSupported(backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeInput)
}

// IsOutputSupported always rejects.
func (b *Backend) IsOutputSupported(backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeOutput)
}

// IsConstantSupported always rejects.
func (b *Backend) IsConstantSupported(backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeConstant)
}

// IsActivationSupported always rejects.
func (b *Backend) IsActivationSupported(_, _ backends.TensorInfo, _ *network.ActivationDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeActivation)
}

// IsAdditionSupported always rejects.
func (b *Backend) IsAdditionSupported(_, _, _ backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeAddition)
}

// IsSubtractionSupported always rejects.
func (b *Backend) IsSubtractionSupported(_, _, _ backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeSubtraction)
}

// IsMultiplicationSupported always rejects.
func (b *Backend) IsMultiplicationSupported(_, _, _ backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeMultiplication)
}

// IsDivisionSupported always rejects.
func (b *Backend) IsDivisionSupported(_, _, _ backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeDivision)
}

// IsFloorSupported always rejects.
func (b *Backend) IsFloorSupported(_, _ backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeFloor)
}

// IsDequantizeSupported always rejects.
func (b *Backend) IsDequantizeSupported(_, _ backends.TensorInfo) (bool, string) {
	return notImplemented(network.LayerTypeDequantize)
}

// IsMeanSupported always rejects.
func (b *Backend) IsMeanSupported(_, _ backends.TensorInfo, _ *network.MeanDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeMean)
}

// IsPadSupported always rejects.
func (b *Backend) IsPadSupported(_, _ backends.TensorInfo, _ *network.PadDescriptor) (bool, string) {
	return notImplemented(network.LayerTypePad)
}

// IsSpaceToBatchNdSupported always rejects.
func (b *Backend) IsSpaceToBatchNdSupported(_, _ backends.TensorInfo, _ *network.SpaceToBatchNdDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeSpaceToBatchNd)
}

// IsBatchToSpaceNdSupported always rejects.
func (b *Backend) IsBatchToSpaceNdSupported(_, _ backends.TensorInfo, _ *network.BatchToSpaceNdDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeBatchToSpaceNd)
}

// IsReshapeSupported always rejects.
func (b *Backend) IsReshapeSupported(_, _ backends.TensorInfo, _ *network.ReshapeDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeReshape)
}

// IsStridedSliceSupported always rejects.
func (b *Backend) IsStridedSliceSupported(_, _ backends.TensorInfo, _ *network.StridedSliceDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeStridedSlice)
}

// IsPermuteSupported always rejects.
func (b *Backend) IsPermuteSupported(_, _ backends.TensorInfo, _ *network.PermuteDescriptor) (bool, string) {
	return notImplemented(network.LayerTypePermute)
}

// IsSoftmaxSupported always rejects.
func (b *Backend) IsSoftmaxSupported(_, _ backends.TensorInfo, _ *network.SoftmaxDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeSoftmax)
}

// IsL2NormalizationSupported always rejects.
func (b *Backend) IsL2NormalizationSupported(_, _ backends.TensorInfo, _ *network.L2NormalizationDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeL2Normalization)
}

// IsConcatSupported always rejects.
func (b *Backend) IsConcatSupported(_ []backends.TensorInfo, _ backends.TensorInfo, _ *network.ConcatDescriptor) (bool, string) {
	return notImplemented(network.LayerTypeConcat)
}
