// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reference

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var MT = network.MakeTensorInfo

func newBackend(t *testing.T, config string) backends.Backend {
	backend, err := backends.NewWithConfig(BackendName + ":" + config)
	require.NoError(t, err)
	return backend
}

func quantized(dims ...int) TensorInfo {
	info := MT(dtypes.Uint8, dims...)
	info.QuantizationScale = 0.1
	info.QuantizationOffset = 128
	return info
}

func TestRegistration(t *testing.T) {
	assert.Contains(t, backends.List(), BackendName)
	backend, err := backends.NewWithConfig(BackendName)
	require.NoError(t, err)
	assert.Equal(t, BackendName, backend.Name())

	t.Setenv(backends.NNDRIVER_BACKEND, "reference:nofp16")
	backend, err = backends.New()
	require.NoError(t, err)
	assert.False(t, backend.Capabilities().DTypes[dtypes.Float16])

	_, err = backends.NewWithConfig("unknown:")
	require.Error(t, err)
	_, err = backends.NewWithConfig("reference:bogus")
	require.Error(t, err)
	_, err = backends.NewWithConfig("reference:disable=Transpose")
	require.Error(t, err)
}

func TestConfiguration(t *testing.T) {
	backend := newBackend(t, "noquant; disable=Pad,Division")
	caps := backend.Capabilities()
	assert.False(t, caps.Layers[network.LayerTypePad])
	assert.False(t, caps.Layers[network.LayerTypeDivision])
	assert.True(t, caps.Layers[network.LayerTypeSubtraction])
	assert.NotContains(t, caps.SupportedDTypes(), dtypes.Uint8)

	// Capabilities returned are copies.
	caps.Layers[network.LayerTypeSubtraction] = false
	assert.True(t, backend.Capabilities().Layers[network.LayerTypeSubtraction])

	// The package default is not changed by configurations.
	assert.True(t, Capabilities.Layers[network.LayerTypePad])

	x := MT(dtypes.Float32, 2, 3)
	ok, reason := backend.IsDivisionSupported(x, x, x)
	assert.False(t, ok)
	assert.Contains(t, reason, "disabled")
	ok, _ = backend.IsSubtractionSupported(x, x, x)
	assert.True(t, ok)
	ok, reason = backend.IsAdditionSupported(quantized(2), quantized(2), quantized(2))
	assert.False(t, ok)
	assert.Contains(t, reason, "unsupported dtype")
}

func TestElementwise(t *testing.T) {
	backend := newBackend(t, "")
	ok, reason := backend.IsAdditionSupported(MT(dtypes.Float32, 2, 3), MT(dtypes.Float32, 3), MT(dtypes.Float32, 2, 3))
	assert.True(t, ok, reason)
	ok, _ = backend.IsAdditionSupported(MT(dtypes.Float32, 2, 3), MT(dtypes.Float32, 2), MT(dtypes.Float32, 2, 3))
	assert.False(t, ok)
	ok, _ = backend.IsAdditionSupported(MT(dtypes.Float32, 2, 3), MT(dtypes.Float32, 2, 3), MT(dtypes.Float32, 3, 2))
	assert.False(t, ok)
	ok, _ = backend.IsMultiplicationSupported(MT(dtypes.Float32, 2), MT(dtypes.Float16, 2), MT(dtypes.Float32, 2))
	assert.False(t, ok)
	ok, _ = backend.IsDivisionSupported(quantized(2), quantized(2), quantized(2))
	assert.False(t, ok)
	ok, _ = backend.IsAdditionSupported(MT(dtypes.Float32, 1, 1, 1, 1, 2), MT(dtypes.Float32, 2), MT(dtypes.Float32, 1, 1, 1, 1, 2))
	assert.False(t, ok, "rank 5 is not supported")

	// Quantized tensors need a valid scale.
	bad := MT(dtypes.Uint8, 2)
	ok, _ = backend.IsAdditionSupported(bad, bad, bad)
	assert.False(t, ok)
}

func TestActivation(t *testing.T) {
	backend := newBackend(t, "")
	x := MT(dtypes.Float32, 4)
	ok, _ := backend.IsActivationSupported(x, x, &network.ActivationDescriptor{Function: network.ActivationBoundedReLu, A: 6, B: 0})
	assert.True(t, ok)
	ok, _ = backend.IsActivationSupported(x, x, &network.ActivationDescriptor{Function: network.ActivationBoundedReLu, A: -1, B: 1})
	assert.False(t, ok)
	ok, _ = backend.IsActivationSupported(x, MT(dtypes.Float32, 2, 2), &network.ActivationDescriptor{Function: network.ActivationReLu})
	assert.False(t, ok)
	ok, _ = backend.IsActivationSupported(x, x, &network.ActivationDescriptor{Function: network.ActivationFunction(17)})
	assert.False(t, ok)
}

func TestShapeLayers(t *testing.T) {
	backend := newBackend(t, "")
	f32 := func(dims ...int) TensorInfo { return MT(dtypes.Float32, dims...) }

	ok, reason := backend.IsMeanSupported(f32(2, 3, 4), f32(2, 4), &network.MeanDescriptor{Axis: []int{1}})
	assert.True(t, ok, reason)
	ok, _ = backend.IsMeanSupported(f32(2, 3, 4), f32(2, 1, 4), &network.MeanDescriptor{Axis: []int{1}})
	assert.False(t, ok)

	ok, reason = backend.IsPadSupported(f32(2, 3), f32(4, 5), &network.PadDescriptor{PadList: []network.PadPair{{Before: 1, After: 1}, {Before: 0, After: 2}}})
	assert.True(t, ok, reason)
	ok, _ = backend.IsPadSupported(quantized(2), quantized(4), &network.PadDescriptor{PadList: []network.PadPair{{Before: 1, After: 1}}, PadValue: 1})
	assert.False(t, ok)

	ok, reason = backend.IsSpaceToBatchNdSupported(f32(1, 4, 4, 3), f32(4, 2, 2, 3),
		&network.SpaceToBatchNdDescriptor{BlockShape: []int{2, 2}, PadList: []network.PadPair{{Before: 0, After: 0}, {Before: 0, After: 0}}})
	assert.True(t, ok, reason)
	ok, _ = backend.IsBatchToSpaceNdSupported(f32(4, 2, 3), f32(1, 4, 6),
		&network.BatchToSpaceNdDescriptor{BlockShape: []int{2, 2}, Crops: []network.PadPair{{Before: 0, After: 0}, {Before: 0, After: 0}}})
	assert.False(t, ok)

	ok, reason = backend.IsReshapeSupported(f32(1, 3, 1, 5), f32(3, 5), &network.ReshapeDescriptor{TargetShape: []int{3, 5}})
	assert.True(t, ok, reason)
	ok, _ = backend.IsReshapeSupported(f32(1, 3, 1, 5), f32(3, 4), &network.ReshapeDescriptor{TargetShape: []int{3, 4}})
	assert.False(t, ok)

	ok, reason = backend.IsPermuteSupported(f32(1, 2, 3, 4), f32(1, 4, 2, 3), &network.PermuteDescriptor{DimMappings: []int{0, 3, 1, 2}})
	assert.True(t, ok, reason)
	ok, _ = backend.IsPermuteSupported(f32(1, 2, 3, 4), f32(1, 2, 3, 4), &network.PermuteDescriptor{DimMappings: []int{0, 3, 1, 2}})
	assert.False(t, ok)

	ok, _ = backend.IsStridedSliceSupported(f32(5, 6), f32(5, 6),
		&network.StridedSliceDescriptor{Begin: []int{0, 0}, End: []int{5, 6}, Stride: []int{1, 0}})
	assert.False(t, ok)

	ok, _ = backend.IsL2NormalizationSupported(f32(2, 3), f32(2, 3), &network.L2NormalizationDescriptor{})
	assert.False(t, ok)
	ok, _ = backend.IsSoftmaxSupported(f32(2, 3), f32(2, 3), &network.SoftmaxDescriptor{Beta: 0})
	assert.False(t, ok)
	ok, _ = backend.IsSoftmaxSupported(f32(2, 3), f32(2, 3), &network.SoftmaxDescriptor{Beta: 1})
	assert.True(t, ok)

	ok, reason = backend.IsConcatSupported([]TensorInfo{f32(2, 3), f32(2, 2)}, f32(2, 5), &network.ConcatDescriptor{Axis: 1, NumViews: 2})
	assert.True(t, ok, reason)
	ok, _ = backend.IsConcatSupported([]TensorInfo{f32(2, 3)}, f32(2, 3), &network.ConcatDescriptor{Axis: 1, NumViews: 2})
	assert.False(t, ok)

	ok, _ = backend.IsDequantizeSupported(quantized(2, 2), f32(2, 2))
	assert.True(t, ok)
	ok, _ = backend.IsDequantizeSupported(f32(2, 2), f32(2, 2))
	assert.False(t, ok)

	ok, _ = backend.IsFloorSupported(MT(dtypes.Int32, 2), MT(dtypes.Int32, 2))
	assert.False(t, ok)
}
