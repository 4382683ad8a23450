// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package network

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestTensorInfo(t *testing.T) {
	info := MakeTensorInfo(dtypes.Float32, 2, 3, 4)
	assert.Equal(t, 3, info.Rank())
	assert.Equal(t, 24, info.NumElements())
	assert.Equal(t, uintptr(96), info.Memory())
	assert.True(t, info.IsFullySpecified())
	assert.Equal(t, "(Float32)[2 3 4]", info.String())
	require.NoError(t, info.Validate())

	other := info.WithDimensions(2, 0, 4)
	assert.False(t, other.IsFullySpecified())
	assert.False(t, info.Equal(other))
	assert.Equal(t, []int{2, 3, 4}, info.Dimensions, "WithDimensions must not change the original")

	quantized := MakeTensorInfo(dtypes.Uint8, 4)
	require.Error(t, quantized.Validate(), "quantized tensors need a positive scale")
	quantized.QuantizationScale = 0.25
	quantized.QuantizationOffset = 128
	require.NoError(t, quantized.Validate())
	assert.True(t, quantized.IsQuantized())
	assert.Equal(t, "(Uint8)[4]{scale=0.25, offset=128}", quantized.String())
	quantized.QuantizationScale = float32(math.Inf(1))
	require.Error(t, quantized.Validate())

	require.Error(t, MakeTensorInfo(dtypes.Float32, 2, -1).Validate())
}

func TestLayerType(t *testing.T) {
	assert.Equal(t, "SpaceToBatchNd", LayerTypeSpaceToBatchNd.String())
	lt, err := ParseLayerType("Permute")
	require.NoError(t, err)
	assert.Equal(t, LayerTypePermute, lt)
	_, err = ParseLayerType("Transpose")
	require.Error(t, err)
	assert.Len(t, LayerTypes(), int(LayerTypeLast)-1)
}

func TestDataLayout(t *testing.T) {
	layout, err := ParseDataLayout("nchw")
	require.NoError(t, err)
	assert.Equal(t, NCHW, layout)
	assert.Equal(t, 1, layout.ChannelsAxis())
	h, w := NHWC.SpatialAxes()
	assert.Equal(t, []int{1, 2}, []int{h, w})
	_, err = ParseDataLayout("HWC")
	require.Error(t, err)
}

func TestPermutationVector(t *testing.T) {
	p := PermutationVector{0, 3, 1, 2}
	assert.True(t, p.IsValid())
	assert.True(t, p.IsEqual([]int{0, 3, 1, 2}))
	assert.False(t, p.IsEqual([]int{0, 2, 3, 1}))
	assert.False(t, PermutationVector{0, 0, 1}.IsValid())
	assert.False(t, PermutationVector{0, 3}.IsValid())
}

func TestNetworkBuild(t *testing.T) {
	net := New("test")
	input := net.AddInputLayer(0, "x")
	input.OutputSlot(0).SetTensorInfo(MakeTensorInfo(dtypes.Float32, 2, 3))

	constData := make([]byte, 4*3)
	for ii := range 3 {
		binary.LittleEndian.PutUint32(constData[4*ii:], math.Float32bits(float32(ii)+0.5))
	}
	constant := net.AddConstantLayer(ConstTensor{Info: MakeTensorInfo(dtypes.Float32, 3), Data: constData}, "c")

	add := net.AddLayer(LayerTypeAddition, nil, "add")
	input.OutputSlot(0).Connect(add.InputSlot(0))
	assert.Error(t, net.Validate(), "second input of add is not connected yet")
	constant.OutputSlot(0).Connect(add.InputSlot(1))
	add.OutputSlot(0).SetTensorInfo(MakeTensorInfo(dtypes.Float32, 2, 3))

	output := net.AddOutputLayer(0, "y")
	add.OutputSlot(0).Connect(output.InputSlot(0))
	require.NoError(t, net.Validate())

	assert.Equal(t, 4, net.NumLayers())
	assert.Equal(t, LayerID(2), add.ID())
	assert.Same(t, add, net.Layer(2))
	assert.Same(t, constant.OutputSlot(0), add.InputSlot(1).Connection())
	assert.Equal(t, 1, input.OutputSlot(0).NumConnections())
	assert.Contains(t, net.String(), "#2 Addition(\"add\") <- #0:0, #1:0 -> (Float32)[2 3]")

	// Builder misuse panics.
	require.Panics(t, func() { input.OutputSlot(0).Connect(add.InputSlot(0)) })
	require.Panics(t, func() { add.InputSlot(2) })
	require.Panics(t, func() { net.AddLayer(LayerTypePad, &MeanDescriptor{}, "bad") })
	require.Panics(t, func() { net.AddLayer(LayerTypeConcat, nil, "bad") })
	require.Panics(t, func() { New("other").AddLayer(LayerTypeFloor, nil, "").OutputSlot(0).Connect(output.InputSlot(0)) })
	assert.Equal(t, 4, net.NumLayers())

	concat := net.AddLayer(LayerTypeConcat, &ConcatDescriptor{Axis: 0, NumViews: 3}, "concat")
	assert.Equal(t, 3, concat.NumInputSlots())
}

func TestReduceFloat32ToFloat16(t *testing.T) {
	net := New("fp16")
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-2))
	constant := net.AddConstantLayer(ConstTensor{Info: MakeTensorInfo(dtypes.Float32, 2), Data: data}, "c")
	ints := net.AddInputLayer(0, "i")
	ints.OutputSlot(0).SetTensorInfo(MakeTensorInfo(dtypes.Int32, 2))

	assert.Equal(t, 1, net.ReduceFloat32ToFloat16())
	assert.Equal(t, dtypes.Float16, constant.OutputSlot(0).TensorInfo().DType)
	assert.Equal(t, dtypes.Int32, ints.OutputSlot(0).TensorInfo().DType)

	tensor := constant.Descriptor().(*ConstantDescriptor).Tensor
	require.NoError(t, tensor.Validate())
	require.Len(t, tensor.Data, 4)
	assert.Equal(t, float32(1.5), float16.Frombits(binary.LittleEndian.Uint16(tensor.Data)).Float32())
	assert.Equal(t, float32(-2), float16.Frombits(binary.LittleEndian.Uint16(tensor.Data[2:])).Float32())

	// Nothing left to convert.
	assert.Equal(t, 0, net.ReduceFloat32ToFloat16())
}
