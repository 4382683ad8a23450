// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package network

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// ReduceFloat32ToFloat16 converts every Float32 tensor of the network to Float16: output slot
// TensorInfos and the payload of constant layers. It returns the number of output slots converted.
func (n *Network) ReduceFloat32ToFloat16() int {
	count := 0
	for _, layer := range n.layers {
		if constDesc, ok := layer.descriptor.(*ConstantDescriptor); ok && constDesc.Tensor.Info.DType == dtypes.Float32 {
			constDesc.Tensor = constantToFloat16(constDesc.Tensor)
		}
		for _, out := range layer.outputs {
			if out.hasInfo && out.info.DType == dtypes.Float32 {
				out.info.DType = dtypes.Float16
				count++
			}
		}
	}
	if count == 0 {
		klog.Warningf("network %q: float32 to float16 reduction requested, but there are no float32 tensors", n.name)
	}
	return count
}

func constantToFloat16(tensor ConstTensor) ConstTensor {
	numElements := len(tensor.Data) / 4
	data := make([]byte, 2*numElements)
	for ii := range numElements {
		f32 := math.Float32frombits(binary.LittleEndian.Uint32(tensor.Data[4*ii:]))
		binary.LittleEndian.PutUint16(data[2*ii:], float16.Fromfloat32(f32).Bits())
	}
	info := tensor.Info.Clone()
	info.DType = dtypes.Float16
	return ConstTensor{Info: info, Data: data}
}
