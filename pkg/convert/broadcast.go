// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"

	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/backends/shapeinference"
	"github.com/gomlx/nndriver/pkg/network"
)

// BroadcastPlan connects the two inputs of an element-wise binary layer, inserting a Reshape that prepends 1s
// to the dimensions of the lower rank input.
type BroadcastPlan struct {
	// reshaped is the index (0 or 1) of the input that needs a Reshape, or -1.
	reshaped int
	desc     *network.ReshapeDescriptor
	info     network.TensorInfo
	name     string
}

// PlanBroadcast checks the inputs are broadcast compatible and, if their ranks differ, that the backend
// supports the Reshape of the lower rank input. It returns the broadcast output TensorInfo.
func PlanBroadcast(ctx *Context, opName string, input0, input1 *LayerInputHandle) (*BroadcastPlan, network.TensorInfo, error) {
	info0, info1 := input0.TensorInfo(), input1.TensorInfo()
	output, err := shapeinference.BroadcastShapes(info0, info1)
	if err != nil {
		return nil, output, WrapMalformed(err, opName, "inputs can't be broadcast")
	}
	plan := &BroadcastPlan{reshaped: -1}
	if info0.Rank() == info1.Rank() {
		return plan, output, nil
	}
	small, rank := info0, info1.Rank()
	plan.reshaped = 0
	if info1.Rank() < info0.Rank() {
		small, rank = info1, info0.Rank()
		plan.reshaped = 1
	}
	dims := shapeinference.BroadcastReshapeDims(small.Dimensions, rank)
	plan.desc = &network.ReshapeDescriptor{TargetShape: dims}
	plan.info = small.WithDimensions(dims...)
	plan.name = fmt.Sprintf("%s:broadcast%d", opName, plan.reshaped)
	err = IsLayerSupported(ctx, opName, func(b backends.Backend) (bool, string) {
		return b.IsReshapeSupported(small, plan.info, plan.desc)
	})
	if err != nil {
		return nil, output, err
	}
	return plan, output, nil
}

// NeedsReshape returns whether a Reshape layer is inserted, and for which input.
func (p *BroadcastPlan) NeedsReshape() (inputIdx int, needed bool) {
	return p.reshaped, p.reshaped >= 0
}

// Wire connects input0 and input1 to the input slots 0 and 1 of layer, in that order.
func (p *BroadcastPlan) Wire(ctx *Context, input0, input1 *LayerInputHandle, layer *network.Layer) {
	for ii, input := range []*LayerInputHandle{input0, input1} {
		if ii != p.reshaped {
			input.Connect(layer.InputSlot(ii))
			continue
		}
		reshape := ctx.Network.AddLayer(network.LayerTypeReshape, p.desc, p.name)
		reshape.OutputSlot(0).SetTensorInfo(p.info)
		input.Connect(reshape.InputSlot(0))
		reshape.OutputSlot(0).Connect(layer.InputSlot(ii))
	}
}
