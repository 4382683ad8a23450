// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convert

import (
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
)

// BinaryQuery asks the backend about an element-wise binary layer.
type BinaryQuery func(backend backends.Backend, input0, input1, output network.TensorInfo) (bool, string)

// ConvertElementwiseBinary converts an operation with two broadcast compatible inputs (0 and 1), an optional
// fused activation (input 2) and one output, into a layer of the given type.
func ConvertElementwiseBinary(op *hal.Operation, model *hal.Model, ctx *Context, layerType network.LayerType,
	query BinaryQuery) error {
	opName := op.Type.String()
	inputs, err := InputHandles(op, model, ctx, 0, 1)
	if err != nil {
		return err
	}
	input0, input1 := inputs[0], inputs[1]
	fuseCode, err := GetOptionalInputActivation(op, 2, model)
	if err != nil {
		return err
	}

	broadcast, inferred, err := PlanBroadcast(ctx, opName, input0, input1)
	if err != nil {
		return err
	}
	output, err := CompleteOutputInfo(op, 0, model, inferred)
	if err != nil {
		return err
	}
	err = IsLayerSupported(ctx, opName, func(b backends.Backend) (bool, string) {
		return query(b, input0.TensorInfo(), input1.TensorInfo(), output)
	})
	if err != nil {
		return err
	}
	activation, err := PlanActivation(ctx, opName, fuseCode, output)
	if err != nil {
		return err
	}

	layer := ctx.Network.AddLayer(layerType, nil, LayerName(op))
	end := activation.Apply(ctx, layer)
	broadcast.Wire(ctx, input0, input1, layer)
	return ctx.TrackOutputSlot(op, 0, end, 0, output)
}
