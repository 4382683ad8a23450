// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"

	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
)

// AddInputLayers adds one Input layer per model input, with binding id equal to its position in
// model.InputIndexes, and registers its output slot as the producer of the input operand.
func AddInputLayers(model *hal.Model, ctx *Context) error {
	for bindingID, operandIdx := range model.InputIndexes {
		name := fmt.Sprintf("input#%d", bindingID)
		operand, err := model.Operand(operandIdx)
		if err != nil {
			return WrapMalformed(err, name, "invalid model input")
		}
		info, err := TensorInfoForOperand(operand)
		if err != nil {
			return WrapMalformed(err, name, "invalid model input")
		}
		if !info.IsFullySpecified() {
			return Unsupportedf(name, "model input %s must have fully specified dimensions", info)
		}
		err = IsLayerSupported(ctx, name, func(b backends.Backend) (bool, string) {
			return b.IsInputSupported(info)
		})
		if err != nil {
			return err
		}
		layer := ctx.Network.AddInputLayer(bindingID, name)
		layer.OutputSlot(0).SetTensorInfo(info)
		if err := ctx.RegisterOutputSlot(operandIdx, layer.OutputSlot(0)); err != nil {
			return err
		}
	}
	return nil
}

// AddOutputLayers adds one Output layer per model output, connected to the output slot that produces the
// output operand.
func AddOutputLayers(model *hal.Model, ctx *Context) error {
	// Check all outputs before adding any layer.
	slots := make([]*network.OutputSlot, len(model.OutputIndexes))
	for bindingID, operandIdx := range model.OutputIndexes {
		name := fmt.Sprintf("output#%d", bindingID)
		slot, found := ctx.OutputSlot(operandIdx)
		if !found {
			return Malformedf(name, "model output operand #%d is not produced by any operation", operandIdx)
		}
		info := slot.TensorInfo()
		err := IsLayerSupported(ctx, name, func(b backends.Backend) (bool, string) {
			return b.IsOutputSupported(info)
		})
		if err != nil {
			return err
		}
		slots[bindingID] = slot
	}
	for bindingID, slot := range slots {
		layer := ctx.Network.AddOutputLayer(bindingID, fmt.Sprintf("output#%d", bindingID))
		slot.Connect(layer.InputSlot(0))
	}
	return nil
}
