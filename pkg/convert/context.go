// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package convert holds the machinery shared by the operation converters: the conversion Context with the
// operand to output slot mapping, the resolution of operation inputs, the capability gate, the fused activation
// and broadcast wiring helpers and the versioned Policy dispatch.
//
// Converters follow a fixed protocol: resolve inputs, read and validate parameters, infer the output, build the
// descriptor, check the backend support, and only then mutate the network and track the outputs. A failure at
// any step before the mutation leaves the Context and its Network untouched.
package convert

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
	"k8s.io/klog/v2"
)

// Context is the state of the conversion of one model. It is not safe for concurrent use, and a new one
// must be created for each conversion.
type Context struct {
	// Network being built.
	Network *network.Network

	// Backend used to check the support of each layer before it is added.
	Backend backends.Backend

	// Layout of 4D tensors in layout aware layers.
	Layout network.DataLayout

	outputSlots map[uint32]*network.OutputSlot
}

// NewContext creates a Context that builds into net, checking layers against backend. The layout is NHWC.
func NewContext(net *network.Network, backend backends.Backend) *Context {
	return &Context{
		Network:     net,
		Backend:     backend,
		Layout:      network.NHWC,
		outputSlots: make(map[uint32]*network.OutputSlot),
	}
}

// WithLayout sets the data layout and returns the Context.
func (c *Context) WithLayout(layout network.DataLayout) *Context {
	c.Layout = layout
	return c
}

// OutputSlot returns the output slot registered for the operand index.
func (c *Context) OutputSlot(operandIdx uint32) (slot *network.OutputSlot, found bool) {
	slot, found = c.outputSlots[operandIdx]
	return
}

// NumRegistered returns the number of operands with a registered output slot.
func (c *Context) NumRegistered() int { return len(c.outputSlots) }

// RegisteredOperands returns the sorted indices of the operands with a registered output slot.
func (c *Context) RegisteredOperands() []uint32 {
	return slices.Sorted(maps.Keys(c.outputSlots))
}

// RegisterOutputSlot maps the operand to the output slot. Used for model inputs and constants, operation
// outputs are registered with TrackOutputSlot.
func (c *Context) RegisterOutputSlot(operandIdx uint32, slot *network.OutputSlot) error {
	if _, found := c.outputSlots[operandIdx]; found {
		return Malformedf("RegisterOutputSlot", "operand #%d already has a registered output slot", operandIdx)
	}
	c.outputSlots[operandIdx] = slot
	return nil
}

// CheckOutputsUnregistered returns a Malformed error if any of the outputs of the operation was already
// produced by a previous operation.
func (c *Context) CheckOutputsUnregistered(op *hal.Operation) error {
	for ii, operandIdx := range op.Outputs {
		if slot, found := c.outputSlots[operandIdx]; found {
			return Malformedf(op.Type.String(), "output #%d (operand #%d) is already produced by layer %s",
				ii, operandIdx, slot.Layer())
		}
	}
	return nil
}

// TrackOutputSlot sets the TensorInfo of the layer's output slot layerOutputIndex and registers it as the
// producer of the operation's output outputIndex. It must be the last step of a successful conversion.
func (c *Context) TrackOutputSlot(op *hal.Operation, outputIndex int, layer *network.Layer, layerOutputIndex int,
	info network.TensorInfo) error {
	if outputIndex < 0 || outputIndex >= len(op.Outputs) {
		return Malformedf(op.Type.String(), "operation has no output #%d (%d outputs)", outputIndex, len(op.Outputs))
	}
	operandIdx := op.Outputs[outputIndex]
	if _, found := c.outputSlots[operandIdx]; found {
		return Malformedf(op.Type.String(), "output operand #%d registered twice", operandIdx)
	}
	slot := layer.OutputSlot(layerOutputIndex)
	slot.SetTensorInfo(info)
	c.outputSlots[operandIdx] = slot
	klog.V(2).Infof("operand #%d produced by %s:%d %s", operandIdx, layer, layerOutputIndex, info)
	return nil
}

// LayerName returns the name used for the layer created for the operation.
func LayerName(op *hal.Operation) string {
	return fmt.Sprintf("%s%v", op.Type, op.Outputs)
}
