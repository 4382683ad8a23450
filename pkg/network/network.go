// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package network holds the layer graph produced by the conversion of a model.
//
// A Network is a list of layers, each with a fixed number of input and output slots. Output slots
// carry the TensorInfo of the values they produce and are connected to the input slots that
// consume them. The graph is built incrementally and is only meant to be inspected, not executed.
//
// Misuse of the builder API (e.g. connecting an input slot twice, or using a slot index out of
// range) is a bug in the caller and panics with an exception (see github.com/gomlx/exceptions).
package network

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// LayerID is the position of the layer in the Network.
type LayerID int

// Network is a graph of layers under construction.
type Network struct {
	name   string
	layers []*Layer
}

// New creates an empty network.
func New(name string) *Network {
	return &Network{name: name}
}

// Name of the network.
func (n *Network) Name() string { return n.name }

// NumLayers returns the number of layers added so far.
func (n *Network) NumLayers() int { return len(n.layers) }

// Layers returns the layers in the order they were added. The slice must not be modified.
func (n *Network) Layers() []*Layer { return n.layers }

// Layer returns the layer with the given id.
func (n *Network) Layer(id LayerID) *Layer {
	if id < 0 || int(id) >= len(n.layers) {
		exceptions.Panicf("network %q has no layer #%d (%d layers)", n.name, id, len(n.layers))
	}
	return n.layers[id]
}

// AddLayer appends a new layer of the given type. Parameterized layer types require a descriptor
// of the matching type; parameterless ones take nil.
func (n *Network) AddLayer(layerType LayerType, desc Descriptor, name string) *Layer {
	if !layerType.IsValid() {
		exceptions.Panicf("network %q: cannot add layer %q of invalid type %s", n.name, name, layerType)
	}
	if desc != nil && desc.LayerType() != layerType {
		exceptions.Panicf("network %q: descriptor for %s given to layer %q of type %s",
			n.name, desc.LayerType(), name, layerType)
	}
	spec := layerSpecs[layerType]
	numInputs := spec.numInputs
	if numInputs < 0 {
		concatDesc, ok := desc.(*ConcatDescriptor)
		if !ok || concatDesc.NumViews < 1 {
			exceptions.Panicf("network %q: layer %q of type %s requires a descriptor with at least 1 view",
				n.name, name, layerType)
		}
		numInputs = concatDesc.NumViews
	}
	layer := &Layer{
		network:    n,
		id:         LayerID(len(n.layers)),
		layerType:  layerType,
		name:       name,
		descriptor: desc,
		inputs:     make([]*InputSlot, numInputs),
		outputs:    make([]*OutputSlot, spec.numOutputs),
	}
	for ii := range layer.inputs {
		layer.inputs[ii] = &InputSlot{layer: layer, index: ii}
	}
	for ii := range layer.outputs {
		layer.outputs[ii] = &OutputSlot{layer: layer, index: ii}
	}
	n.layers = append(n.layers, layer)
	if klog.V(2).Enabled() {
		klog.Infof("network %q: added layer %s", n.name, layer)
	}
	return layer
}

// AddInputLayer adds a layer feeding the network input with the given binding id.
func (n *Network) AddInputLayer(id int, name string) *Layer {
	return n.AddLayer(LayerTypeInput, &BindingDescriptor{LayerTypeValue: LayerTypeInput, ID: id}, name)
}

// AddOutputLayer adds a layer exposing a network output with the given binding id.
func (n *Network) AddOutputLayer(id int, name string) *Layer {
	return n.AddLayer(LayerTypeOutput, &BindingDescriptor{LayerTypeValue: LayerTypeOutput, ID: id}, name)
}

// AddConstantLayer adds a layer that outputs the given tensor. Its output slot TensorInfo is set
// from the tensor.
func (n *Network) AddConstantLayer(tensor ConstTensor, name string) *Layer {
	layer := n.AddLayer(LayerTypeConstant, &ConstantDescriptor{Tensor: tensor}, name)
	layer.OutputSlot(0).SetTensorInfo(tensor.Info)
	return layer
}

// Validate checks that every input slot is connected and every output slot has a fully specified
// TensorInfo.
func (n *Network) Validate() error {
	for _, layer := range n.layers {
		for _, in := range layer.inputs {
			if in.connection == nil {
				return errors.Errorf("network %q: input #%d of layer %s is not connected", n.name, in.index, layer)
			}
		}
		for _, out := range layer.outputs {
			if !out.hasInfo {
				return errors.Errorf("network %q: output #%d of layer %s has no tensor info", n.name, out.index, layer)
			}
			if !out.info.IsFullySpecified() {
				return errors.Errorf("network %q: output #%d of layer %s has unknown dimensions %s",
					n.name, out.index, layer, out.info)
			}
			if err := out.info.Validate(); err != nil {
				return errors.WithMessagef(err, "network %q: output #%d of layer %s", n.name, out.index, layer)
			}
			if len(out.connections) == 0 {
				klog.Warningf("network %q: output #%d of layer %s is not consumed", n.name, out.index, layer)
			}
		}
	}
	return nil
}

// String pretty-prints the network, one layer per line.
func (n *Network) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Network %q (%d layers):\n", n.name, len(n.layers))
	for _, layer := range n.layers {
		fmt.Fprintf(&sb, "\t#%d %s", layer.id, layer)
		for ii, in := range layer.inputs {
			if ii == 0 {
				sb.WriteString(" <- ")
			} else {
				sb.WriteString(", ")
			}
			if in.connection == nil {
				sb.WriteString("?")
			} else {
				fmt.Fprintf(&sb, "#%d:%d", in.connection.layer.id, in.connection.index)
			}
		}
		for _, out := range layer.outputs {
			if out.hasInfo {
				fmt.Fprintf(&sb, " -> %s", out.info)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Layer is one node of the Network.
type Layer struct {
	network    *Network
	id         LayerID
	layerType  LayerType
	name       string
	descriptor Descriptor
	inputs     []*InputSlot
	outputs    []*OutputSlot
}

// ID of the layer, its position in the network.
func (l *Layer) ID() LayerID { return l.id }

// Type of the layer.
func (l *Layer) Type() LayerType { return l.layerType }

// Name given to the layer when it was added.
func (l *Layer) Name() string { return l.name }

// Descriptor of the layer, or nil for parameterless layers.
func (l *Layer) Descriptor() Descriptor { return l.descriptor }

// NumInputSlots returns the number of inputs of the layer.
func (l *Layer) NumInputSlots() int { return len(l.inputs) }

// NumOutputSlots returns the number of outputs of the layer.
func (l *Layer) NumOutputSlots() int { return len(l.outputs) }

// InputSlot returns the i-th input slot.
func (l *Layer) InputSlot(i int) *InputSlot {
	if i < 0 || i >= len(l.inputs) {
		exceptions.Panicf("layer %s has no input slot #%d (%d inputs)", l, i, len(l.inputs))
	}
	return l.inputs[i]
}

// OutputSlot returns the i-th output slot.
func (l *Layer) OutputSlot(i int) *OutputSlot {
	if i < 0 || i >= len(l.outputs) {
		exceptions.Panicf("layer %s has no output slot #%d (%d outputs)", l, i, len(l.outputs))
	}
	return l.outputs[i]
}

// String implements fmt.Stringer.
func (l *Layer) String() string {
	if l.name == "" {
		return l.layerType.String()
	}
	return fmt.Sprintf("%s(%q)", l.layerType, l.name)
}

// InputSlot is an input of a layer, connected to at most one OutputSlot.
type InputSlot struct {
	layer      *Layer
	index      int
	connection *OutputSlot
}

// Layer owning the slot.
func (s *InputSlot) Layer() *Layer { return s.layer }

// Index of the slot in its layer.
func (s *InputSlot) Index() int { return s.index }

// Connection returns the output slot feeding this input, or nil if not connected.
func (s *InputSlot) Connection() *OutputSlot { return s.connection }

// OutputSlot is an output of a layer. It can feed any number of input slots.
type OutputSlot struct {
	layer       *Layer
	index       int
	info        TensorInfo
	hasInfo     bool
	connections []*InputSlot
}

// Layer owning the slot.
func (s *OutputSlot) Layer() *Layer { return s.layer }

// Index of the slot in its layer.
func (s *OutputSlot) Index() int { return s.index }

// Connect this output to the given input slot. Each input slot can only be connected once, and
// only to slots of the same network.
func (s *OutputSlot) Connect(in *InputSlot) {
	if in.connection != nil {
		exceptions.Panicf("input #%d of layer %s already connected to %s", in.index, in.layer, in.connection.layer)
	}
	if in.layer.network != s.layer.network {
		exceptions.Panicf("cannot connect layer %s to layer %s of a different network", s.layer, in.layer)
	}
	in.connection = s
	s.connections = append(s.connections, in)
}

// NumConnections returns how many input slots this output feeds.
func (s *OutputSlot) NumConnections() int { return len(s.connections) }

// SetTensorInfo sets the description of the values produced by this slot.
func (s *OutputSlot) SetTensorInfo(info TensorInfo) {
	s.info = info.Clone()
	s.hasInfo = true
}

// HasTensorInfo returns whether SetTensorInfo was called.
func (s *OutputSlot) HasTensorInfo() bool { return s.hasInfo }

// TensorInfo returns a copy of the description of the values produced by this slot.
func (s *OutputSlot) TensorInfo() TensorInfo { return s.info.Clone() }
