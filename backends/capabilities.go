// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"maps"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/pkg/network"
)

// Capabilities holds mappings of what is supported by a backend.
type Capabilities struct {
	// Layers supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	Layers map[network.LayerType]bool

	// DTypes list the data types supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	var c2 Capabilities
	c2.Layers = make(map[network.LayerType]bool, len(c.Layers))
	maps.Copy(c2.Layers, c.Layers)
	c2.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	maps.Copy(c2.DTypes, c.DTypes)
	return c2
}

// SupportedLayers returns the layer types marked as supported, sorted.
func (c Capabilities) SupportedLayers() []network.LayerType {
	var layers []network.LayerType
	for layerType, ok := range c.Layers {
		if ok {
			layers = append(layers, layerType)
		}
	}
	slices.Sort(layers)
	return layers
}

// SupportedDTypes returns the data types marked as supported, sorted.
func (c Capabilities) SupportedDTypes() []dtypes.DType {
	var dts []dtypes.DType
	for dtype, ok := range c.DTypes {
		if ok {
			dts = append(dts, dtype)
		}
	}
	slices.Sort(dts)
	return dts
}
