// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package reference implements a backends.Backend with the layer support rules of a portable CPU
// reference implementation: tensors of rank up to 4, float32/float16 and 8-bit asymmetric quantized
// values, and the parameter limits of each layer.
//
// Configuration is a ";"-separated list of options:
//
//   - "nofp16": float16 tensors are not supported.
//   - "noquant": quantized (uint8) tensors are not supported.
//   - "disable=<LayerType>,<LayerType>...": the listed layer types are not supported, e.g. "disable=Pad,Division".
//
// Example: NNDRIVER_BACKEND="reference:nofp16;disable=Mean".
package reference

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName to be used in NNDRIVER_BACKEND to specify this backend.
const BackendName = "reference"

// Registers New() as the constructor for the "reference" backend.
func init() {
	backends.Register(BackendName, New)
}

// Capabilities of the reference backend with the default configuration.
var Capabilities = backends.Capabilities{
	Layers: map[network.LayerType]bool{
		network.LayerTypeInput:           true,
		network.LayerTypeOutput:          true,
		network.LayerTypeConstant:        true,
		network.LayerTypeActivation:      true,
		network.LayerTypeAddition:        true,
		network.LayerTypeBatchToSpaceNd:  true,
		network.LayerTypeConcat:          true,
		network.LayerTypeDequantize:      true,
		network.LayerTypeDivision:        true,
		network.LayerTypeFloor:           true,
		network.LayerTypeL2Normalization: true,
		network.LayerTypeMean:            true,
		network.LayerTypeMultiplication:  true,
		network.LayerTypePad:             true,
		network.LayerTypePermute:         true,
		network.LayerTypeReshape:         true,
		network.LayerTypeSoftmax:         true,
		network.LayerTypeSpaceToBatchNd:  true,
		network.LayerTypeStridedSlice:    true,
		network.LayerTypeSubtraction:     true,
	},
	DTypes: map[dtypes.DType]bool{
		dtypes.Float32: true,
		dtypes.Float16: true,
		dtypes.Uint8:   true,
		dtypes.Int32:   true,
	},
}

// Backend implements backends.Backend.
type Backend struct {
	capabilities backends.Capabilities
}

// Compile-time check that reference.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// New constructs a reference Backend from its configuration, see package documentation.
func New(config string) (backends.Backend, error) {
	b := &Backend{capabilities: Capabilities.Clone()}
	for _, option := range strings.Split(config, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		key, value, _ := strings.Cut(option, "=")
		switch key {
		case "nofp16":
			b.capabilities.DTypes[dtypes.Float16] = false
		case "noquant":
			b.capabilities.DTypes[dtypes.Uint8] = false
		case "disable":
			for _, name := range strings.Split(value, ",") {
				layerType, err := network.ParseLayerType(strings.TrimSpace(name))
				if err != nil {
					return nil, errors.WithMessagef(err, "backend %q: invalid option %q", BackendName, option)
				}
				b.capabilities.Layers[layerType] = false
			}
		default:
			return nil, errors.Errorf("backend %q: unknown configuration option %q in %q", BackendName, option, config)
		}
	}
	klog.V(1).Infof("backend %q created with configuration %q", BackendName, config)
	return b, nil
}

// Name returns the short name of the backend.
func (b *Backend) Name() string { return BackendName }

// String implements fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Portable reference backend (rank <= 4, float32/float16/quantized uint8)"
}

// Capabilities returns a copy of the backend's capabilities.
func (b *Backend) Capabilities() backends.Capabilities {
	return b.capabilities.Clone()
}

// rejection formats reasons prefixed by the layer type.
type rejection struct {
	layerType network.LayerType
}

func (r rejection) reject(format string, args ...any) (bool, string) {
	return false, fmt.Sprintf("%s: %s", r.layerType, fmt.Sprintf(format, args...))
}

// checkCommon verifies the layer is enabled, and that all tensors have a supported dtype, are of rank at
// most maxRank and have a valid TensorInfo.
func (b *Backend) checkCommon(layerType network.LayerType, maxRank int, infos ...backends.TensorInfo) (bool, string) {
	r := rejection{layerType}
	if !b.capabilities.Layers[layerType] {
		return r.reject("layer type disabled in backend %q", BackendName)
	}
	for ii, info := range infos {
		if !b.capabilities.DTypes[info.DType] {
			return r.reject("tensor #%d %s has unsupported dtype %s", ii, info, info.DType)
		}
		if info.Rank() > maxRank {
			return r.reject("tensor #%d %s has rank greater than %d", ii, info, maxRank)
		}
		if err := info.Validate(); err != nil {
			return r.reject("tensor #%d: %v", ii, err)
		}
	}
	return true, ""
}

// checkSameDType verifies all tensors have the same dtype and that it is one of the allowed ones.
func checkSameDType(layerType network.LayerType, allowed []dtypes.DType, infos ...backends.TensorInfo) (bool, string) {
	r := rejection{layerType}
	dtype := infos[0].DType
	if !slices.Contains(allowed, dtype) {
		return r.reject("dtype %s not supported, valid dtypes are %v", dtype, allowed)
	}
	for ii, info := range infos[1:] {
		if info.DType != dtype {
			return r.reject("tensor #%d %s has dtype different from tensor #0 %s", ii+1, info, infos[0])
		}
	}
	return true, ""
}

var (
	floatDTypes      = []dtypes.DType{dtypes.Float32, dtypes.Float16}
	arithmeticDTypes = []dtypes.DType{dtypes.Float32, dtypes.Float16, dtypes.Uint8}
	anyDTypes        = []dtypes.DType{dtypes.Float32, dtypes.Float16, dtypes.Uint8, dtypes.Int32}
)
