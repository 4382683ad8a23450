// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface a compute backend implements to tell the converter which
// layers, with which exact tensor shapes, data types and parameters, it can execute.
//
// Every query returns whether the configuration is supported and, if not, a human-readable reason.
// Queries are pure: they do no I/O and don't change the backend.
//
// A backend that only supports a few layers can embed notimplemented.Backend and override only the
// queries it cares about.
package backends

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/nndriver/pkg/network"
	"github.com/pkg/errors"
)

// TensorInfo is an alias to the network type describing tensors, for convenience.
type TensorInfo = network.TensorInfo

// Backend is the API that needs to be implemented by a backend.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "reference".
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// Capabilities returns the coarse layer types and data types supported. A layer type or
	// data type not listed is never supported; one listed may still be rejected by the
	// fine-grained queries of LayerSupport.
	Capabilities() Capabilities

	LayerSupport
}

// LayerSupport holds the fine-grained queries, one per layer type.
type LayerSupport interface {
	IsInputSupported(input TensorInfo) (bool, string)
	IsOutputSupported(output TensorInfo) (bool, string)
	IsConstantSupported(output TensorInfo) (bool, string)

	IsActivationSupported(input, output TensorInfo, desc *network.ActivationDescriptor) (bool, string)
	IsAdditionSupported(input0, input1, output TensorInfo) (bool, string)
	IsSubtractionSupported(input0, input1, output TensorInfo) (bool, string)
	IsMultiplicationSupported(input0, input1, output TensorInfo) (bool, string)
	IsDivisionSupported(input0, input1, output TensorInfo) (bool, string)
	IsFloorSupported(input, output TensorInfo) (bool, string)
	IsDequantizeSupported(input, output TensorInfo) (bool, string)

	IsMeanSupported(input, output TensorInfo, desc *network.MeanDescriptor) (bool, string)
	IsPadSupported(input, output TensorInfo, desc *network.PadDescriptor) (bool, string)
	IsSpaceToBatchNdSupported(input, output TensorInfo, desc *network.SpaceToBatchNdDescriptor) (bool, string)
	IsBatchToSpaceNdSupported(input, output TensorInfo, desc *network.BatchToSpaceNdDescriptor) (bool, string)
	IsReshapeSupported(input, output TensorInfo, desc *network.ReshapeDescriptor) (bool, string)
	IsStridedSliceSupported(input, output TensorInfo, desc *network.StridedSliceDescriptor) (bool, string)
	IsPermuteSupported(input, output TensorInfo, desc *network.PermuteDescriptor) (bool, string)
	IsSoftmaxSupported(input, output TensorInfo, desc *network.SoftmaxDescriptor) (bool, string)
	IsL2NormalizationSupported(input, output TensorInfo, desc *network.L2NormalizationDescriptor) (bool, string)
	IsConcatSupported(inputs []TensorInfo, output TensorInfo, desc *network.ConcatDescriptor) (bool, string)
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List the names of the registered backends, sorted.
func List() []string {
	return slices.Sorted(maps.Keys(registeredConstructors))
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// NNDRIVER_BACKEND is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "reference") and
// "<backend_configuration>" is backend specific.
const NNDRIVER_BACKEND = "NNDRIVER_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment NNDRIVER_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
func New() (Backend, error) {
	config, found := os.LookupEnv(NNDRIVER_BACKEND)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig takes a configurations string formated as "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "reference") and
// "<backend_configuration>" is backend specific. If the name is omitted, the first registered backend
// is used.
func NewWithConfig(config string) (Backend, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.Errorf(`no registered backends -- maybe import the default one with import _ "github.com/gomlx/nndriver/backends/default"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if _, found := registeredConstructors[config]; found {
		backendName = config
		backendConfig = ""
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		return nil, errors.Errorf("can't find backend %q for configuration %q given, registered backends: %v",
			backendName, config, List())
	}
	backend, err := constructor(backendConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create backend %q with configuration %q", backendName, backendConfig)
	}
	return backend, nil
}
