// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package driver

import (
	"strings"

	"github.com/gomlx/nndriver/pkg/network"
	"github.com/pkg/errors"
)

// Options configure a Driver.
type Options struct {
	// Backend is the backend configuration passed to backends.NewWithConfig, formatted as
	// "<backend_name>:<backend_configuration>". If empty, backends.New is used.
	Backend string

	// Layout of 4D tensors of the models converted.
	Layout network.DataLayout

	// Float32ToFloat16 reduces the float32 tensors of the prepared networks to float16, as if every model
	// had the relaxed computation flag set.
	Float32ToFloat16 bool

	// ContinueOnFailure makes GetSupportedOperations keep checking the operations after the first one
	// that is not supported. Otherwise all operations after it are reported as not supported.
	ContinueOnFailure bool
}

// ParseOptions parses a ";"-separated list of options:
//
//   - "backend=<name>": the backend to use.
//   - "layout=NHWC" or "layout=NCHW".
//   - "fp16": sets Float32ToFloat16.
//   - "continue": sets ContinueOnFailure.
//
// Any other entry is appended to the backend configuration. So "backend=reference;disable=Mean;fp16"
// selects the backend configuration "reference:disable=Mean".
func ParseOptions(config string) (Options, error) {
	var (
		opts          Options
		backendName   string
		backendConfig []string
	)
	for _, part := range strings.Split(config, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "backend":
			if !hasValue || value == "" {
				return Options{}, errors.Errorf("driver option %q requires a backend name", part)
			}
			backendName = value
		case "layout":
			layout, err := network.ParseDataLayout(value)
			if err != nil {
				return Options{}, errors.WithMessagef(err, "driver option %q", part)
			}
			opts.Layout = layout
		case "fp16":
			opts.Float32ToFloat16 = true
		case "continue":
			opts.ContinueOnFailure = true
		default:
			backendConfig = append(backendConfig, part)
		}
	}
	switch {
	case backendName != "":
		opts.Backend = backendName + ":" + strings.Join(backendConfig, ";")
	case len(backendConfig) > 0:
		return Options{}, errors.Errorf("driver options %q configure a backend, but no backend=<name> was given",
			strings.Join(backendConfig, ";"))
	}
	return opts, nil
}

// String returns the options in the format accepted by ParseOptions.
func (o Options) String() string {
	var parts []string
	if o.Backend != "" {
		name, config, _ := strings.Cut(o.Backend, ":")
		parts = append(parts, "backend="+name)
		if config != "" {
			parts = append(parts, config)
		}
	}
	parts = append(parts, "layout="+o.Layout.String())
	if o.Float32ToFloat16 {
		parts = append(parts, "fp16")
	}
	if o.ContinueOnFailure {
		parts = append(parts, "continue")
	}
	return strings.Join(parts, ";")
}
