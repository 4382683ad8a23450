// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convert

import (
	"github.com/gomlx/nndriver/backends"
	"k8s.io/klog/v2"
)

// SupportQuery asks the backend about one fully specified layer, returning the reason of a rejection.
type SupportQuery func(backend backends.Backend) (supported bool, reason string)

// IsLayerSupported runs the query against the Context's backend, and returns an Unsupported error with the
// backend's reason if it is rejected.
//
// It must be called with the final TensorInfos and descriptor, before the layer is added to the network.
func IsLayerSupported(ctx *Context, opName string, query SupportQuery) error {
	supported, reason := query(ctx.Backend)
	if supported {
		return nil
	}
	klog.V(1).Infof("%s: rejected by backend %q: %s", opName, ctx.Backend.Name(), reason)
	return Unsupportedf(opName, "not supported by backend %q: %s", ctx.Backend.Name(), reason)
}
