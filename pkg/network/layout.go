// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package network

import (
	"strings"

	"github.com/pkg/errors"
)

// DataLayout of 4D image-like tensors.
type DataLayout int

const (
	// NHWC is the channels-last layout: [batch, height, width, channels].
	NHWC DataLayout = iota

	// NCHW is the channels-first layout: [batch, channels, height, width].
	NCHW
)

// String implements fmt.Stringer.
func (l DataLayout) String() string {
	switch l {
	case NHWC:
		return "NHWC"
	case NCHW:
		return "NCHW"
	}
	return "DataLayout(?)"
}

// ParseDataLayout parses "NHWC" or "NCHW", case-insensitive.
func ParseDataLayout(s string) (DataLayout, error) {
	switch strings.ToUpper(s) {
	case "NHWC":
		return NHWC, nil
	case "NCHW":
		return NCHW, nil
	}
	return NHWC, errors.Errorf("unknown data layout %q, valid values are NHWC and NCHW", s)
}

// ChannelsAxis returns the axis holding the channels of a rank-4 tensor.
func (l DataLayout) ChannelsAxis() int {
	if l == NCHW {
		return 1
	}
	return 3
}

// SpatialAxes returns the height and width axes of a rank-4 tensor.
func (l DataLayout) SpatialAxes() (height, width int) {
	if l == NCHW {
		return 2, 3
	}
	return 1, 2
}
