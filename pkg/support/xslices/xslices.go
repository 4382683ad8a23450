// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide missing functionality to the slices package, mostly conversions between the
// integer types used by model operands (int32 values, uint32 dimensions) and the int used by the network.
package xslices

import (
	"golang.org/x/exp/constraints"
)

// mapSlice executes the given function sequentially for every element on in, and returns a mapped slice.
func mapSlice[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// Ints converts a slice of any integer type to []int. It returns nil for a nil slice.
func Ints[T constraints.Integer](in []T) []int {
	if in == nil {
		return nil
	}
	return mapSlice(in, func(e T) int { return int(e) })
}

// Iota returns a slice of incremental integer values, starting with start and of length len.
// E.g.: Iota(3, 2) -> []int{3, 4}
func Iota[T constraints.Integer](start T, len int) (slice []T) {
	slice = make([]T, len)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}
