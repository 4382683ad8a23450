// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := Make[int](10)
	assert.Len(t, s, 0)

	s.Insert(3, 7, 3)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	s2 := MakeWith(7, 3)
	assert.True(t, s.Equal(s2))

	s.Insert(11)
	assert.False(t, s.Equal(s2))
	assert.False(t, s2.Equal(s))
}

func TestSorted(t *testing.T) {
	s := MakeWith(3, 0, 2, 0, 3)
	assert.Equal(t, []int{0, 2, 3}, Sorted(s))
	assert.Empty(t, Sorted(Make[uint32]()))
}
