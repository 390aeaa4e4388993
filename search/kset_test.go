package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKBoundsWidths(t *testing.T) {
	b := KBounds{VMin: 5, VMax: 8, DMin: 3, DMax: 6}
	assert.Equal(t, 3, b.VWidth())
	assert.Equal(t, 3, b.DWidth())
}

func TestKBoundsValidatePanicsOnInverted(t *testing.T) {
	assert.Panics(t, func() {
		KBounds{VMin: 5, VMax: 5, DMin: 1, DMax: 2}.Validate()
	})
	assert.Panics(t, func() {
		KBounds{VMin: 0, VMax: 5, DMin: 1, DMax: 2}.Validate()
	})
	assert.NotPanics(t, func() {
		KBounds{VMin: 1, VMax: 2, DMin: 1, DMax: 2}.Validate()
	})
}
