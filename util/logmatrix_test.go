package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogMatrixBasics(t *testing.T) {
	m := NewLogMatrix(2, 3)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.True(t, math.IsInf(m.At(i, j), -1))
		}
	}
	m.Set(1, 2, -0.5)
	assert.Equal(t, -0.5, m.At(1, 2))
	assert.Equal(t, []float64{math.Inf(-1), -0.5}, m.Column(2))
}

func TestLogMatrixExtendColumns(t *testing.T) {
	m := NewLogMatrix(2, 2)
	m.Set(0, 0, -1)
	m.Set(1, 1, -2)
	ext := m.ExtendColumns(2)
	assert.Equal(t, 4, ext.NCol())
	assert.Equal(t, -1.0, ext.At(0, 0))
	assert.Equal(t, -2.0, ext.At(1, 1))
	assert.True(t, math.IsInf(ext.At(0, 2), -1))
}
