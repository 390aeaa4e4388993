package hmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInsertName(t *testing.T) {
	assert.True(t, isInsertName("insert_left"))
	assert.True(t, isInsertName("insert"))
	assert.False(t, isInsertName("IGHV1-2*01_14"))
	assert.False(t, isInsertName("in"))
}

func TestStateNoTransitions(t *testing.T) {
	s := &State{Name: "end-ish"}
	assert.True(t, s.EndTransLogProb() < 0)
	_, ok := s.TransitionLogProb(0)
	assert.False(t, ok)
}
