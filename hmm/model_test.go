package hmm

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validModelYAML = `
name: IGHV1-2*01
overall_prob: 0.02
states:
  - name: init
    transitions: {IGHV1-2*01_0: 1.0}
  - name: IGHV1-2*01_0
    label: v_0
    transitions: {IGHV1-2*01_1: 0.9, end: 0.1}
    emissions:
      probs: {A: 0.4, C: 0.2, G: 0.2, T: 0.2}
  - name: IGHV1-2*01_1
    transitions: {end: 1.0}
    emissions:
      probs: {A: 0.25, C: 0.25, G: 0.25, T: 0.25}
`

func TestParseValidModel(t *testing.T) {
	m, err := Parse(strings.NewReader(validModelYAML), "IGHV1-2*01")
	require.NoError(t, err)

	assert.Equal(t, "IGHV1-2*01", m.Gene)
	assert.Equal(t, 0.02, m.OverallProb)
	require.Len(t, m.States, 2)

	s0 := m.StateByName("IGHV1-2*01_0")
	require.NotNil(t, s0)
	assert.Equal(t, 0, s0.Index)
	s1 := m.StateByName("IGHV1-2*01_1")
	require.NotNil(t, s1)
	assert.Equal(t, 1, s1.Index)

	// invariant 2 (spec.md §8): for every non-hole slot i, the
	// destination's global index equals i.
	lp, ok := m.Init.TransitionLogProb(s0.Index)
	require.True(t, ok)
	assert.InDelta(t, 0, lp, 1e-9)
	_, ok = m.Init.TransitionLogProb(s1.Index)
	assert.False(t, ok)

	lp, ok = s0.TransitionLogProb(s1.Index)
	require.True(t, ok)
	assert.InDelta(t, math.Log(0.9), lp, 1e-9)
	assert.InDelta(t, math.Log(0.1), s0.EndTransLogProb(), 1e-9)
	assert.InDelta(t, 0, s1.EndTransLogProb(), 1e-9)

	assert.InDelta(t, math.Log(0.4), s0.EmissionLogProb('A'), 1e-9)
	assert.True(t, math.IsInf(s0.EmissionLogProb('N'), -1))
}

func TestParseUnknownTransitionTarget(t *testing.T) {
	doc := `
name: g
overall_prob: 1
states:
  - name: init
    transitions: {bogus: 1.0}
`
	_, err := Parse(strings.NewReader(doc), "g")
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, UnknownTransitionTarget, pe.Kind)
}

func TestParseTransitionsDoNotSumToOne(t *testing.T) {
	doc := `
name: g
overall_prob: 1
states:
  - name: init
    transitions: {g_0: 0.5}
  - name: g_0
    transitions: {end: 1.0}
`
	_, err := Parse(strings.NewReader(doc), "g")
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, TransitionsDoNotSumToOne, pe.Kind)
}

func TestPairEmission(t *testing.T) {
	doc := `
name: g
overall_prob: 1
states:
  - name: init
    transitions: {g_0: 1.0}
  - name: g_0
    transitions: {end: 1.0}
    pair_emissions:
      probs: {AA: 0.7, AC: 0.1, CA: 0.1, CC: 0.1}
`
	m, err := Parse(strings.NewReader(doc), "g")
	require.NoError(t, err)
	s0 := m.StateByName("g_0")
	require.True(t, s0.HasPairEmission())
	assert.InDelta(t, math.Log(0.7), s0.PairEmissionLogProb('A', 'A'), 1e-9)
	assert.True(t, math.IsInf(s0.PairEmissionLogProb('G', 'G'), -1))
}
