package hmm

import "math"

// Transition is one outgoing edge of a State, in log-probability space
// (spec.md §3, "HMM state").
type Transition struct {
	ToState string
	LogProb float64
}

// State is a single HMM state: a unique name, an optional human label, an
// ordered vector of outgoing transitions (holes explicit after reordering),
// at most one transition to "end", and optional single/pair emission
// distributions (spec.md §3).
//
// "init" and "end" are reserved names (spec.md §4.2); init states never
// carry emissions.
type State struct {
	Name  string
	Label string
	Index int // position in Model.States; unset (-1) for the init state

	// transitions is ordered so that position i holds the outgoing
	// transition to the state with Index i, or nil if no such transition
	// exists (spec.md §3, "After parse, transitions are re-ordered...").
	transitions []*Transition
	endTrans    *Transition

	emission     map[byte]float64    // log prob per base; nil for init or non-emitting states
	pairEmission map[[2]byte]float64 // log prob per base pair; nil if absent
}

// isInsertName reports whether a state name denotes an "insert" (N-region)
// state, per the prefix-match convention spec.md §4.6 and §9 require be
// kept behind a named predicate rather than inlined.
func isInsertName(name string) bool {
	return len(name) >= len("insert") && name[:len("insert")] == "insert"
}

// IsInsert reports whether this state is an insert state.
func (s *State) IsInsert() bool { return isInsertName(s.Name) }

// IsInsertStateName is the exported form of isInsertName, for callers (like
// package search) that only have a traceback's bare state name strings and
// not a *State to call IsInsert on.
func IsInsertStateName(name string) bool { return isInsertName(name) }

// TransitionLogProb returns the log-probability of the transition to the
// state with the given global index, and whether that transition exists
// (a "hole" in the reordered vector means ok is false and the returned
// log-prob is -Inf, i.e. probability 0).
func (s *State) TransitionLogProb(toIndex int) (logProb float64, ok bool) {
	if toIndex < 0 || toIndex >= len(s.transitions) || s.transitions[toIndex] == nil {
		return math.Inf(-1), false
	}
	return s.transitions[toIndex].LogProb, true
}

// EndTransLogProb returns the log-probability of transitioning to "end",
// or -Inf if this state has no such transition (spec.md §4.2).
func (s *State) EndTransLogProb() float64 {
	if s.endTrans == nil {
		return math.Inf(-1)
	}
	return s.endTrans.LogProb
}

// EmissionLogProb returns the log-probability of emitting base under this
// state's single-sequence emission distribution, or -Inf if the base is
// unknown to the distribution or the state has none.
func (s *State) EmissionLogProb(base byte) float64 {
	if s.emission == nil {
		return math.Inf(-1)
	}
	if p, ok := s.emission[base]; ok {
		return p
	}
	return math.Inf(-1)
}

// PairEmissionLogProb returns the log-probability of jointly emitting
// (b1, b2) under this state's pair-emission distribution, or -Inf if
// absent (spec.md §3, "Pair HMM").
func (s *State) PairEmissionLogProb(b1, b2 byte) float64 {
	if s.pairEmission == nil {
		return math.Inf(-1)
	}
	if p, ok := s.pairEmission[[2]byte{b1, b2}]; ok {
		return p
	}
	return math.Inf(-1)
}

// HasPairEmission reports whether this state carries a pair-emission
// distribution, i.e. whether the "pair HMM" code path is engaged for it.
func (s *State) HasPairEmission() bool { return s.pairEmission != nil }
