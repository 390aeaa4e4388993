// Package trellis implements the low-level DP engine that the search engine
// treats as an external collaborator (spec.md §1): given one HMM plus one
// Sequences value, it computes a Viterbi or Forward dynamic-programming
// table over states x positions. spec.md specifies only the interface this
// package must expose (Trellis); this file is that interface, plus
// TracebackPath. engine.go holds the reference DP implementation.
package trellis

// Trellis is the opaque DP structure spec.md §3 describes: it exposes
// Viterbi/Forward decoding, the two "ending" log-probabilities, and
// traceback into a caller-supplied path.
type Trellis interface {
	// Viterbi runs the max-product DP pass.
	Viterbi()
	// Forward runs the sum-product (marginal) DP pass.
	Forward()
	// EndingViterbiLogProb returns the best end-to-end log-probability
	// found by Viterbi, or -Inf if Viterbi has not run or no path reaches
	// "end".
	EndingViterbiLogProb() float64
	// EndingForwardLogProb returns the total log-marginal probability
	// found by Forward, or -Inf if Forward has not run or no path
	// reaches "end".
	EndingForwardLogProb() float64
	// Traceback reconstructs the best Viterbi path into path. It returns
	// an error if Viterbi has not run or no path exists.
	Traceback(path *TracebackPath) error
}

// TracebackPath is an ordered sequence of state names, one per emitted
// base (spec.md §3, "TracebackPath").
type TracebackPath struct {
	names []string
	score float64
}

// NewTracebackPath returns an empty path ready to be filled by
// Trellis.Traceback.
func NewTracebackPath() *TracebackPath {
	return &TracebackPath{}
}

// Size returns the number of states in the path (0 if no path was found).
func (p *TracebackPath) Size() int { return len(p.names) }

// NameVector returns the path's state names, in emission order.
func (p *TracebackPath) NameVector() []string { return p.names }

// Score returns the path's total Viterbi log-probability.
func (p *TracebackPath) Score() float64 { return p.score }
