package trellis

import (
	"math"

	"github.com/grailbio/ham/hmm"
	"github.com/grailbio/ham/logspace"
	"github.com/grailbio/ham/seqpair"
	"github.com/grailbio/ham/util"
	"github.com/pkg/errors"
)

// DPTrellis is the reference Trellis implementation: a dense per-state,
// per-position DP table backed by util.LogMatrix. One column corresponds
// to one emitted base; row s is the HMM state with global index s.
type DPTrellis struct {
	model *hmm.Model
	seqs  seqpair.Sequences

	// seed, when non-nil, is a previously computed trellis for a strict
	// prefix of seqs (spec.md §3, "chunk cache"): Viterbi/Forward reuse
	// its DP columns and only fill the extending ones.
	seed *DPTrellis

	viterbiTable      util.LogMatrix
	viterbiBack       [][]int // [state][col] -> predecessor state, or -1
	viterbiDone       bool
	viterbiEndLogProb float64

	forwardTable      util.LogMatrix
	forwardDone       bool
	forwardEndLogProb float64
}

// New constructs a fresh trellis for model and seqs.
func New(model *hmm.Model, seqs seqpair.Sequences) *DPTrellis {
	return &DPTrellis{model: model, seqs: seqs}
}

// NewFromSeed constructs a trellis seeded from a previously computed one
// whose sequences are a strict prefix of seqs (spec.md §3, §4.5 step 1).
// The caller is responsible for having verified the prefix relationship;
// Viterbi/Forward fall back to computing from scratch if seed did not run
// the requested pass.
func NewFromSeed(model *hmm.Model, seqs seqpair.Sequences, seed *DPTrellis) *DPTrellis {
	t := New(model, seqs)
	t.seed = seed
	return t
}

func (t *DPTrellis) nStates() int { return len(t.model.States) }

func (t *DPTrellis) emissionLogProb(state int, col int) float64 {
	st := t.model.States[state]
	first, second := t.seqs.Strings()
	if t.seqs.NSeqs() == 2 {
		if !st.HasPairEmission() {
			return math.Inf(-1)
		}
		return st.PairEmissionLogProb(first[col], second[col])
	}
	return st.EmissionLogProb(first[col])
}

// Viterbi runs the max-product DP pass (spec.md §4.5 step 3).
func (t *DPTrellis) Viterbi() {
	L := t.seqs.Len()
	n := t.nStates()
	if L == 0 {
		t.viterbiEndLogProb = math.Inf(-1)
		t.viterbiDone = true
		return
	}

	startCol := 0
	if t.seed != nil && t.seed.viterbiDone && t.seed.seqs.Len() < L && t.seed.seqs.Len() > 0 {
		startCol = t.seed.seqs.Len()
		t.viterbiTable = t.seed.viterbiTable.ExtendColumns(L - startCol)
		t.viterbiBack = make([][]int, n)
		for s := 0; s < n; s++ {
			t.viterbiBack[s] = make([]int, L)
			copy(t.viterbiBack[s], t.seed.viterbiBack[s])
		}
	} else {
		t.viterbiTable = util.NewLogMatrix(n, L)
		t.viterbiBack = make([][]int, n)
		for s := 0; s < n; s++ {
			t.viterbiBack[s] = make([]int, L)
		}
	}

	for j := startCol; j < L; j++ {
		for s := 0; s < n; s++ {
			best := math.Inf(-1)
			bestPrev := -1
			if j == 0 {
				if lp, ok := t.model.Init.TransitionLogProb(s); ok {
					best = lp
				}
			} else {
				for sp := 0; sp < n; sp++ {
					lp, ok := t.model.States[sp].TransitionLogProb(s)
					if !ok {
						continue
					}
					cand := t.viterbiTable.At(sp, j-1) + lp
					if cand > best {
						best = cand
						bestPrev = sp
					}
				}
			}
			best = logspace.Product(best, t.emissionLogProb(s, j))
			t.viterbiTable.Set(s, j, best)
			t.viterbiBack[s][j] = bestPrev
		}
	}

	end := math.Inf(-1)
	for s := 0; s < n; s++ {
		cand := logspace.Product(t.viterbiTable.At(s, L-1), t.model.States[s].EndTransLogProb())
		if cand > end {
			end = cand
		}
	}
	t.viterbiEndLogProb = end
	t.viterbiDone = true
}

// Forward runs the sum-product (marginal) DP pass (spec.md §4.5 step 4).
func (t *DPTrellis) Forward() {
	L := t.seqs.Len()
	n := t.nStates()
	if L == 0 {
		t.forwardEndLogProb = math.Inf(-1)
		t.forwardDone = true
		return
	}

	startCol := 0
	if t.seed != nil && t.seed.forwardDone && t.seed.seqs.Len() < L && t.seed.seqs.Len() > 0 {
		startCol = t.seed.seqs.Len()
		t.forwardTable = t.seed.forwardTable.ExtendColumns(L - startCol)
	} else {
		t.forwardTable = util.NewLogMatrix(n, L)
	}

	for j := startCol; j < L; j++ {
		for s := 0; s < n; s++ {
			total := math.Inf(-1)
			if j == 0 {
				if lp, ok := t.model.Init.TransitionLogProb(s); ok {
					total = lp
				}
			} else {
				for sp := 0; sp < n; sp++ {
					lp, ok := t.model.States[sp].TransitionLogProb(s)
					if !ok {
						continue
					}
					total = logspace.Sum(total, logspace.Product(t.forwardTable.At(sp, j-1), lp))
				}
			}
			total = logspace.Product(total, t.emissionLogProb(s, j))
			t.forwardTable.Set(s, j, total)
		}
	}

	end := math.Inf(-1)
	for s := 0; s < n; s++ {
		end = logspace.Sum(end, logspace.Product(t.forwardTable.At(s, L-1), t.model.States[s].EndTransLogProb()))
	}
	t.forwardEndLogProb = end
	t.forwardDone = true
}

// EndingViterbiLogProb implements Trellis.
func (t *DPTrellis) EndingViterbiLogProb() float64 {
	if !t.viterbiDone {
		return math.Inf(-1)
	}
	return t.viterbiEndLogProb
}

// EndingForwardLogProb implements Trellis.
func (t *DPTrellis) EndingForwardLogProb() float64 {
	if !t.forwardDone {
		return math.Inf(-1)
	}
	return t.forwardEndLogProb
}

// Traceback implements Trellis.
func (t *DPTrellis) Traceback(path *TracebackPath) error {
	if !t.viterbiDone {
		return errors.New("trellis: Traceback called before Viterbi")
	}
	L := t.seqs.Len()
	n := t.nStates()
	if L == 0 || math.IsInf(t.viterbiEndLogProb, -1) {
		return errors.New("trellis: no valid path to trace back")
	}

	bestState, bestScore := -1, math.Inf(-1)
	for s := 0; s < n; s++ {
		cand := logspace.Product(t.viterbiTable.At(s, L-1), t.model.States[s].EndTransLogProb())
		if cand > bestScore {
			bestScore = cand
			bestState = s
		}
	}
	if bestState == -1 {
		return errors.New("trellis: no valid path to trace back")
	}

	names := make([]string, L)
	cur := bestState
	for j := L - 1; j >= 0; j-- {
		names[j] = t.model.States[cur].Name
		cur = t.viterbiBack[cur][j]
		if cur == -1 && j > 0 {
			return errors.New("trellis: broken traceback: no predecessor before reaching column 0")
		}
	}
	path.names = names
	path.score = bestScore
	return nil
}

var _ Trellis = (*DPTrellis)(nil)
