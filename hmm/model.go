package hmm

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// modelDoc is the top-level structure of an HMM model YAML file
// (spec.md §6, "Model files").
type modelDoc struct {
	Name        string     `yaml:"name"`
	OverallProb float64    `yaml:"overall_prob"`
	States      []stateDoc `yaml:"states"`
}

type stateDoc struct {
	Name          string             `yaml:"name"`
	Label         string             `yaml:"label"`
	Transitions   map[string]float64 `yaml:"transitions"`
	Emissions     *emissionDoc       `yaml:"emissions,omitempty"`
	PairEmissions *emissionDoc       `yaml:"pair_emissions,omitempty"`
}

type emissionDoc struct {
	Probs map[string]float64 `yaml:"probs"`
}

// Model is a single gene's parsed HMM: an ordered, stably-indexed list of
// states, the distinguished init state, and the gene-choice prior
// (spec.md §3, "HMM model").
type Model struct {
	Gene        string
	OverallProb float64 // linear space, per spec.md §6 ("Model prior")
	Init        *State
	States      []*State // States[i].Index == i

	index map[string]int // non-init state name -> index into States
}

// StateByName returns a non-init state by name, or nil.
func (m *Model) StateByName(name string) *State {
	if i, ok := m.index[name]; ok {
		return m.States[i]
	}
	return nil
}

// Parse reads one HMM model YAML document (spec.md §6) for the given gene.
// It returns a *hmm.ParseError (not a generic error) for the two documented
// data-error conditions, so callers can distinguish "bad model file" from
// "bad YAML" and report per spec.md §7.
func Parse(r io.Reader, gene string) (*Model, error) {
	var doc modelDoc
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "hmm: decoding model YAML for gene %s", gene)
	}

	allNames := make(map[string]bool, len(doc.States))
	for _, sd := range doc.States {
		allNames[sd.Name] = true
	}

	m := &Model{
		Gene:        gene,
		OverallProb: doc.OverallProb,
		index:       make(map[string]int),
	}

	var nonInit []*State
	for _, sd := range doc.States {
		st, err := parseState(sd, allNames, gene)
		if err != nil {
			return nil, err
		}
		if sd.Name == "init" {
			m.Init = st
			continue
		}
		nonInit = append(nonInit, st)
	}
	if m.Init == nil {
		return nil, errors.Errorf("hmm: gene %s: model has no init state", gene)
	}

	for i, st := range nonInit {
		st.Index = i
		m.index[st.Name] = i
	}
	m.Init.Index = -1
	m.States = nonInit

	m.reindexTransitions()
	return m, nil
}

// reindexTransitions re-orders every state's (including init's) outgoing
// transition vector so that position i holds the transition to the state
// with global index i, per spec.md §4.2 and the invariant in spec.md §8.2.
func (m *Model) reindexTransitions() {
	n := len(m.States)
	reindex := func(st *State) {
		fixed := make([]*Transition, n)
		for _, t := range st.transitions {
			fixed[m.index[t.ToState]] = t
		}
		st.transitions = fixed
	}
	reindex(m.Init)
	for _, st := range m.States {
		reindex(st)
	}
}

func parseState(sd stateDoc, allNames map[string]bool, gene string) (*State, error) {
	st := &State{Name: sd.Name, Label: sd.Label}

	total := 0.0
	for to, prob := range sd.Transitions {
		if to != "end" && !allNames[to] {
			return nil, &ParseError{Kind: UnknownTransitionTarget, State: sd.Name, Gene: gene, Detail: to}
		}
		total += prob
		t := &Transition{ToState: to, LogProb: math.Log(prob)}
		if to == "end" {
			st.endTrans = t
		} else {
			st.transitions = append(st.transitions, t)
		}
	}
	if math.Abs(total-1.0) >= Epsilon {
		return nil, &ParseError{Kind: TransitionsDoNotSumToOne, State: sd.Name, Gene: gene, Detail: fmt.Sprintf("%.9f", total)}
	}

	if sd.Name == "init" {
		return st, nil
	}

	if sd.Emissions != nil {
		st.emission = make(map[byte]float64, len(sd.Emissions.Probs))
		for base, p := range sd.Emissions.Probs {
			st.emission[base[0]] = math.Log(p)
		}
	}
	if sd.PairEmissions != nil {
		st.pairEmission = make(map[[2]byte]float64, len(sd.PairEmissions.Probs))
		for bases, p := range sd.PairEmissions.Probs {
			if len(bases) != 2 {
				continue
			}
			st.pairEmission[[2]byte{bases[0], bases[1]}] = math.Log(p)
		}
	}
	return st, nil
}
