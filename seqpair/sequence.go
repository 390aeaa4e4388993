// Package seqpair holds the query sequence value types consumed by the
// search engine: a single named nucleotide string, and a Sequences value
// carrying one or two equal-length sequences through the V(D)J search
// (spec.md §3, "Sequence"/"Sequences").
package seqpair

import (
	"github.com/grailbio/ham/biosimd"
	"github.com/grailbio/base/unsafe"
	"github.com/pkg/errors"
)

// Sequence is an identified nucleotide string.
type Sequence struct {
	name string
	bases string
}

// NewSequence builds a Sequence, cleaning it to uppercase ACGTN via
// biosimd.CleanASCIISeqInplace the same way encoding/fasta cleans reference
// sequences on load.
func NewSequence(name, bases string) Sequence {
	b := []byte(bases)
	biosimd.CleanASCIISeqInplace(b)
	return Sequence{name: name, bases: string(b)}
}

// Name returns the sequence's identifier.
func (s Sequence) Name() string { return s.name }

// Bases returns the cleaned nucleotide string.
func (s Sequence) Bases() string { return s.bases }

// Len returns the number of bases.
func (s Sequence) Len() int { return len(s.bases) }

// HasNonACGT reports whether the cleaned sequence still contains a
// non-ACGT byte (e.g. an ambiguity code), via biosimd.IsNonACGTPresent.
func (s Sequence) HasNonACGT() bool {
	return biosimd.IsNonACGTPresent(unsafe.StringToBytes(s.bases))
}

// slice returns the subsequence [start, start+length).
func (s Sequence) slice(start, length int) Sequence {
	return Sequence{name: s.name, bases: s.bases[start : start+length]}
}

// Sequences holds one or two equal-length sequences, the arity the rest of
// the search engine is built around (spec.md §3).
type Sequences struct {
	seqs []Sequence
}

// NewSequences builds a Sequences value from 1 or 2 sequences of equal
// length. It returns an error (not a panic) because malformed input arity
// or length mismatch can originate from untrusted callers, unlike the
// internal invariants the search engine asserts on.
func NewSequences(seqs ...Sequence) (Sequences, error) {
	if len(seqs) != 1 && len(seqs) != 2 {
		return Sequences{}, errors.Errorf("seqpair: arity must be 1 or 2, got %d", len(seqs))
	}
	if len(seqs) == 2 && seqs[0].Len() != seqs[1].Len() {
		return Sequences{}, errors.Errorf("seqpair: sequences must have equal length, got %d and %d",
			seqs[0].Len(), seqs[1].Len())
	}
	return Sequences{seqs: append([]Sequence{}, seqs...)}, nil
}

// NSeqs returns the arity (1 or 2).
func (s Sequences) NSeqs() int { return len(s.seqs) }

// Len returns the shared sequence length.
func (s Sequences) Len() int {
	if len(s.seqs) == 0 {
		return 0
	}
	return s.seqs[0].Len()
}

// At returns the i'th sequence (0 or 1).
func (s Sequences) At(i int) Sequence { return s.seqs[i] }

// Strings returns (first.Bases(), second.Bases()); second is "" when the
// arity is 1. This is the StrPair of the original C++ jobholder.cc.
func (s Sequences) Strings() (first, second string) {
	first = s.seqs[0].Bases()
	if len(s.seqs) == 2 {
		second = s.seqs[1].Bases()
	}
	return first, second
}

// Slice returns the subsequence [start, start+length) of every member,
// preserving arity, per spec.md §3's "slicing" operation.
func (s Sequences) Slice(start, length int) Sequences {
	out := make([]Sequence, len(s.seqs))
	for i, seq := range s.seqs {
		out[i] = seq.slice(start, length)
	}
	return Sequences{seqs: out}
}
