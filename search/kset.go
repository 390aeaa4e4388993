// Package search implements the search and scoring engine (the "job
// holder"): enumeration over V/D length hypotheses, per-gene HMM scoring,
// trellis caching, and Viterbi event reconstruction.
package search

import "github.com/grailbio/base/log"

// KSet is a concrete (k_v, k_d) hypothesis: k_v is the length of the V
// portion of the query (including the V-D insert), k_d the length of the D
// portion (including the D-J insert).
type KSet struct {
	V int
	D int
}

// KBounds is the half-open range of KSets the search engine considers:
// v in [VMin, VMax), d in [DMin, DMax).
type KBounds struct {
	VMin, VMax int
	DMin, DMax int
}

// Validate checks the preconditions spec.md §4.3 requires the caller to
// have established before calling Run; violations are programmer error,
// not data error, so they are reported via log.Panicf rather than an
// error return.
func (b KBounds) Validate() {
	if b.VMax <= b.VMin {
		log.Panicf("search: KBounds invalid: vmax %d <= vmin %d", b.VMax, b.VMin)
	}
	if b.DMax <= b.DMin {
		log.Panicf("search: KBounds invalid: dmax %d <= dmin %d", b.DMax, b.DMin)
	}
	if b.VMin < 1 {
		log.Panicf("search: KBounds invalid: vmin %d < 1", b.VMin)
	}
	if b.DMin < 1 {
		log.Panicf("search: KBounds invalid: dmin %d < 1", b.DMin)
	}
}

// VWidth and DWidth are the sizes of the two half-open ranges.
func (b KBounds) VWidth() int { return b.VMax - b.VMin }
func (b KBounds) DWidth() int { return b.DMax - b.DMin }
