package search

import (
	"regexp"
	"strconv"

	"github.com/grailbio/ham/germline"
	"github.com/grailbio/ham/hmm"
	"github.com/grailbio/ham/trellis"
	"github.com/pkg/errors"
)

// InsertionSide records which side of its neighboring region an insertion
// is reported as attached to (spec.md §4.6, "side selection").
type InsertionSide int

const (
	// Left is the side every insertion label uses except "jf".
	Left InsertionSide = iota
	// Right is the side label "jf" uses (post-J insert, right of j).
	Right
)

// Insertion is one labelled run of non-templated bases between (or after)
// germline segments.
type Insertion struct {
	Label string
	Side  InsertionSide
	Bases string
}

// RegionCall is one region's contribution to a RecoEvent: the chosen gene
// and its erosion lengths.
type RegionCall struct {
	Region       germline.Region
	Gene         string
	LeftErosion  int
	RightErosion int
}

// RecoEvent is a single reconstructed V(D)J recombination event (spec.md
// §3, "RecoEvent").
type RecoEvent struct {
	KSet       KSet
	Calls      []RegionCall // one per region in germline.Regions order
	Insertions []Insertion
	Observed   []string // the event-level observed sequence(s)
	Score      float64
}

// stateNameRE matches the HMM state-name grammar spec.md §6 specifies for
// non-init, non-insert states: <family><gene>_<position>.
var stateNameRE = regexp.MustCompile(`^(.+)_(\d+)$`)

// insertRunLengths returns the lengths of the leading and trailing runs of
// insert-state names in names. The open question in spec.md §9 about the
// right-hand loop underflowing when every state is an insert is resolved
// here by bounding the trailing scan at the end of the leading run, rather
// than by a separately decrementing counter.
func insertRunLengths(names []string) (left, right int) {
	n := len(names)
	for left < n && hmm.IsInsertStateName(names[left]) {
		left++
	}
	if left == n {
		return left, 0
	}
	for right < n-left && hmm.IsInsertStateName(names[n-1-right]) {
		right++
	}
	return left, right
}

// parseStatePosition extracts the embedded germline position from a
// non-insert state name of the form <family><gene>_<position>.
func parseStatePosition(name, gene string) (int, error) {
	m := stateNameRE.FindStringSubmatch(name)
	if m == nil {
		return 0, &StateNameUnparseable{StateName: name, Gene: gene}
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, &StateNameUnparseable{StateName: name, Gene: gene}
	}
	return pos, nil
}

// computeErosionsLen implements spec.md §4.6's erosion-length computation
// from a Viterbi path over one region's germline gene; germlineLen is that
// gene's germline sequence length.
func computeErosionsLen(names []string, gene string, germlineLen int) (left, right int, err error) {
	allInsert := true
	for _, n := range names {
		if !hmm.IsInsertStateName(n) {
			allInsert = false
			break
		}
	}
	if allInsert {
		left = germlineLen / 2
		right = germlineLen - left
		return left, right, nil
	}

	leftmost, rightmost := -1, -1
	for i, n := range names {
		if !hmm.IsInsertStateName(n) {
			leftmost = i
			break
		}
	}
	for i := len(names) - 1; i >= 0; i-- {
		if !hmm.IsInsertStateName(names[i]) {
			rightmost = i
			break
		}
	}

	leftPos, err := parseStatePosition(names[leftmost], gene)
	if err != nil {
		return 0, 0, err
	}
	rightPos, err := parseStatePosition(names[rightmost], gene)
	if err != nil {
		return 0, 0, err
	}
	return leftPos, germlineLen - rightPos - 1, nil
}

// reconstructRegion builds one region's RegionCall and its right-hand
// insertion run (the only insertion source under the k_v/k_d slicing
// convention in spec.md §3: each region's k-length already absorbs its own
// downstream insert).
func reconstructRegion(region germline.Region, gene string, path *trellis.TracebackPath, observed string, germlineLen int) (RegionCall, string, int, error) {
	names := path.NameVector()
	if len(names) != len(observed) {
		return RegionCall{}, "", 0, errors.Errorf("search: path length %d != observed length %d for gene %s", len(names), len(observed), gene)
	}

	_, rightIns := insertRunLengths(names)
	left, right, err := computeErosionsLen(names, gene, germlineLen)
	if err != nil {
		return RegionCall{}, "", 0, err
	}

	insBases := ""
	if rightIns > 0 {
		insBases = observed[len(observed)-rightIns:]
	}

	return RegionCall{Region: region, Gene: gene, LeftErosion: left, RightErosion: right}, insBases, rightIns, nil
}

// insertionLabel and insertionSide implement the fixed label/side table in
// spec.md §4.6.
func insertionLabel(region germline.Region) string {
	switch region {
	case germline.V:
		return "vd"
	case germline.D:
		return "dj"
	case germline.J:
		return "jf"
	default:
		return ""
	}
}

func insertionSide(label string) InsertionSide {
	if label == "jf" {
		return Right
	}
	return Left
}
