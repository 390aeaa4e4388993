// Package germline holds the germline gene catalogue: the region → gene-name
// lists and gene-name → germline nucleotide sequence mappings the search
// engine hypothesizes over (spec.md §3, "Germline catalogue"; §4.1).
package germline

import (
	"io"
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/ham/encoding/fasta"
	"github.com/pkg/errors"
)

// Region is one of the three recombining gene segments, ordered v, d, j
// exactly as spec.md §3 states ("Region: one of {v, d, j}, ordered").
type Region int

const (
	V Region = iota
	D
	J
)

// Regions is the canonical, ordered list of regions the search engine
// iterates over.
var Regions = []Region{V, D, J}

// String renders the region as its single lowercase letter.
func (r Region) String() string {
	switch r {
	case V:
		return "v"
	case D:
		return "d"
	case J:
		return "j"
	default:
		return "?"
	}
}

var familyPrefixRE = regexp.MustCompile(`^([A-Za-z]+)([VDJ])`)

// RegionOfGene infers a gene's region from its name via the gene name
// grammar in spec.md §6: <family-prefix> + <letter V|D|J> + rest.
func RegionOfGene(gene string) (Region, error) {
	m := familyPrefixRE.FindStringSubmatch(gene)
	if m == nil {
		return 0, errors.Errorf("germline: gene name %q does not match <prefix><V|D|J>... grammar", gene)
	}
	switch m[2] {
	case "V":
		return V, nil
	case "D":
		return D, nil
	case "J":
		return J, nil
	}
	return 0, errors.Errorf("germline: unreachable region letter %q", m[2])
}

var sanitizeRE = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SanitizeName deterministically maps a gene name to a filesystem-safe
// token, for use as an HMM model file's basename (spec.md §4.1, §6). Gene
// names contain characters like '*' and '/' (e.g. "IGHV1-2*01") that are
// unsafe or ambiguous in paths; every run of such characters collapses to a
// single underscore.
func SanitizeName(gene string) string {
	return sanitizeRE.ReplaceAllString(gene, "_")
}

// Catalogue is the immutable-after-construction germline gene database:
// per-region ordered gene name lists, and gene name -> germline nucleotide
// string.
type Catalogue struct {
	names map[Region][]string
	seqs  map[string]string
}

// NewCatalogue loads a germline catalogue from a FASTA reference whose
// headers are germline gene names (e.g. ">IGHV1-2*01"), using
// github.com/grailbio/ham/encoding/fasta the same way the teacher loads
// transcriptome references. Genes are assigned to regions by
// RegionOfGene, and are kept in FASTA order within each region — that
// order is the "catalogue order" spec.md §4.4 iterates RunKSet over.
func NewCatalogue(r io.Reader) (*Catalogue, error) {
	fa, err := fasta.New(r, fasta.OptClean)
	if err != nil {
		return nil, errors.Wrap(err, "germline: parsing reference FASTA")
	}
	c := &Catalogue{
		names: make(map[Region][]string, len(Regions)),
		seqs:  make(map[string]string),
	}
	for _, gene := range fa.SeqNames() {
		region, err := RegionOfGene(gene)
		if err != nil {
			return nil, err
		}
		length, err := fa.Len(gene)
		if err != nil {
			return nil, errors.Wrap(err, "germline: reading sequence length")
		}
		seq, err := fa.Get(gene, 0, length)
		if err != nil {
			return nil, errors.Wrap(err, "germline: reading sequence")
		}
		c.names[region] = append(c.names[region], gene)
		c.seqs[gene] = seq
	}
	return c, nil
}

// Genes returns the ordered gene name list for a region.
func (c *Catalogue) Genes(region Region) []string {
	return c.names[region]
}

// Seq returns a gene's germline nucleotide string and whether it is known.
func (c *Catalogue) Seq(gene string) (string, bool) {
	s, ok := c.seqs[gene]
	return s, ok
}

// Len returns the length of a gene's germline sequence; it panics if the
// gene is unknown, since callers are expected to have checked Seq's ok
// return or to only pass catalogue genes (precondition violation, per
// spec.md §7).
func (c *Catalogue) Len(gene string) int {
	s, ok := c.seqs[gene]
	if !ok {
		panic("germline: unknown gene " + gene)
	}
	return len(s)
}

// Suggest returns the catalogued gene name closest to the given (unknown)
// name by Jaro-Winkler similarity, for use in diagnostics when a whitelist
// entry or file lookup doesn't resolve. Returns "" if the catalogue is
// empty.
func (c *Catalogue) Suggest(region Region, name string) string {
	best := ""
	bestScore := -1.0
	for _, gene := range c.names[region] {
		score := matchr.JaroWinkler(strings.ToUpper(name), strings.ToUpper(gene), true)
		if score > bestScore {
			bestScore = score
			best = gene
		}
	}
	return best
}
