package search

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/biogo/store/llrb"
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
	"github.com/grailbio/ham/germline"
	"github.com/grailbio/ham/hmm"
	"github.com/grailbio/ham/logspace"
	"github.com/grailbio/ham/seqpair"
	"github.com/grailbio/ham/trellis"
	"github.com/pkg/errors"
)

// Algorithm selects the decoding mode (spec.md §1).
type Algorithm string

const (
	Viterbi Algorithm = "viterbi"
	Forward Algorithm = "forward"
)

// TrellisOrigin records which code path produced a cached trellis, the
// debug-level-2 tagging recovered from jobholder.cc (SPEC_FULL.md §4.10).
type TrellisOrigin int

const (
	OriginScratch TrellisOrigin = iota
	OriginChunk
)

func (o TrellisOrigin) String() string {
	if o == OriginChunk {
		return "chunk"
	}
	return "scratch"
}

// Opts configures an Engine. There is no flag parsing (Non-goal); callers
// construct Opts directly, in the style of fusion.Opts.
type Opts struct {
	Algorithm   Algorithm
	ChunkCache  bool
	NBestEvents int // 0 means "keep all events"
	OnlyGenes   map[germline.Region][]string
}

// DefaultOpts returns Viterbi decoding with chunk caching enabled and no
// whitelist, the engine's default configuration.
func DefaultOpts() Opts {
	return Opts{Algorithm: Viterbi, ChunkCache: true}
}

// OptsFromWhitelistString builds Opts.OnlyGenes from a single
// colon-delimited gene-name string (e.g. "IGHV1-2*01:IGHD1-1*01:IGHJ1*01"),
// the form partis callers historically pass a whitelist in (SPEC_FULL.md
// §4.10). Each gene's region is inferred via germline.RegionOfGene.
func OptsFromWhitelistString(whitelist string) (Opts, error) {
	opts := DefaultOpts()
	if whitelist == "" {
		return opts, nil
	}
	opts.OnlyGenes = make(map[germline.Region][]string)
	for _, gene := range strings.Split(whitelist, ":") {
		if gene == "" {
			continue
		}
		region, err := germline.RegionOfGene(gene)
		if err != nil {
			return Opts{}, errors.Wrap(err, "search: parsing whitelist string")
		}
		opts.OnlyGenes[region] = append(opts.OnlyGenes[region], gene)
	}
	return opts, nil
}

// allowed implements spec.md §4.4's "skip if whitelist non-empty and gene
// not whitelisted": once OnlyGenes is set at all, a region with no entries
// of its own allows no genes, rather than falling back to "unrestricted".
func (o Opts) allowed(region germline.Region, gene string) bool {
	if o.OnlyGenes == nil {
		return true
	}
	for _, g := range o.OnlyGenes[region] {
		if g == gene {
			return true
		}
	}
	return false
}

// geneScore is the llrb.Comparable key/value pair backing
// Engine.bestPerGeneScores: ordered by gene name, exactly the way the
// original std::map<string,double> orders it (SPEC_FULL.md §4.9).
type geneScore struct {
	gene  string
	score float64
}

func (g geneScore) Compare(other llrb.Comparable) int {
	o := other.(geneScore)
	switch {
	case g.gene < o.gene:
		return -1
	case g.gene > o.gene:
		return 1
	default:
		return 0
	}
}

// cacheEntry is one previously computed trellis for a gene, stored in
// trellisi under its exact query key and in trellisAll for chunk-cache
// prefix scanning. Score-cache lookups read allScores, not these entries.
type cacheEntry struct {
	seqs    seqpair.Sequences
	trellis *trellis.DPTrellis
	origin  TrellisOrigin
}

// Engine is the search and scoring engine (the "job holder", spec.md §2).
// It owns a read-only germline catalogue and model store across queries,
// and a set of per-query caches cleared at the start of every Run.
type Engine struct {
	catalogue *germline.Catalogue
	store     *hmm.ModelStore
	opts      Opts

	trellisi   map[string]map[uint64]*cacheEntry
	trellisAll map[string][]*cacheEntry // for chunk-cache prefix scanning
	paths      map[string]map[uint64]*trellis.TracebackPath
	allScores  map[string]map[uint64]float64

	bestPerGeneScores llrb.Tree

	nTooLong      int
	nShortV       int
	nLongErosions int
}

// NewEngine builds an Engine over a fixed catalogue and model store.
func NewEngine(catalogue *germline.Catalogue, store *hmm.ModelStore, opts Opts) *Engine {
	e := &Engine{catalogue: catalogue, store: store, opts: opts}
	e.Clear()
	return e
}

// Clear releases all per-query caches (spec.md §5, "Clear() is the
// explicit lifecycle boundary"). Run calls this at entry; callers never
// need to call it directly unless abandoning a query early.
func (e *Engine) Clear() {
	e.trellisi = make(map[string]map[uint64]*cacheEntry)
	e.trellisAll = make(map[string][]*cacheEntry)
	e.paths = make(map[string]map[uint64]*trellis.TracebackPath)
	e.allScores = make(map[string]map[uint64]float64)
	e.bestPerGeneScores = llrb.Tree{}
	e.nTooLong = 0
	e.nShortV = 0
	e.nLongErosions = 0
}

func queryKey(seqs seqpair.Sequences) uint64 {
	first, second := seqs.Strings()
	return farm.Hash64([]byte(first + "\x00" + second))
}

func isPrefixSeqs(shorter, longer seqpair.Sequences) bool {
	if shorter.Len() >= longer.Len() || shorter.NSeqs() != longer.NSeqs() {
		return false
	}
	sf, ss := shorter.Strings()
	lf, ls := longer.Strings()
	if sf != lf[:len(sf)] {
		return false
	}
	if shorter.NSeqs() == 2 && ss != ls[:len(ss)] {
		return false
	}
	return true
}

// FillTrellis implements spec.md §4.5: find-or-build a trellis for
// (gene, subSeqs), run the configured algorithm, and record the result in
// the per-query caches. It returns the raw (not gene-prior-corrected)
// score and, under Viterbi, the traceback path (nil if no valid path).
func (e *Engine) FillTrellis(ctx context.Context, gene string, subSeqs seqpair.Sequences) (score float64, path *trellis.TracebackPath, origin TrellisOrigin, err error) {
	model, err := e.store.Get(ctx, gene)
	if err != nil {
		return 0, nil, OriginScratch, err
	}

	var dp *trellis.DPTrellis
	origin = OriginScratch
	if e.opts.ChunkCache {
		var seed *cacheEntry
		for _, entry := range e.trellisAll[gene] {
			if isPrefixSeqs(entry.seqs, subSeqs) && (seed == nil || entry.seqs.Len() > seed.seqs.Len()) {
				seed = entry
			}
		}
		if seed != nil {
			dp = trellis.NewFromSeed(model, subSeqs, seed.trellis)
			origin = OriginChunk
		}
	}
	if dp == nil {
		dp = trellis.New(model, subSeqs)
	}

	switch e.opts.Algorithm {
	case Forward:
		dp.Forward()
		score = dp.EndingForwardLogProb()
	default:
		dp.Viterbi()
		score = dp.EndingViterbiLogProb()
		if !math.IsInf(score, -1) {
			path = trellis.NewTracebackPath()
			if tbErr := dp.Traceback(path); tbErr != nil {
				return 0, nil, origin, errors.Wrapf(tbErr, "search: traceback for gene %s", gene)
			}
			if math.Abs(path.Score()-score) > 1e-9 {
				log.Panicf("search: traceback score %.9f disagrees with ending viterbi log prob %.9f for gene %s", path.Score(), score, gene)
			}
		}
	}

	entry := &cacheEntry{seqs: subSeqs, trellis: dp, origin: origin}
	e.trellisAll[gene] = append(e.trellisAll[gene], entry)
	key := queryKey(subSeqs)
	if e.trellisi[gene] == nil {
		e.trellisi[gene] = make(map[uint64]*cacheEntry)
	}
	e.trellisi[gene][key] = entry
	if e.paths[gene] == nil {
		e.paths[gene] = make(map[uint64]*trellis.TracebackPath)
	}
	e.paths[gene][key] = path

	log.Debug.Printf("search: gene %s trellis origin=%s", gene, origin)
	return score, path, origin, nil
}

// scoreGene implements the score-cache lookup and gene-choice-prior
// correction described in spec.md §4.4.
func (e *Engine) scoreGene(ctx context.Context, gene string, subSeqs seqpair.Sequences) (score float64, path *trellis.TracebackPath, err error) {
	key := queryKey(subSeqs)
	if cached, ok := e.allScores[gene][key]; ok {
		return cached, e.paths[gene][key], nil
	}

	raw, path, _, err := e.FillTrellis(ctx, gene, subSeqs)
	if err != nil {
		return 0, nil, err
	}
	model, err := e.store.Get(ctx, gene)
	if err != nil {
		return 0, nil, err
	}
	score = logspace.Product(raw, math.Log(model.OverallProb))

	if e.allScores[gene] == nil {
		e.allScores[gene] = make(map[uint64]float64)
	}
	e.allScores[gene][key] = score
	return score, path, nil
}

func (e *Engine) updateBestPerGene(gene string, score float64) {
	key := geneScore{gene: gene}
	if existing := e.bestPerGeneScores.Get(key); existing != nil {
		if existing.(geneScore).score >= score {
			return
		}
	}
	e.bestPerGeneScores.Insert(geneScore{gene: gene, score: score})
}

// regionWindow is one region's slice of the query plus its region, used by
// both scoring and event reconstruction.
type regionWindow struct {
	region germline.Region
	seqs   seqpair.Sequences
}

func regionWindows(query seqpair.Sequences, kset KSet) []regionWindow {
	return []regionWindow{
		{germline.V, query.Slice(0, kset.V)},
		{germline.D, query.Slice(kset.V, kset.D)},
		{germline.J, query.Slice(kset.V+kset.D, query.Len()-kset.V-kset.D)},
	}
}

// runKSet implements spec.md §4.4 for a single kset: per-region gene
// scoring, regional aggregation, and (under Viterbi) event reconstruction.
func (e *Engine) runKSet(ctx context.Context, query seqpair.Sequences, kset KSet) (best, total float64, event *RecoEvent, err error) {
	windows := regionWindows(query, kset)

	regionalBest := make(map[germline.Region]float64, 3)
	regionalTotal := make(map[germline.Region]float64, 3)
	bestGene := make(map[germline.Region]string, 3)

	for _, win := range windows {
		regionalTotal[win.region] = math.Inf(-1)
		regionalBest[win.region] = math.Inf(-1)

		for _, gene := range e.catalogue.Genes(win.region) {
			if !e.opts.allowed(win.region, gene) {
				continue
			}
			germlineLen := e.catalogue.Len(gene)
			if win.region == germline.V && win.seqs.Len() > germlineLen {
				e.nShortV++
				continue
			}
			if win.seqs.Len() < germlineLen-10 {
				e.nLongErosions++
			}

			score, _, scoreErr := e.scoreGene(ctx, gene, win.seqs)
			if scoreErr != nil {
				return math.Inf(-1), math.Inf(-1), nil, scoreErr
			}
			if math.IsInf(score, -1) {
				continue
			}

			regionalTotal[win.region] = logspace.Sum(regionalTotal[win.region], score)
			if score > regionalBest[win.region] {
				regionalBest[win.region] = score
				bestGene[win.region] = gene
			}
			e.updateBestPerGene(gene, score)
		}

		if bestGene[win.region] == "" {
			return math.Inf(-1), math.Inf(-1), nil, nil
		}
	}

	best = logspace.ProductAll(regionalBest[germline.V], regionalBest[germline.D], regionalBest[germline.J])
	total = logspace.ProductAll(regionalTotal[germline.V], regionalTotal[germline.D], regionalTotal[germline.J])

	if e.opts.Algorithm == Forward || math.IsInf(best, -1) {
		return best, total, nil, nil
	}

	event, err = e.reconstructEvent(kset, windows, bestGene, best)
	if err != nil {
		return best, total, nil, err
	}
	return best, total, event, nil
}

func (e *Engine) reconstructEvent(kset KSet, windows []regionWindow, bestGene map[germline.Region]string, score float64) (*RecoEvent, error) {
	event := &RecoEvent{KSet: kset, Score: score}

	pairArity := windows[0].seqs.NSeqs()
	observedFirst := make([]string, 0, len(windows))
	observedSecond := make([]string, 0, len(windows))

	for _, win := range windows {
		gene := bestGene[win.region]
		key := queryKey(win.seqs)
		path := e.paths[gene][key]
		if path == nil {
			return nil, errors.Errorf("search: missing traceback path for best gene %s in region %s", gene, win.region)
		}

		germlineLen := e.catalogue.Len(gene)
		first, second := win.seqs.Strings()
		call, insBases, insLen, err := reconstructRegion(win.region, gene, path, first, germlineLen)
		if err != nil {
			return nil, err
		}
		event.Calls = append(event.Calls, call)
		observedFirst = append(observedFirst, first)
		if pairArity == 2 {
			observedSecond = append(observedSecond, second)
		}

		if insLen > 0 {
			label := insertionLabel(win.region)
			event.Insertions = append(event.Insertions, Insertion{
				Label: label,
				Side:  insertionSide(label),
				Bases: insBases,
			})
		}
	}

	event.Observed = []string{strings.Join(observedFirst, "")}
	if pairArity == 2 {
		event.Observed = append(event.Observed, strings.Join(observedSecond, ""))
	}
	return event, nil
}

// Run implements spec.md §4.3: the per-query driver.
func (e *Engine) Run(ctx context.Context, query seqpair.Sequences, bounds KBounds) (*Result, error) {
	bounds.Validate()
	if n := query.NSeqs(); n != 1 && n != 2 {
		log.Panicf("search: query arity must be 1 or 2, got %d", n)
	}
	e.Clear()

	seqLen := query.Len()
	runningTotal := math.Inf(-1)
	bestScore := math.Inf(-1)
	var bestKSet KSet
	haveBest := false
	var events []*RecoEvent

	for v := bounds.VMax - 1; v >= bounds.VMin; v-- {
		for d := bounds.DMax - 1; d >= bounds.DMin; d-- {
			kset := KSet{V: v, D: d}
			if v+d >= seqLen {
				e.nTooLong++
				continue
			}

			best, total, event, err := e.runKSet(ctx, query, kset)
			if err != nil {
				return nil, err
			}
			runningTotal = logspace.Sum(runningTotal, total)
			if math.IsInf(best, -1) {
				continue
			}
			if best > bestScore {
				bestScore = best
				bestKSet = kset
				haveBest = true
			}
			if e.opts.Algorithm != Forward && event != nil {
				events = append(events, event)
			}
		}
	}

	log.Debug.Printf("search: n_too_long=%d n_short_v=%d n_long_erosions=%d", e.nTooLong, e.nShortV, e.nLongErosions)

	result := &Result{KBounds: bounds, TotalScore: runningTotal}
	if !haveBest {
		result.NoPath = true
		return result, nil
	}

	if e.opts.Algorithm != Forward {
		sortEventsDescending(events)
		if e.opts.NBestEvents > 0 && len(events) > e.opts.NBestEvents {
			events = events[:e.opts.NBestEvents]
		}
		result.Events = events
	}

	result.BoundaryError, result.BetterKBounds, result.CouldNotExpand = checkBoundaries(bestKSet, bounds)
	return result, nil
}

// WriteBestGeneProbs appends one CSV record to w, per spec.md §4.7:
// "<query_name>,<gene>:<score>;<gene>:<score>;…", iterated in
// Engine.bestPerGeneScores' sorted-by-gene-name order, with no trailing
// semicolon.
func (e *Engine) WriteBestGeneProbs(w io.Writer, queryName string) error {
	var parts []string
	e.bestPerGeneScores.Do(func(item llrb.Comparable) bool {
		gs := item.(geneScore)
		parts = append(parts, fmt.Sprintf("%s:%g", gs.gene, gs.score))
		return false
	})
	_, err := fmt.Fprintf(w, "%s,%s\n", queryName, strings.Join(parts, ";"))
	return err
}
