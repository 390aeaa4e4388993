package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/ham/germline"
	"github.com/grailbio/ham/hmm"
	"github.com/grailbio/ham/seqpair"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMatchModelYAML generates a simple left-to-right HMM that matches
// germlineSeq base-for-base: init -> gene_0 -> gene_1 -> ... -> end, with
// each state preferring its own germline base.
func buildMatchModelYAML(gene, germlineSeq string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\noverall_prob: 0.5\nstates:\n", gene)
	fmt.Fprintf(&b, "  - name: init\n    transitions:\n      %s_0: 1.0\n", gene)

	bases := []byte("ACGT")
	for i := 0; i < len(germlineSeq); i++ {
		fmt.Fprintf(&b, "  - name: %s_%d\n    label: m\n    transitions:\n", gene, i)
		if i < len(germlineSeq)-1 {
			fmt.Fprintf(&b, "      %s_%d: 0.9\n      end: 0.1\n", gene, i+1)
		} else {
			fmt.Fprintf(&b, "      end: 1.0\n")
		}
		fmt.Fprintf(&b, "    emissions:\n      probs:\n")
		correct := germlineSeq[i]
		for _, base := range bases {
			p := 0.01
			if base == correct {
				p = 0.97
			}
			fmt.Fprintf(&b, "        %c: %.2f\n", base, p)
		}
	}
	return b.String()
}

type testFixture struct {
	catalogue *germline.Catalogue
	store     *hmm.ModelStore
	query     seqpair.Sequences
	cleanup   func()
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	vGene, vSeq := "IGHV1-2*01", "ACGTACGTAC"
	dGene, dSeq := "IGHD1-1*01", "GGGG"
	jGene, jSeq := "IGHJ1*01", "TTTTT"

	fastaContent := fmt.Sprintf(">%s\n%s\n>%s\n%s\n>%s\n%s\n", vGene, vSeq, dGene, dSeq, jGene, jSeq)
	catalogue, err := germline.NewCatalogue(strings.NewReader(fastaContent))
	require.NoError(t, err)

	dir, cleanup := testutil.TempDir(t, "", "")
	for gene, seq := range map[string]string{vGene: vSeq, dGene: dSeq, jGene: jSeq} {
		path := filepath.Join(dir, germline.SanitizeName(gene)+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(buildMatchModelYAML(gene, seq)), 0644))
	}
	store := hmm.NewModelStore(dir)

	query, err := seqpair.NewSequences(seqpair.NewSequence("query1", vSeq+dSeq+jSeq))
	require.NoError(t, err)

	return &testFixture{catalogue: catalogue, store: store, query: query, cleanup: cleanup}
}

// TestRunFindsExpectedKSet covers S1's shape: a query built by concatenating
// full germline sequences should have its best kset land exactly on
// (len(vSeq), len(dSeq)), with a non-empty event and no_path == false.
func TestRunFindsExpectedKSet(t *testing.T) {
	fx := newTestFixture(t)
	defer fx.cleanup()

	engine := NewEngine(fx.catalogue, fx.store, DefaultOpts())
	result, err := engine.Run(context.Background(), fx.query, KBounds{VMin: 8, VMax: 12, DMin: 2, DMax: 6})
	require.NoError(t, err)

	require.False(t, result.NoPath)
	require.NotEmpty(t, result.Events)
	best := result.Events[0]
	assert.Equal(t, KSet{V: 10, D: 4}, best.KSet)
	assert.False(t, result.BoundaryError)

	for i := 1; i < len(result.Events); i++ {
		assert.GreaterOrEqual(t, result.Events[i-1].Score, result.Events[i].Score)
	}
}

// TestRunNoPathWhenSequenceTooShort covers S3: every kset has k_v+k_d >=
// seq_len, so no_path is set and total_score stays -Inf.
func TestRunNoPathWhenSequenceTooShort(t *testing.T) {
	fx := newTestFixture(t)
	defer fx.cleanup()

	shortSeqs, err := seqpair.NewSequences(seqpair.NewSequence("q", "ACGTACGT"))
	require.NoError(t, err)

	engine := NewEngine(fx.catalogue, fx.store, DefaultOpts())
	result, err := engine.Run(context.Background(), shortSeqs, KBounds{VMin: 5, VMax: 9, DMin: 5, DMax: 9})
	require.NoError(t, err)

	assert.True(t, result.NoPath)
	assert.Empty(t, result.Events)
}

// TestRunForwardMarginalAtLeastBestScore covers S6's shape check: Forward
// mode's total score is a log-sum over ksets and must be >= the Viterbi
// best score for the same input.
func TestRunForwardMarginalAtLeastBestScore(t *testing.T) {
	fx := newTestFixture(t)
	defer fx.cleanup()

	viterbiEngine := NewEngine(fx.catalogue, fx.store, DefaultOpts())
	viterbiResult, err := viterbiEngine.Run(context.Background(), fx.query, KBounds{VMin: 8, VMax: 12, DMin: 2, DMax: 6})
	require.NoError(t, err)
	require.NotEmpty(t, viterbiResult.Events)

	forwardOpts := DefaultOpts()
	forwardOpts.Algorithm = Forward
	forwardEngine := NewEngine(fx.catalogue, fx.store, forwardOpts)
	forwardResult, err := forwardEngine.Run(context.Background(), fx.query, KBounds{VMin: 8, VMax: 12, DMin: 2, DMax: 6})
	require.NoError(t, err)

	assert.Empty(t, forwardResult.Events)
	assert.GreaterOrEqual(t, forwardResult.TotalScore, viterbiResult.Events[0].Score)
}

// TestWhitelistFiltersGenes exercises OptsFromWhitelistString and confirms
// a whitelisted-out gene never contributes to best_per_gene_scores.
func TestWhitelistFiltersGenes(t *testing.T) {
	fx := newTestFixture(t)
	defer fx.cleanup()

	opts, err := OptsFromWhitelistString("IGHV1-2*01:IGHD1-1*01:IGHJ1*01")
	require.NoError(t, err)
	engine := NewEngine(fx.catalogue, fx.store, opts)
	result, err := engine.Run(context.Background(), fx.query, KBounds{VMin: 8, VMax: 12, DMin: 2, DMax: 6})
	require.NoError(t, err)
	require.False(t, result.NoPath)

	var buf strings.Builder
	require.NoError(t, engine.WriteBestGeneProbs(&buf, "query1"))
	out := buf.String()
	assert.Contains(t, out, "IGHV1-2*01")
	assert.Contains(t, out, "IGHD1-1*01")
	assert.Contains(t, out, "IGHJ1*01")
	assert.True(t, strings.HasPrefix(out, "query1,"))
}

// TestWhitelistExcludingDGeneYieldsNoPath confirms that excluding the only
// catalogued gene for a region from the whitelist invalidates every kset.
func TestWhitelistExcludingDGeneYieldsNoPath(t *testing.T) {
	fx := newTestFixture(t)
	defer fx.cleanup()

	opts, err := OptsFromWhitelistString("IGHV1-2*01:IGHJ1*01")
	require.NoError(t, err)
	engine := NewEngine(fx.catalogue, fx.store, opts)
	result, err := engine.Run(context.Background(), fx.query, KBounds{VMin: 8, VMax: 12, DMin: 2, DMax: 6})
	require.NoError(t, err)
	assert.True(t, result.NoPath)
}

// TestWriteBestGeneProbsOrderedByGeneName confirms CSV output walks
// best_per_gene_scores in sorted gene-name order with no trailing
// semicolon (spec.md §4.7).
func TestWriteBestGeneProbsOrderedByGeneName(t *testing.T) {
	fx := newTestFixture(t)
	defer fx.cleanup()

	engine := NewEngine(fx.catalogue, fx.store, DefaultOpts())
	_, err := engine.Run(context.Background(), fx.query, KBounds{VMin: 8, VMax: 12, DMin: 2, DMax: 6})
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, engine.WriteBestGeneProbs(&buf, "query1"))
	line := strings.TrimSuffix(buf.String(), "\n")
	assert.False(t, strings.HasSuffix(line, ";"))

	fields := strings.SplitN(line, ",", 2)
	require.Len(t, fields, 2)
	genes := strings.Split(fields[1], ";")
	var names []string
	for _, g := range genes {
		parts := strings.SplitN(g, ":", 2)
		names = append(names, parts[0])
	}
	assert.True(t, sortedStrings(names))
}

func sortedStrings(ss []string) bool {
	for i := 1; i < len(ss); i++ {
		if ss[i-1] > ss[i] {
			return false
		}
	}
	return true
}
