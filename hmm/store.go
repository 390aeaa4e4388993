// Package hmm parses and caches per-gene Hidden Markov Models.
package hmm

import (
	"context"
	"sync"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/ham/germline"
	"github.com/pkg/errors"
)

// ModelStore lazily loads and caches parsed HMM models keyed by gene name
// (spec.md §2, "Model store"; §4.1). Entries are never mutated once
// inserted, so concurrent Get calls after a successful load are lock-free
// reads under the RLock fast path; a miss takes the write lock and
// double-checks before parsing, so concurrent readers either see a
// fully-constructed model or block on the one goroutine loading it
// (spec.md §5).
//
// Model files are opened via github.com/grailbio/base/file rather than
// os.Open, so dir may be a local path or any scheme that registry backs
// (e.g. an s3:// prefix) with no code change here.
type ModelStore struct {
	dir string

	mu     sync.RWMutex
	models map[string]*Model
}

// NewModelStore returns a store that reads "<SanitizeName(gene)>.yaml"
// files from dir.
func NewModelStore(dir string) *ModelStore {
	return &ModelStore{dir: dir, models: make(map[string]*Model)}
}

// Get returns the parsed model for gene, loading and caching it on first
// use. A missing or malformed file is a data error (spec.md §7): it is
// returned, not panicked.
func (s *ModelStore) Get(ctx context.Context, gene string) (*Model, error) {
	s.mu.RLock()
	m, ok := s.models[gene]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.models[gene]; ok { // double-checked: someone beat us to the write lock
		return m, nil
	}
	m, err := s.load(ctx, gene)
	if err != nil {
		return nil, err
	}
	s.models[gene] = m
	return m, nil
}

func (s *ModelStore) modelPath(gene string) string {
	return s.dir + "/" + germline.SanitizeName(gene) + ".yaml"
}

func (s *ModelStore) load(ctx context.Context, gene string) (m *Model, err error) {
	path := s.modelPath(gene)
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "hmm: opening model file %s for gene %s", path, gene)
	}
	defer file.CloseAndReport(ctx, f, &err)
	log.Debug.Printf("hmm: read %s", path)
	return Parse(f.Reader(ctx), gene)
}

// CacheAll eagerly loads every catalogue gene whose model file exists,
// skipping (not erroring on) genes with no file on disk, mirroring
// HMMHolder::CacheAll in the original jobholder.cc. Per spec.md §4.1/§5
// this is expected to run during single-threaded initialization, before
// any concurrent Get calls begin.
func (s *ModelStore) CacheAll(ctx context.Context, cat *germline.Catalogue) error {
	for _, region := range germline.Regions {
		for _, gene := range cat.Genes(region) {
			path := s.modelPath(gene)
			f, err := file.Open(ctx, path)
			if err != nil {
				continue // no model file for this gene; not an error
			}
			m, err := Parse(f.Reader(ctx), gene)
			closeErr := f.Close(ctx)
			if err != nil {
				return err
			}
			if closeErr != nil {
				return errors.Wrapf(closeErr, "hmm: closing model file %s", path)
			}
			log.Debug.Printf("hmm: read %s", path)
			s.mu.Lock()
			s.models[gene] = m
			s.mu.Unlock()
		}
	}
	return nil
}
