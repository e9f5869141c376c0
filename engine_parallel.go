package snag

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"runtime"
	"sync"
)

// workItem holds everything a parallel analysis worker needs.
type workItem struct {
	index int
	path  string
	src   []byte
	hash  string
}

// checkFilesParallel analyzes files using a three-phase pipeline:
//
//	Phase A (serial):   Read, hash, cache probe.
//	Phase B (parallel): Parse and dispatch via worker pool.
//	Phase C (serial):   Cache writes, results assembled in input order.
func (e *Engine) checkFilesParallel(ctx context.Context, paths []string) (*Result, error) {
	// ---- Phase A: Serial file preparation ----
	slots := make([]*FileResult, len(paths))
	var items []workItem
	var errs []error
	for i, path := range paths {
		item, fr, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", path, err))
			continue
		}
		if fr != nil {
			slots[i] = fr
			continue
		}
		item.index = i
		items = append(items, item)
	}

	if len(items) > 0 {
		// ---- Phase B: Parallel analysis ----
		numWorkers := e.jobs
		if numWorkers <= 0 {
			numWorkers = runtime.NumCPU()
		}
		if numWorkers > len(items) {
			numWorkers = len(items)
		}

		workCh := make(chan workItem, len(items))
		for _, item := range items {
			workCh <- item
		}
		close(workCh)

		type result struct {
			item  workItem
			diags []Diagnostic
			err   error
		}
		resultCh := make(chan result, len(items))

		var wg sync.WaitGroup
		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				// The dispatcher and lookup tables are read-only; each
				// file's graph and sink are private to this worker.
				for item := range workCh {
					diags, err := e.analyze(ctx, item.path, item.src)
					resultCh <- result{item: item, diags: diags, err: err}
				}
			}()
		}

		go func() {
			wg.Wait()
			close(resultCh)
		}()

		// ---- Phase C: Serial commit ----
		for res := range resultCh {
			if res.err != nil {
				errs = append(errs, fmt.Errorf("check %s: %w", res.item.path, res.err))
				continue
			}
			if e.cache != nil {
				if err := e.cache.Store(res.item.path, res.item.hash, res.diags); err != nil {
					errs = append(errs, fmt.Errorf("check %s: cache store: %w", res.item.path, err))
					continue
				}
			}
			slots[res.item.index] = &FileResult{Path: res.item.path, Diagnostics: res.diags}
		}
	}

	res := &Result{}
	for _, fr := range slots {
		if fr != nil {
			res.Files = append(res.Files, *fr)
		}
	}
	if len(errs) > 0 {
		return res, fmt.Errorf("checking had %d error(s): %w", len(errs), errs[0])
	}
	return res, nil
}

// prepareFile does Phase A work for a single file: read, hash, cache probe.
// A non-nil FileResult means the cache already holds this file's results.
func (e *Engine) prepareFile(path string) (workItem, *FileResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, nil, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	if e.cache != nil {
		diags, hit, err := e.cache.Lookup(path, hash)
		if err != nil {
			return workItem{}, nil, fmt.Errorf("cache lookup: %w", err)
		}
		if hit {
			e.logger.Debug("cache hit", "file", path)
			return workItem{}, &FileResult{Path: path, Diagnostics: diags, Cached: true}, nil
		}
	}

	return workItem{path: path, src: content, hash: hash}, nil, nil
}
