package rar2hash

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/javi11/rar2hash/internal/diag"
)

// ArchiveResult is one archive's outcome from ProcessArchives, in input
// order.
type ArchiveResult struct {
	Path  string
	Lines []string
	Err   error
}

// ProcessArchives runs ProcessArchive over every path. jobs <= 1 processes
// sequentially; jobs > 1 fans out over a bounded worker pool, generalizing
// the teacher's channel-and-WaitGroup indexing loop into an errgroup with a
// concurrency limit. Unlike that loop, a failing archive here never stops or
// excludes the rest: spec.md §7 requires every archive's outcome to be
// isolated, so each goroutine swallows its own error into the result slot
// and always reports success to the group.
func ProcessArchives(fsys FileSystem, paths []string, jobs int, sink *diag.Sink) []ArchiveResult {
	results := make([]ArchiveResult, len(paths))

	if jobs <= 1 {
		for i, p := range paths {
			lines, err := ProcessArchive(fsys, p, sink)
			results[i] = ArchiveResult{Path: p, Lines: lines, Err: err}
		}
		return results
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(jobs)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			lines, err := ProcessArchive(fsys, p, sink)
			results[i] = ArchiveResult{Path: p, Lines: lines, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
