package rar2hash

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javi11/rar2hash/internal/diag"
	"github.com/javi11/rar2hash/internal/rartest"
)

func TestProcessArchivesIsolatesPerArchiveErrors(t *testing.T) {
	good := rartest.BuildRAR3ModeZeroArchive([8]byte{1, 2, 3, 4, 5, 6, 7, 8}, [16]byte{}, 0)
	fsys := rartest.NewMemFS(map[string][]byte{
		"good-a.rar": good,
		"good-b.rar": good,
		"bad.txt":    []byte("HELLO\n"),
	})

	paths := []string{"good-a.rar", "bad.txt", "good-b.rar"}

	for _, jobs := range []int{1, 4} {
		results := ProcessArchives(fsys, paths, jobs, nil)
		require.Len(t, results, 3)

		assert.Equal(t, "good-a.rar", results[0].Path)
		assert.NoError(t, results[0].Err)
		assert.Len(t, results[0].Lines, 1)

		assert.Equal(t, "bad.txt", results[1].Path)
		assert.Error(t, results[1].Err)

		assert.Equal(t, "good-b.rar", results[2].Path)
		assert.NoError(t, results[2].Err)
		assert.Len(t, results[2].Lines, 1)
	}
}

func TestProcessArchivesMissingFile(t *testing.T) {
	fsys := rartest.NewMemFS(map[string][]byte{})
	results := ProcessArchives(fsys, []string{"nope.rar"}, 1, nil)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

// TestProcessArchivesConcurrentSinkWritesAreNotInterleaved exercises
// batch.go's jobs>1 path with a shared, non-nil, verbose *diag.Sink so every
// goroutine's Skip/Advisory diagnostics race to the same writer. diag.go's
// handler mutex must keep each record's line(s) atomic; this test is the
// coverage the earlier jobs:1/jobs:4 table never exercised because it
// always passed a nil sink.
func TestProcessArchivesConcurrentSinkWritesAreNotInterleaved(t *testing.T) {
	files := make(map[string][]byte)
	var paths []string
	const archiveCount = 20
	for i := 0; i < archiveCount; i++ {
		name := fmt.Sprintf("archive-%d.rar", i)
		paths = append(paths, name)
		files[name] = rartest.BuildRAR3Archive([]rartest.FileHeaderOpts{
			{Name: "solid.bin", PackSize: 50, UnpSize: 50, Method: 0x31, Encrypted: true, Solid: true},
			{Name: "tiny.bin", PackSize: 5, UnpSize: 2, Method: 0x31, Encrypted: true},
		})
	}
	fsys := rartest.NewMemFS(files)

	var buf strings.Builder
	sink := diag.New(&buf, true)

	results := ProcessArchives(fsys, paths, 8, sink)
	require.Len(t, results, archiveCount)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.Len(t, r.Lines, 1)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "!"), "torn or interleaved diagnostic line: %q", line)
	}
}
