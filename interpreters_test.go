package pedal

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeInterpreter(t *testing.T, dir string, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestFindInterpretersFromPath(t *testing.T) {
	dir := t.TempDir()
	path := fakeInterpreter(t, dir, "python3")
	t.Setenv("PATH", dir)

	found := FindInterpreters(nil)
	assert.Contains(t, found, path)
}

func TestFindInterpretersIncludesRemembered(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	remembered := fakeInterpreter(t, t.TempDir(), "python3.12")

	store, err := OpenStore(filepath.Join(t.TempDir(), "options.yaml"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Update(func(options *Options) {
		options.UsedInterpreters = []string{remembered, "/does/not/exist/python3"}
	}))

	found := FindInterpreters(store)
	assert.Contains(t, found, remembered)
	assert.NotContains(t, found, "/does/not/exist/python3")
}

func TestFindInterpretersIncludesConfigured(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	configured := fakeInterpreter(t, t.TempDir(), "python3.13")

	store, err := OpenStore(filepath.Join(t.TempDir(), "options.yaml"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Update(func(options *Options) {
		options.BackendConfiguration = formatConfiguration("Python", configured)
	}))

	assert.Contains(t, FindInterpreters(store), configured)
}

func TestFindInterpretersDeduplicatesSymlinks(t *testing.T) {
	dir := t.TempDir()
	real := fakeInterpreter(t, dir, "python3.12")
	require.NoError(t, os.Symlink(real, filepath.Join(dir, "python3")))
	t.Setenv("PATH", dir)

	found := FindInterpreters(nil)
	count := 0
	for _, path := range found {
		if path == real {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFindInterpretersSorted(t *testing.T) {
	found := FindInterpreters(nil)
	assert.True(t, sort.StringsAreSorted(found))
}
