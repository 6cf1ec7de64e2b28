package fileutil_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mp3tree/retag/fileutil"
)

func TestGlobEscape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a", fileutil.GlobEscape("a"))
	assert.Equal(t, "[[]2004] a[*]", fileutil.GlobEscape("[2004] a*"))
	assert.Equal(t, "what[?]", fileutil.GlobEscape("what?"))
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "cover.jpg")

	require.NoError(t, fileutil.WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, fileutil.WriteFileAtomic(path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o644), info.Mode().Perm())
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nope", "cover.jpg")

	err := fileutil.WriteFileAtomic(path, []byte("data"), 0o644)
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWalkFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, p := range []string{"b/10.mp3", "b/2.mp3", "a/1.MP3", "a/cover.jpg", "c.txt"} {
		p = filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), os.ModePerm))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	paths, err := fileutil.WalkFiles(dir, func(p string) bool {
		return strings.EqualFold(filepath.Ext(p), ".mp3")
	})
	require.NoError(t, err)

	var rel []string
	for _, p := range paths {
		r, _ := filepath.Rel(dir, p)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"a/1.MP3", "b/2.mp3", "b/10.mp3"}, rel)

	names, err := fileutil.ListFiles(filepath.Join(dir, "a"), func(string) bool { return true })
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1.MP3", "cover.jpg"}, names)
}
