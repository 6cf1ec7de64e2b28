package retag_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mp3tree/retag"
	"github.com/mp3tree/retag/coverfetch"
	"github.com/mp3tree/retag/tagdiff"
	"github.com/mp3tree/retag/tags"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestScan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	album := filepath.Join(root, "Metal", "Dagoba", "[20130325]4.Post Mortem Nihil Est")
	newFile(t, album, "01.I, Reptile.mp3")
	newFile(t, album, "02.The Realm Black.mp3")
	covered := filepath.Join(root, "Jazz", "Miles Davis", "Kind of Blue")
	newFile(t, covered, "1.01.So What.mp3")
	newFile(t, covered, "2.01.Flamenco Sketches.mp3")
	newFile(t, covered, "COVER.JPG")
	newFile(t, root, "notes.txt")

	res, err := retag.Scan(context.Background(), root, retag.Config{Logger: discard})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Files)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 4, res.Saved)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, coverfetch.Index{
		album: {Artist: "Dagoba", Title: "Post Mortem Nihil Est"},
	}, res.Missing)

	assert.Equal(t, map[string]string{
		tags.Genre:       "Metal",
		tags.Artist:      "Dagoba",
		tags.AlbumArtist: "Dagoba",
		tags.Album:       "Post Mortem Nihil Est",
		tags.AlbumSort:   "4",
		tags.ReleaseDate: "2013-03-25",
		tags.TrackNumber: "2/2",
		tags.Title:       "The Realm Black",
		tags.TitleSort:   "2/2.",
		tags.FileType:    "MPG/3",
	}, readTags(t, filepath.Join(album, "02.The Realm Black.mp3")))

	got := readTags(t, filepath.Join(covered, "2.01.Flamenco Sketches.mp3"))
	assert.Equal(t, "1/1", got[tags.TrackNumber])
	assert.Equal(t, "2/2", got[tags.DiscNumber])
	assert.Equal(t, "1/1.2/2", got[tags.TitleSort])

	// nothing left to change
	res, err = retag.Scan(context.Background(), root, retag.Config{Logger: discard})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 0, res.Saved)
}

func TestScanRemoveTags(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := newFile(t, filepath.Join(root, "Rock", "Band", "Album"), "01.Song.mp3")
	withTags(t, path, map[string]string{"TCOM": "Composer", tags.RecordedDate: "1999", tags.Title: "Old"})

	_, err := retag.Scan(context.Background(), root, retag.Config{NoCover: true, Logger: discard})
	require.NoError(t, err)

	got := readTags(t, path)
	assert.Equal(t, "Composer", got["TCOM"])
	assert.NotContains(t, got, tags.RecordedDate)
	assert.Equal(t, "Song", got[tags.Title])

	_, err = retag.Scan(context.Background(), root, retag.Config{NoCover: true, RemoveTags: true, Logger: discard})
	require.NoError(t, err)

	got = readTags(t, path)
	assert.NotContains(t, got, "TCOM")
	assert.Equal(t, "Song", got[tags.Title])
}

func TestScanOnlyCover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "Electro", "various artists", "Hits")
	path := newFile(t, dir, "01.Da Funk (Daft Punk).mp3")

	res, err := retag.Scan(context.Background(), root, retag.Config{OnlyCover: true, Logger: discard})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Saved)
	assert.Equal(t, coverfetch.Index{
		dir: {Artist: "various electro artists", Title: "Hits"},
	}, res.Missing)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fakeAudio, data)
}

func TestScanNoCover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	newFile(t, filepath.Join(root, "Rock", "Band", "Album"), "01.Song.mp3")

	res, err := retag.Scan(context.Background(), root, retag.Config{NoCover: true, Logger: discard})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Empty(t, res.Missing)
}

func TestScanDryRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := newFile(t, filepath.Join(root, "Rock", "Band", "Album"), "01.Song.mp3")

	var reported []string
	res, err := retag.Scan(context.Background(), root, retag.Config{
		DryRun: true,
		Logger: discard,
		OnDiff: func(p string, diffs []tagdiff.Diff) {
			reported = append(reported, p)
			assert.True(t, tagdiff.Changed(diffs))
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Saved)
	assert.Equal(t, []string{path}, reported)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fakeAudio, data)
}

func TestScanEmpty(t *testing.T) {
	t.Parallel()

	res, err := retag.Scan(context.Background(), t.TempDir(), retag.Config{Logger: discard})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Files)
	assert.Empty(t, res.Missing)
}

func TestScanNotDir(t *testing.T) {
	t.Parallel()

	path := newFile(t, t.TempDir(), "01.Song.mp3")
	_, err := retag.Scan(context.Background(), path, retag.Config{Logger: discard})
	assert.ErrorIs(t, err, retag.ErrNotDir)

	_, err = retag.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), retag.Config{Logger: discard})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	newFile(t, filepath.Join(root, "Rock", "Band", "Album"), "01.Song.mp3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retag.Scan(ctx, root, retag.Config{Logger: discard})
	assert.ErrorIs(t, err, context.Canceled)
}

var fakeAudio = bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x64, 0x00, 0x00, 0x00, 0x00}, 64)

func newFile(t *testing.T, dir, name string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, fakeAudio, 0o644))
	return path
}

func withTags(t *testing.T, path string, values map[string]string) {
	t.Helper()

	f, err := tags.Open(path)
	require.NoError(t, err)
	defer f.Close()
	for k, v := range values {
		f.Set(k, v)
	}
	require.NoError(t, f.Save())
}

func readTags(t *testing.T, path string) map[string]string {
	t.Helper()

	f, err := tags.Open(path)
	require.NoError(t, err)
	defer f.Close()
	return f.Text()
}
