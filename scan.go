package retag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/mp3tree/retag/coverfetch"
	"github.com/mp3tree/retag/coverparse"
	"github.com/mp3tree/retag/fileutil"
	"github.com/mp3tree/retag/pathmeta"
	"github.com/mp3tree/retag/tagdiff"
	"github.com/mp3tree/retag/tags"
)

var ErrNotDir = errors.New("not a directory")

const progressStep = 10

type Config struct {
	// RemoveTags drops every frame that isn't written by retag, instead of only the stale ones.
	RemoveTags bool
	// NoCover skips looking for directories without cover art.
	NoCover bool
	// OnlyCover leaves tags alone and only looks for directories without cover art.
	OnlyCover bool
	// DryRun computes the new tags without saving them.
	DryRun bool

	// OnDiff, if set, is called with the changes made to each file that would change.
	OnDiff func(path string, diffs []tagdiff.Diff)

	Logger *slog.Logger
}

type Result struct {
	Files     int
	Processed int
	Saved     int
	Failed    int

	// Missing holds each directory without cover art and the album it contains.
	Missing coverfetch.Index
}

// Scan tags every MP3 under root and indexes the directories that have no cover art.
//
// Problems with single files are logged and skipped. An error is only returned when
// root can't be walked or ctx is done.
func Scan(ctx context.Context, root string, cfg Config) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q: %w", root, ErrNotDir)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs root: %w", err)
	}

	paths, err := fileutil.WalkFiles(root, tags.CanRead)
	if err != nil {
		return nil, fmt.Errorf("find files: %w", err)
	}

	res := &Result{Files: len(paths), Missing: coverfetch.Index{}}
	if len(paths) == 0 {
		logger.WarnContext(ctx, "no files to process", "root", root)
		return res, nil
	}

	siblings := map[string][]string{}
	checked := map[string]struct{}{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		dir := filepath.Dir(path)
		if _, ok := siblings[dir]; !ok {
			names, err := fileutil.ListFiles(dir, tags.CanRead)
			if err != nil {
				logger.ErrorContext(ctx, "list dir", "dir", dir, "err", err)
			}
			siblings[dir] = names
		}

		fields, err := pathmeta.Parse(path, siblings[dir])
		switch {
		case errors.Is(err, pathmeta.ErrMissingField):
			logger.ErrorContext(ctx, "incomplete path", "path", path, "err", err)
		case err != nil:
			logger.WarnContext(ctx, "parse path", "path", path, "err", err)
		}

		if !cfg.OnlyCover {
			logger.InfoContext(ctx, "processing", "path", path)
			saved, err := writeTags(ctx, logger, cfg, path, fields)
			if err != nil {
				var tagErr *readError
				if errors.As(err, &tagErr) {
					logger.ErrorContext(ctx, "skipping file", "path", path, "err", err)
					res.Failed++
					continue
				}
				logger.ErrorContext(ctx, "unable to save tags", "path", path, "err", err)
				res.Failed++
			}
			if saved {
				res.Saved++
			}
		}

		res.Processed++
		if res.Processed%progressStep == 0 {
			logProgress(ctx, logger, res.Processed, res.Files)
		}

		if cfg.NoCover {
			continue
		}
		if _, ok := checked[dir]; ok {
			continue
		}
		checked[dir] = struct{}{}

		hasCover, err := coverparse.HasCover(dir)
		if err != nil {
			logger.ErrorContext(ctx, "check cover", "dir", dir, "err", err)
			continue
		}
		if hasCover {
			continue
		}
		logger.InfoContext(ctx, "adding dir for cover search", "dir", dir)
		res.Missing.Add(dir, coverfetch.Album{Artist: fields.AlbumArtist, Title: fields.Album})
	}

	if res.Processed%progressStep != 0 {
		logProgress(ctx, logger, res.Processed, res.Files)
	}
	return res, nil
}

type readError struct{ err error }

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

// writeTags replaces the frames of path with fields, and reports whether the file was saved.
func writeTags(ctx context.Context, logger *slog.Logger, cfg Config, path string, fields pathmeta.Fields) (bool, error) {
	f, err := tags.Open(path)
	if err != nil {
		return false, &readError{err}
	}
	defer f.Close()

	if f.Empty() {
		logger.WarnContext(ctx, "no id3 header found, adding one", "path", path)
	}

	before := f.Text()

	if cfg.RemoveTags {
		for _, k := range f.Keys() {
			if !slices.Contains(tags.Managed, k) {
				logger.DebugContext(ctx, "deleting frame", "path", path, "frame", k)
				f.Delete(k)
			}
		}
	} else {
		f.Delete(tags.Stale...)
	}

	f.Set(tags.Genre, fields.Genre)
	f.Set(tags.Artist, fields.Artist)
	f.Set(tags.Album, fields.Album)
	f.Set(tags.ReleaseDate, fields.Date)
	f.Set(tags.AlbumArtist, fields.AlbumArtist)
	f.Set(tags.AlbumSort, fields.AlbumSort)
	f.Set(tags.TrackNumber, fields.Track)
	f.Set(tags.Title, fields.Title)
	f.Set(tags.TitleSort, fields.TitleSort())
	f.Set(tags.DiscNumber, fields.Disc)
	f.Set(tags.FileType, "MPG/3")

	diffs := tagdiff.Compare(before, f.Text())
	if !tagdiff.Changed(diffs) {
		logger.DebugContext(ctx, "tags unchanged", "path", path)
		return false, nil
	}
	if cfg.OnDiff != nil {
		cfg.OnDiff(path, diffs)
	}
	if cfg.DryRun {
		return false, nil
	}

	if err := f.Save(); err != nil {
		return false, err
	}
	return true, nil
}

func logProgress(ctx context.Context, logger *slog.Logger, processed, total int) {
	percent := math.Round(10000*float64(processed)/float64(total)) / 100
	logger.InfoContext(ctx, fmt.Sprintf("processed %d of %d (%g%%)", processed, total, percent))
}
