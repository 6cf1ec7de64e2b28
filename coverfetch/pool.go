// Package coverfetch downloads missing album art for many directories at once.
package coverfetch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 5

type Searcher interface {
	// Search returns the URL of the album's cover, or "" if none could be found.
	Search(ctx context.Context, artist, album string) string
}

type Fetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// Pool fetches covers with a fixed number of workers.
type Pool struct {
	Searcher    Searcher
	Fetcher     Fetcher
	Concurrency int
	Logger      *slog.Logger

	// AfterSave, if set, runs after each cover is written. Its error is only logged.
	AfterSave func(ctx context.Context, path string) error
}

type stats struct {
	saved, notFound, failed atomic.Uint32
}

// Run fetches a cover for every directory in index and returns once all of them have
// been processed and every worker has exited. Failures of individual jobs are logged
// and never stop the others.
func (p *Pool) Run(ctx context.Context, index Index) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := p.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	start := time.Now()

	q := NewQueue()
	for _, job := range index.Jobs() {
		q.Put(job)
	}

	var st stats
	var g errgroup.Group
	for i := range concurrency {
		logger := logger.With("worker", i)
		g.Go(func() error {
			p.work(ctx, logger, q, &st)
			return nil
		})
	}

	q.Wait()
	for range concurrency {
		q.Stop()
	}
	_ = g.Wait()

	logger.InfoContext(ctx, "cover fetch finished",
		"took", time.Since(start).Truncate(time.Millisecond),
		"dirs", len(index),
		"saved", st.saved.Load(),
		"not_found", st.notFound.Load(),
		"failed", st.failed.Load(),
	)
}

func (p *Pool) work(ctx context.Context, logger *slog.Logger, q *Queue, st *stats) {
	for {
		job, ok := q.Get()
		if !ok {
			return
		}
		func() {
			defer q.Done()
			p.process(ctx, logger, job, st)
		}()
	}
}

func (p *Pool) process(ctx context.Context, logger *slog.Logger, job Job, st *stats) {
	logger = logger.With("artist", job.Artist, "album", job.Album, "dir", job.Dir)
	defer func() {
		if r := recover(); r != nil {
			st.failed.Add(1)
			logger.ErrorContext(ctx, "panic fetching cover", "panic", r)
		}
	}()

	logger.InfoContext(ctx, "searching cover")

	coverURL := p.Searcher.Search(ctx, job.Artist, job.Album)
	if coverURL == "" {
		st.notFound.Add(1)
		logger.InfoContext(ctx, "no cover found")
		return
	}

	data, err := p.Fetcher.Fetch(ctx, coverURL)
	if err != nil {
		st.failed.Add(1)
		logger.WarnContext(ctx, "error fetching cover", "url", coverURL, "err", err)
		return
	}

	path, err := Save(data, job.Dir, CoverExt(coverURL))
	if err != nil {
		st.failed.Add(1)
		logger.WarnContext(ctx, "error saving cover", "err", err)
		return
	}

	st.saved.Add(1)
	logger.InfoContext(ctx, "cover saved", "path", path)

	if p.AfterSave != nil {
		if err := p.AfterSave(ctx, path); err != nil {
			logger.WarnContext(ctx, "error running cover hook", "path", path, "err", err)
		}
	}
}
