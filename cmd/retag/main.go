package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mp3tree/retag"
	"github.com/mp3tree/retag/cmd/internal/mainlib"
	"github.com/mp3tree/retag/cmd/internal/retagflag"
	"github.com/mp3tree/retag/coverfetch"
	"github.com/mp3tree/retag/notifications"
	"github.com/mp3tree/retag/tagdiff"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] -directory <genre/artist/album/track.mp3 root>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	defer mainlib.Logging()()
	var (
		cfg    = retagflag.Parse()
		notifs = retagflag.Notifications()
	)
	mainlib.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(flag.CommandLine.Output(), err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()

	if cfg.Scan.DryRun {
		cfg.Scan.OnDiff = func(path string, diffs []tagdiff.Diff) {
			fmt.Println(path)
			for _, row := range strings.Split(tagdiff.Table(diffs), "\n") {
				fmt.Println("  " + row)
			}
		}
	}

	res, err := retag.Scan(ctx, cfg.Directory, cfg.Scan)
	if err != nil {
		slog.ErrorContext(ctx, "scanning", "dir", cfg.Directory, "err", err)
		notifs.Sendf(ctx, notifications.Error, "error scanning %s: %v", cfg.Directory, err)
		return
	}

	if cfg.FetchCovers() && len(res.Missing) > 0 {
		if err := fetchCovers(ctx, cfg, res.Missing); err != nil {
			slog.ErrorContext(ctx, "fetching covers", "err", err)
		}
	}

	summary := fmt.Sprintf("processed %d of %d files in %s, saved %d, %d failed, %d dirs without cover",
		res.Processed, res.Files, time.Since(start).Truncate(time.Millisecond), res.Saved, res.Failed, len(res.Missing))
	if mainlib.HadError() {
		notifs.Send(ctx, notifications.Error, summary)
		return
	}
	notifs.Send(ctx, notifications.Complete, summary)
}

func fetchCovers(ctx context.Context, cfg *retagflag.Config, missing coverfetch.Index) error {
	httpClient, err := mainlib.HTTPClient(cfg.Concurrency, cfg.CAFile, cfg.HTTPTimeout)
	if err != nil {
		return err
	}

	cfg.LastFM.HTTPClient = httpClient
	cfg.LastFM.Logger = slog.Default()

	pool := coverfetch.Pool{
		Searcher:    &cfg.LastFM,
		Fetcher:     &coverfetch.Downloader{HTTPClient: httpClient},
		Concurrency: cfg.Concurrency,
		Logger:      slog.Default(),
	}
	if cfg.CoverHook != nil {
		pool.AfterSave = cfg.CoverHook.Run
	}

	slog.InfoContext(ctx, "fetching covers", "dirs", len(missing), "concurrency", cfg.Concurrency)
	pool.Run(ctx, missing)
	return nil
}
