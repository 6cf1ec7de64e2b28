package retagflag

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mp3tree/retag"
	"github.com/mp3tree/retag/coverfetch"
	"github.com/mp3tree/retag/hook"
	"github.com/mp3tree/retag/lastfm"
	"github.com/mp3tree/retag/notifications"
)

type Config struct {
	Directory   string
	Scan        retag.Config
	Concurrency int

	LastFM      lastfm.Client
	HTTPTimeout time.Duration
	CAFile      string

	CoverHook *hook.Command
}

func Parse() *Config {
	var cfg Config

	flag.StringVar(&cfg.Directory, "directory", "", "Directory to process, laid out as genre/artist/album/track.mp3")
	flag.StringVar(&cfg.Directory, "d", "", "Shorthand for -directory")

	flag.BoolVar(&cfg.Scan.RemoveTags, "remove-tags", false, "Remove every existing tag before applying new tags")
	flag.BoolVar(&cfg.Scan.RemoveTags, "r", false, "Shorthand for -remove-tags")
	flag.BoolVar(&cfg.Scan.NoCover, "no-cover", false, "Do not fetch missing album covers")
	flag.BoolVar(&cfg.Scan.NoCover, "n", false, "Shorthand for -no-cover")
	flag.BoolVar(&cfg.Scan.OnlyCover, "only-cover", false, "Only fetch missing album covers, leave tags alone")
	flag.BoolVar(&cfg.Scan.OnlyCover, "c", false, "Shorthand for -only-cover")
	flag.BoolVar(&cfg.Scan.DryRun, "dry-run", false, "Show tag changes without saving them or fetching covers")

	flag.IntVar(&cfg.Concurrency, "concurrency", coverfetch.DefaultConcurrency, "Number of covers to fetch at once")

	flag.StringVar(&cfg.LastFM.BaseURL, "lastfm-base-url", lastfm.DefaultBaseURL, "last.fm API base URL")
	flag.StringVar(&cfg.LastFM.APIKey, "lastfm-api-key", "", "last.fm API key, needed to fetch covers")
	flag.StringVar(&cfg.LastFM.ImageSize, "lastfm-image-size", lastfm.DefaultImageSize, "last.fm image size to fetch (small, medium, large, extralarge, mega)")
	flag.DurationVar(&cfg.LastFM.RateLimit, "lastfm-rate-limit", 200*time.Millisecond, "last.fm rate limit duration")

	flag.DurationVar(&cfg.HTTPTimeout, "http-timeout", 30*time.Second, "Timeout for each HTTP request")
	flag.StringVar(&cfg.CAFile, "ca-file", "", "Extra PEM certificates to trust")

	flag.Var(&hookParser{&cfg.CoverHook}, "cover-hook", `Command to run after each cover is saved, "<path>" is replaced with the cover path`)

	return &cfg
}

// Validate checks the combinations of flags that can't be expressed by the flags themselves.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Directory == "" {
		errs = append(errs, errors.New("-directory is required"))
	}
	if cfg.Scan.NoCover && cfg.Scan.OnlyCover {
		errs = append(errs, errors.New("-no-cover and -only-cover can't be used together"))
	}
	if cfg.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("-concurrency must be positive, got %d", cfg.Concurrency))
	}
	if cfg.FetchCovers() && cfg.LastFM.APIKey == "" {
		errs = append(errs, fmt.Errorf("-lastfm-api-key is required to fetch covers, set it or $RETAG_LASTFM_API_KEY (a .env file works too), or pass -no-cover: %w", lastfm.ErrNoAPIKey))
	}
	return errors.Join(errs...)
}

func (cfg *Config) FetchCovers() bool {
	return !cfg.Scan.NoCover && !cfg.Scan.DryRun
}

func Notifications() *notifications.Notifications {
	n := notifications.Notifications{Title: retag.Name}
	flag.Var(&notificationsParser{&n}, "notification-uri", `Add a shoutrrr notification URI for events, eg "complete,error <uri>" (stackable)`)
	return &n
}

var _ flag.Value = (*notificationsParser)(nil)
var _ flag.Value = (*hookParser)(nil)

type notificationsParser struct{ *notifications.Notifications }

func (n *notificationsParser) Set(value string) error {
	eventsRaw, uri, ok := strings.Cut(value, " ")
	if !ok {
		return fmt.Errorf("invalid notification uri format. expected eg \"ev1,ev2 uri\"")
	}
	var lineErrs []error
	for _, ev := range strings.Split(eventsRaw, ",") {
		ev, uri = strings.TrimSpace(ev), strings.TrimSpace(uri)
		err := n.AddURI(notifications.Event(ev), uri)
		lineErrs = append(lineErrs, err)
	}
	return errors.Join(lineErrs...)
}
func (n notificationsParser) String() string {
	if n.Notifications == nil {
		return ""
	}
	var parts []string
	for e, uri := range n.Notifications.Routes() {
		url, _ := url.Parse(uri)
		parts = append(parts, fmt.Sprintf("%s: %s://%s/...", e, url.Scheme, url.Host))
	}
	return strings.Join(parts, ", ")
}

type hookParser struct{ c **hook.Command }

func (h *hookParser) Set(value string) error {
	c, err := hook.New(value)
	if err != nil {
		return err
	}
	*h.c = &c
	return nil
}
func (h hookParser) String() string {
	if h.c == nil || *h.c == nil {
		return ""
	}
	return (*h.c).String()
}
