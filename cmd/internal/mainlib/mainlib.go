package mainlib

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"go.senan.xyz/flagconf"

	"github.com/mp3tree/retag"
	"github.com/mp3tree/retag/clientutil"
)

var (
	logLevel     slog.LevelVar
	errorHandler *slogErrorHandler

	verbose = flag.Bool("v", false, "Increase output verbosity")
	quiet   = flag.Bool("q", false, "Decrease output verbosity, only warnings and errors")
	debug   = flag.Bool("debug", false, "Log everything, including HTTP requests. Do not use on large trees")
)

func Logging() (exit func()) {
	flag.TextVar(&logLevel, "log-level", &logLevel, "Set the logging level")

	errorHandler = &slogErrorHandler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}),
	}

	logger := slog.New(errorHandler)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(slog.LevelError)

	return func() {
		if HadError() {
			os.Exit(1)
		}
		os.Exit(0)
	}
}

// HadError reports whether anything was logged at error level.
func HadError() bool {
	return errorHandler != nil && errorHandler.hadSlogError.Load()
}

type slogErrorHandler struct {
	slog.Handler
	hadSlogError atomic.Bool
}

func (n *slogErrorHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level == slog.LevelError {
		n.hadSlogError.Store(true)
	}
	return n.Handler.Handle(ctx, r)
}

func (n *slogErrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &slogErrorChild{Handler: n.Handler.WithAttrs(attrs), root: n}
}

func (n *slogErrorHandler) WithGroup(name string) slog.Handler {
	return &slogErrorChild{Handler: n.Handler.WithGroup(name), root: n}
}

// slogErrorChild reports errors to the root handler so loggers made with With still count.
type slogErrorChild struct {
	slog.Handler
	root *slogErrorHandler
}

func (c *slogErrorChild) Handle(ctx context.Context, r slog.Record) error {
	if r.Level == slog.LevelError {
		c.root.hadSlogError.Store(true)
	}
	return c.Handler.Handle(ctx, r)
}

func (c *slogErrorChild) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &slogErrorChild{Handler: c.Handler.WithAttrs(attrs), root: c.root}
}

func (c *slogErrorChild) WithGroup(name string) slog.Handler {
	return &slogErrorChild{Handler: c.Handler.WithGroup(name), root: c.root}
}

// Parse reads flags, then a .env file in the working directory, then the environment
// and finally the config file. -version and -config print and exit.
func Parse() {
	userConfig, err := os.UserConfigDir()
	if err != nil {
		userConfig = "."
	}

	defaultConfigPath := filepath.Join(userConfig, retag.Name, "config")
	configPath := flag.String("config-path", defaultConfigPath, "Path to config file")

	printVersion := flag.Bool("version", false, "Print the version and exit")
	printConfig := flag.Bool("config", false, "Print the parsed config and exit")

	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatalf("load .env: %v", err)
	}

	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string { return retag.Name }
	if err := flagconf.ParseEnv(); err != nil {
		fatalf("parse env: %v", err)
	}
	if err := flagconf.ParseConfig(*configPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatalf("parse config: %v", err)
	}

	if *verbose && *quiet {
		fatalf("-v and -q can't be used together")
	}
	switch {
	case *debug, *verbose:
		logLevel.Set(slog.LevelDebug)
	case *quiet:
		logLevel.Set(slog.LevelWarn)
	}

	if *printVersion {
		fmt.Printf("%s %s\n", flag.CommandLine.Name(), retag.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-20s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

// Transport is the base of every client made by HTTPClient. When nil, a TLS transport
// sized for the worker count is built. Replaced while testing.
var Transport http.RoundTripper

// HTTPClient returns the client shared by every cover worker.
func HTTPClient(concurrency int, caFile string, timeout time.Duration) (*http.Client, error) {
	transport := Transport
	if transport == nil {
		t, err := clientutil.NewTransport(concurrency, caFile)
		if err != nil {
			return nil, fmt.Errorf("make transport: %w", err)
		}
		transport = t
	}

	chain := clientutil.Chain(
		clientutil.WithLogging(slog.Default()),
		clientutil.WithUserAgent(fmt.Sprintf(`%s/%s`, retag.Name, retag.Version)),
	)
	return &http.Client{Transport: chain(transport), Timeout: timeout}, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(flag.CommandLine.Output(), format+"\n", a...)
	os.Exit(2)
}
