package testcmds

import (
	"bytes"
	"embed"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mp3tree/retag/clientutil"
	"github.com/mp3tree/retag/cmd/internal/mainlib"
	"github.com/mp3tree/retag/fileutil"
	"github.com/mp3tree/retag/tags"
)

//go:embed testdata/responses
var responses embed.FS

const (
	imageHost = "img.test"

	// albums with these titles have no cover, or a cover that can't be downloaded
	albumNoCover     = "No Cover"
	albumBrokenCover = "Broken Cover"
)

// RegisterTransport answers last.fm lookups and image downloads locally.
func RegisterTransport() {
	images := clientutil.FSClient(responses, "testdata/responses").Transport

	mainlib.Transport = clientutil.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Host == imageHost {
			return images.RoundTrip(r)
		}

		q := r.URL.Query()
		if q.Get("method") != "album.getInfo" || q.Get("api_key") == "" {
			return respond(r, http.StatusBadRequest, map[string]any{"error": 6, "message": "Invalid parameters"}), nil
		}

		var imageURL string
		switch album := q.Get("album"); album {
		case albumNoCover:
		case albumBrokenCover:
			imageURL = fmt.Sprintf("https://%s/missing.png", imageHost)
		default:
			imageURL = fmt.Sprintf("https://%s/cover.png", imageHost)
		}

		return respond(r, http.StatusOK, map[string]any{
			"album": map[string]any{
				"name":   q.Get("album"),
				"artist": q.Get("artist"),
				"image": []map[string]string{
					{"size": "small", "#text": ""},
					{"size": "extralarge", "#text": imageURL},
				},
			},
		}), nil
	})

	os.Setenv("RETAG_LASTFM_API_KEY", "test-key")
	os.Setenv("RETAG_LASTFM_RATE_LIMIT", "0")
}

func respond(r *http.Request, status int, body any) *http.Response {
	data, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(data)),
		Request:    r,
	}
}

// Tag writes or checks the frames of MP3 files.
//
//	tag write <path or glob> TIT2 title , TPE1 artist
//	tag check <path or glob> TIT2 title
func Tag() {
	flag.Parse()

	op := flag.Arg(0)
	switch op {
	case "write", "check":
	default:
		log.Fatalf("bad op %s", op)
	}

	pat := flag.Arg(1)
	paths := parsePattern(pat)
	if len(paths) == 0 {
		log.Fatalf("no paths to match pattern")
	}

	pairs := parseTagMap(flag.Args()[2:])

	var exit int
	for _, p := range paths {
		if op == "write" {
			if err := ensureMP3(p); err != nil {
				log.Fatalf("ensure mp3: %v", err)
			}
		}

		f, err := tags.Open(p)
		if err != nil {
			log.Fatalf("open tag file: %v", err)
		}

		for t, v := range pairs {
			switch op {
			case "write":
				f.Set(t, v)
			case "check":
				if got := f.Get(t); got != v {
					log.Printf("%s %s exp %q got %q", p, t, v, got)
					exit = 1
				}
			}
		}

		if op == "write" {
			if err := f.Save(); err != nil {
				log.Fatalf("write tag file: %v", err)
			}
		}
		f.Close()
	}

	os.Exit(exit)
}

func Find() {
	maxDepth := flag.Int("max-depth", -1, "")
	flag.Parse()

	paths := flag.Args()
	sort.Strings(paths)

	for _, p := range paths {
		err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			path = filepath.Clean(path)
			if *maxDepth != -1 && strings.Count(path, string(filepath.Separator)) > *maxDepth {
				return nil
			}
			fmt.Println(path)
			return nil
		})
		if err != nil {
			log.Fatal(err)
		}
	}
}

// Touch creates files and their parents. MP3s get a few frames of silence.
func Touch() {
	flag.Parse()

	for _, p := range flag.Args() {
		if tags.CanRead(p) {
			if err := ensureMP3(p); err != nil {
				log.Fatalf("ensure mp3: %v", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			log.Fatalf("mkdirall: %v", err)
		}
		if _, err := os.Create(p); err != nil {
			log.Fatalf("err creating: %v", err)
		}
	}
}

func MIME() {
	flag.Parse()

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("error reading: %v", err)
	}

	mime := http.DetectContentType(data)
	fmt.Println(mime)
}

func parsePattern(pat string) []string {
	// names like "[20130325]4.Album" are paths before they are globs
	if _, err := os.Stat(pat); err == nil {
		return []string{pat}
	}
	// assume the file exists if the pattern doesn't look like a glob
	if fileutil.GlobEscape(pat) == pat {
		return []string{pat}
	}
	paths, _ := filepath.Glob(pat)
	return paths
}

func parseTagMap(args []string) map[string]string {
	r := make(map[string]string)
	var k string
	for _, v := range args {
		if v == "," {
			k = ""
			continue
		}
		if k == "" {
			k = v
			r[k] = ""
			continue
		}
		r[k] = strings.TrimSpace(r[k] + " " + v)
	}
	return r
}

var silence = bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x64, 0x00, 0x00, 0x00, 0x00}, 64)

func ensureMP3(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("make parents: %w", err)
	}
	if err := os.WriteFile(path, silence, 0o644); err != nil {
		return fmt.Errorf("write empty file: %w", err)
	}
	return nil
}
