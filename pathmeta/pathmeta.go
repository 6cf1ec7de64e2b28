// Package pathmeta derives track metadata from a genre/artist/album/track.mp3 layout.
package pathmeta

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrMissingField  = errors.New("missing field")
	ErrNoTrackArtist = errors.New("no artist in compilation track name")
)

const (
	variousArtists = "various artists"
	variousAlbums  = "various albums"
	unknownNumber  = "0/0"
)

var (
	albumDateIndexExpr = regexp.MustCompile(`^(\[[0-9]{8}\])([a-zA-Z]?[0-9]+)\.(.*)$`)
	albumIndexExpr     = regexp.MustCompile(`^([a-zA-Z]?[0-9]+)\.(.*)$`)
	albumDateExpr      = regexp.MustCompile(`^(\[[0-9]{8}\])\.?(.*)$`)

	discTrackExpr = regexp.MustCompile(`^([0-9]+)\.([0-9]+)\.(.*)$`)
	trackExpr     = regexp.MustCompile(`^([0-9]+)\.(.*)$`)

	trackArtistExpr = regexp.MustCompile(`^.*\(([^\)]+)\)$`)
)

type Fields struct {
	Genre       string
	Artist      string
	AlbumArtist string
	Album       string
	AlbumSort   string
	Date        string
	Track       string
	Disc        string
	Title       string
}

// TitleSort orders tracks by number then disc.
func (f Fields) TitleSort() string {
	return f.Track + "." + f.Disc
}

// Parse derives the fields of the file at path. siblings are the names of the MP3 files
// in the same directory, path's own name included, and are used to count tracks and discs.
//
// Fields are always returned. The error, if any, wraps ErrMissingField when the album,
// artist or genre could not be found, and ErrNoTrackArtist when a compilation track
// doesn't name its artist.
func Parse(path string, siblings []string) (Fields, error) {
	dir, file := filepath.Split(filepath.Clean(path))
	parts := strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/")
	component := func(fromEnd int) string {
		i := len(parts) - 1 - fromEnd
		if i < 0 || parts[i] == "." {
			return ""
		}
		return norm.NFC.String(parts[i])
	}

	name := norm.NFC.String(strings.TrimSuffix(file, filepath.Ext(file)))

	var f Fields
	f.Genre = component(2)
	f.Artist = component(1)
	f.AlbumArtist = f.Artist
	f.Album, f.AlbumSort, f.Date = parseAlbum(component(0))
	f.Track, f.Disc, f.Title = parseTrack(name, siblings)

	var errs []error
	if f.Artist == variousArtists {
		f.AlbumArtist = fmt.Sprintf("various %s artists", strings.ToLower(f.Genre))
		if m := trackArtistExpr.FindStringSubmatch(name); m != nil {
			f.Artist = m[1]
			f.Title = strings.TrimSpace(strings.ReplaceAll(f.Title, "("+f.Artist+")", ""))
		} else {
			errs = append(errs, fmt.Errorf("%w: %q", ErrNoTrackArtist, name))
		}
		f.Track, f.Disc = unknownNumber, unknownNumber
	}
	if f.Album == variousAlbums {
		f.Album = fmt.Sprintf("various %s albums", strings.ToLower(f.Genre))
	}

	if f.Album == "" || f.Artist == "" || f.Genre == "" {
		errs = append(errs, fmt.Errorf("%w: album %q, artist %q, genre %q", ErrMissingField, f.Album, f.Artist, f.Genre))
	}
	return f, errors.Join(errs...)
}

func parseAlbum(s string) (album, sort, date string) {
	if m := albumDateIndexExpr.FindStringSubmatch(s); m != nil {
		return m[3], m[2], parseDate(m[1])
	}
	if m := albumIndexExpr.FindStringSubmatch(s); m != nil {
		return m[2], m[1], ""
	}
	if m := albumDateExpr.FindStringSubmatch(s); m != nil {
		date := parseDate(m[1])
		return m[2], date, date
	}
	return s, "", ""
}

func parseTrack(name string, siblings []string) (track, disc, title string) {
	if m := discTrackExpr.FindStringSubmatch(name); m != nil {
		var discTracks int
		discs := map[string]struct{}{}
		for _, s := range siblings {
			if strings.HasPrefix(s, m[1]+".") {
				discTracks++
			}
			discs[prefix(s, 2)] = struct{}{}
		}
		track = fmt.Sprintf("%s/%d", number(m[2]), discTracks)
		disc = fmt.Sprintf("%s/%d", number(m[1]), len(discs))
		return track, disc, m[3]
	}
	if m := trackExpr.FindStringSubmatch(name); m != nil {
		return fmt.Sprintf("%s/%d", number(m[1]), len(siblings)), "", m[2]
	}
	return unknownNumber, unknownNumber, name
}

// parseDate turns "[YYYYMMDD]" into "YYYY-MM-DD".
func parseDate(s string) string {
	s = strings.Trim(s, "[]")
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil && t.Format("20060102") == s {
		return t.Format(time.DateOnly)
	}
	if len(s) != 8 {
		return s
	}
	return s[:4] + "-" + s[4:6] + "-" + s[6:]
}

// number strips leading zeros from a string of digits.
func number(s string) string {
	if s = strings.TrimLeft(s, "0"); s == "" {
		return "0"
	}
	return s
}

func prefix(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
