// Package tags reads and writes the ID3v2 frames of MP3 files
package tags

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bogem/id3v2/v2"
)

var ErrUnsupported = errors.New("filetype unsupported")

// https://id3.org/id3v2.4.0-frames

const (
	Genre       = "TCON"
	Artist      = "TPE1"
	Album       = "TALB"
	ReleaseDate = "TDRL"
	AlbumArtist = "TPE2"
	AlbumSort   = "TSOA"
	TrackNumber = "TRCK"
	Title       = "TIT2"
	TitleSort   = "TSOT"
	DiscNumber  = "TPOS"
	FileType    = "TFLT"

	Picture      = "APIC"
	Comment      = "COMM"
	EncodingTime = "TDEN"
	OriginalDate = "TDOR"
	RecordedDate = "TDRC"
	TaggingTime  = "TDTG"
	Lyrics       = "USLT"
)

// Managed are the frames written to every file.
var Managed = []string{
	Genre, Artist, Album, ReleaseDate, AlbumArtist, AlbumSort,
	TrackNumber, Title, TitleSort, DiscNumber, FileType,
}

// Stale are the frames removed from every file even when the rest of the tag is kept.
var Stale = []string{
	Picture, Comment, EncodingTime, OriginalDate, RecordedDate, ReleaseDate, TaggingTime, Lyrics,
}

func CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}

type File struct {
	tag *id3v2.Tag
}

// Open parses the tag of the MP3 at path. A file without an ID3v2 header yields an empty tag.
func Open(path string) (*File, error) {
	if !CanRead(path) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(path))
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("read tag: %w", err)
	}
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	return &File{tag: tag}, nil
}

// Empty reports whether the file has no frames at all.
func (f *File) Empty() bool {
	return f.tag.Count() == 0
}

// Get returns the text of frame id, or "" if it is missing or not a text frame.
func (f *File) Get(id string) string {
	switch fr := f.tag.GetLastFrame(id).(type) {
	case id3v2.TextFrame:
		return strings.TrimRight(fr.Text, "\x00")
	case id3v2.CommentFrame:
		return fr.Text
	case id3v2.UnsynchronisedLyricsFrame:
		return fr.Lyrics
	}
	return ""
}

// Set replaces frame id with a single UTF-8 text value. An empty value removes the frame.
func (f *File) Set(id, value string) {
	f.tag.DeleteFrames(id)
	if value == "" {
		return
	}
	f.tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
}

func (f *File) Delete(ids ...string) {
	for _, id := range ids {
		f.tag.DeleteFrames(id)
	}
}

// Keys returns the IDs of every frame present, sorted.
func (f *File) Keys() []string {
	var keys []string
	for id, frames := range f.tag.AllFrames() {
		if len(frames) > 0 {
			keys = append(keys, id)
		}
	}
	slices.Sort(keys)
	return keys
}

// Text returns the text of every frame present.
func (f *File) Text() map[string]string {
	text := map[string]string{}
	for _, id := range f.Keys() {
		text[id] = f.Get(id)
	}
	return text
}

// Save writes the tag back as ID3v2.4.
func (f *File) Save() error {
	f.tag.SetVersion(4)
	if err := f.tag.Save(); err != nil {
		return fmt.Errorf("write tag: %w", err)
	}
	return nil
}

func (f *File) Close() error {
	return f.tag.Close()
}
