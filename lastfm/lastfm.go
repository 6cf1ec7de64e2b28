// Package lastfm resolves album cover URLs with the last.fm album.getInfo method.
package lastfm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rainycape/unidecode"

	"github.com/mp3tree/retag/clientutil"
)

const (
	DefaultBaseURL   = "https://ws.audioscrobbler.com/2.0/"
	DefaultImageSize = "extralarge"
)

// https://www.last.fm/api/errorcodes
const codeNotFound = 6

var ErrNoAPIKey = errors.New("no api key")

type Client struct {
	BaseURL   string
	APIKey    string
	ImageSize string
	RateLimit time.Duration
	Logger    *slog.Logger

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.BaseURL == "" {
			c.BaseURL = DefaultBaseURL
		}
		if c.ImageSize == "" {
			c.ImageSize = DefaultImageSize
		}
		if c.Logger == nil {
			c.Logger = slog.Default()
		}
		c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(10*time.Minute),
			clientutil.WithRateLimit(c.RateLimit),
		))
	})
}

// Search returns the cover URL for the album, or an empty string if there isn't one or
// the lookup failed. Failures are logged. If nothing is found and the names contain
// non ASCII characters, the lookup is retried once with transliterated names.
func (c *Client) Search(ctx context.Context, artist, album string) string {
	c.init()
	logger := c.Logger.With("artist", artist, "album", album)

	coverURL, err := c.CoverURL(ctx, artist, album)
	if err != nil {
		logger.WarnContext(ctx, "error searching album cover", "err", err)
		return ""
	}
	if coverURL != "" {
		return coverURL
	}

	asciiArtist, asciiAlbum := unidecode.Unidecode(artist), unidecode.Unidecode(album)
	if asciiArtist == artist && asciiAlbum == album {
		return ""
	}

	logger.DebugContext(ctx, "retrying search with transliterated names", "ascii_artist", asciiArtist, "ascii_album", asciiAlbum)
	coverURL, err = c.CoverURL(ctx, asciiArtist, asciiAlbum)
	if err != nil {
		logger.WarnContext(ctx, "error searching album cover", "err", err)
		return ""
	}
	return coverURL
}

// CoverURL looks up the album and returns the URL of its image at the configured
// size. An empty URL with a nil error means last.fm has no such image.
func (c *Client) CoverURL(ctx context.Context, artist, album string) (string, error) {
	c.init()
	if c.APIKey == "" {
		return "", ErrNoAPIKey
	}

	reqURL, err := c.albumInfoURL(artist, album)
	if err != nil {
		return "", err
	}

	_, body, err := clientutil.Request(ctx, c.HTTPClient, http.MethodGet, reqURL)
	if err != nil {
		// errors often come with a non 2xx status but still have a useful body
		if apiErr := decodeAPIError(body); apiErr != nil {
			if apiErr.Code == codeNotFound {
				return "", nil
			}
			return "", apiErr
		}
		return "", fmt.Errorf("request album info: %w", err)
	}

	coverURL, err := ExtractImage(body, c.ImageSize)
	if apiErr := (*APIError)(nil); errors.As(err, &apiErr) && apiErr.Code == codeNotFound {
		return "", nil
	}
	return coverURL, err
}

func (c *Client) albumInfoURL(artist, album string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	urlV := url.Values{}
	urlV.Set("format", "json")
	urlV.Set("method", "album.getInfo")
	urlV.Set("api_key", c.APIKey)
	urlV.Set("artist", artist)
	urlV.Set("album", album)
	u.RawQuery = urlV.Encode()

	return u.String(), nil
}

// ExtractImage finds the image of the given size in an album.getInfo response. The
// first image with a matching size decides the result; an empty URL there counts as no
// image.
func ExtractImage(body []byte, size string) (string, error) {
	var resp albumInfoResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&resp); err != nil {
		return "", &ParseError{Err: err}
	}
	if resp.Error != 0 {
		return "", &APIError{Code: resp.Error, Message: resp.Message}
	}
	if resp.Album == nil {
		return "", nil
	}
	for _, img := range resp.Album.Images {
		if img.Size == size {
			return img.URL, nil
		}
	}
	return "", nil
}

type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse album info: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("last.fm error %d: %s", e.Code, e.Message)
}

func decodeAPIError(body []byte) *APIError {
	var resp struct {
		Error   int    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == 0 {
		return nil
	}
	return &APIError{Code: resp.Error, Message: resp.Message}
}

type Image struct {
	Size string `json:"size"`
	URL  string `json:"#text"`
}

type albumInfoResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Album   *struct {
		Name   string  `json:"name"`
		Artist string  `json:"artist"`
		URL    string  `json:"url"`
		Images []Image `json:"image"`
	} `json:"album"`
}
