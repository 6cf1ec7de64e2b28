package coverfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"

	"github.com/mp3tree/retag/clientutil"
	"github.com/mp3tree/retag/fileutil"
)

const coverName = "cover"

var ErrEmptyImage = errors.New("empty image")

type Downloader struct {
	HTTPClient *http.Client
}

func (d *Downloader) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	_, data, err := clientutil.Request(ctx, d.HTTPClient, http.MethodGet, imageURL)
	if err != nil {
		return nil, fmt.Errorf("download cover: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}

// Save writes data to dir as "cover" with the given extension, replacing any previous
// file atomically. It returns the path written.
func Save(data []byte, dir, ext string) (string, error) {
	p := filepath.Join(dir, coverName+ext)
	if err := fileutil.WriteFileAtomic(p, data, 0o644); err != nil {
		return "", fmt.Errorf("save cover: %w", err)
	}
	return p, nil
}

// CoverExt returns the extension of the URL's path, like ".png", or "" if it has none.
func CoverExt(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return filepath.Ext(imageURL)
	}
	return path.Ext(u.Path)
}
