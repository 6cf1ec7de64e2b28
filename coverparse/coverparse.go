package coverparse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mp3tree/retag/fileutil"
)

var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// IsCover reports whether the file name looks like album art.
func IsCover(name string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// HasCover reports whether dir directly contains any album art.
func HasCover(dir string) (bool, error) {
	covers, err := fileutil.ListFiles(dir, IsCover)
	if err != nil {
		return false, fmt.Errorf("list dir: %w", err)
	}
	return len(covers) > 0, nil
}
