// Package retag tags a genre/artist/album/track.mp3 tree from its layout and finds the
// albums that are missing cover art.
package retag

import (
	_ "embed"
	"strings"
)

//go:embed version.txt
var version string
var Version = strings.TrimSpace(version)

var Name = "retag"
