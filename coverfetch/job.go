package coverfetch

import (
	"maps"
	"slices"

	"go.senan.xyz/natcmp"
)

type Job struct {
	Artist string
	Album  string
	Dir    string
}

type Album struct {
	Artist string
	Title  string
}

// Index maps a directory missing cover art to the album it holds.
type Index map[string]Album

// Add records dir unless it is already present, and reports whether it was added.
func (ix Index) Add(dir string, album Album) bool {
	if _, ok := ix[dir]; ok {
		return false
	}
	ix[dir] = album
	return true
}

// Jobs copies the index into jobs, ordered naturally by directory.
func (ix Index) Jobs() []Job {
	dirs := slices.SortedFunc(maps.Keys(ix), natcmp.Compare)
	jobs := make([]Job, 0, len(dirs))
	for _, dir := range dirs {
		album := ix[dir]
		jobs = append(jobs, Job{Artist: album.Artist, Album: album.Title, Dir: dir})
	}
	return jobs
}
