// tagdiff compares a file's frames before and after retagging
package tagdiff

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.senan.xyz/table/table"
)

var dmp = diffmatchpatch.New()

type Diff struct {
	Field         string
	Before, After []diffmatchpatch.Diff
	Equal         bool
}

// Compare diffs every field present in either before or after, ordered by field. A field
// that appears or disappears is never equal, even when its text is empty.
func Compare(before, after map[string]string) []Diff {
	fields := slices.Sorted(maps.Keys(before))
	for f := range after {
		if _, ok := before[f]; !ok {
			fields = append(fields, f)
		}
	}
	slices.Sort(fields)

	diffs := make([]Diff, 0, len(fields))
	for _, f := range fields {
		a, inA := before[f]
		b, inB := after[f]

		changes := dmp.DiffMain(a, b, false)
		diffs = append(diffs, Diff{
			Field:  f,
			Before: filterFunc(changes, func(d diffmatchpatch.Diff) bool { return d.Type <= diffmatchpatch.DiffEqual }),
			After:  filterFunc(changes, func(d diffmatchpatch.Diff) bool { return d.Type >= diffmatchpatch.DiffEqual }),
			Equal:  inA == inB && dmp.DiffLevenshtein(changes) == 0,
		})
	}
	return diffs
}

// Changed reports whether any of diffs is not equal.
func Changed(diffs []Diff) bool {
	return slices.ContainsFunc(diffs, func(d Diff) bool { return !d.Equal })
}

// Table renders the unequal diffs as aligned field, before and after columns with the
// changes coloured.
func Table(diffs []Diff) string {
	t := table.NewStringWriter()
	for _, d := range diffs {
		if d.Equal {
			continue
		}
		fmt.Fprintf(t, "%s\t%s\t%s\n", d.Field, fmtDiff(d.Before), fmtDiff(d.After))
	}
	return strings.TrimRight(t.String(), "\n")
}

func fmtDiff(diff []diffmatchpatch.Diff) string {
	if d := dmp.DiffPrettyText(diff); d != "" {
		return d
	}
	return "[empty]"
}

func filterFunc[T any](diffs []T, f func(T) bool) []T {
	var r []T
	for _, diff := range diffs {
		if f(diff) {
			r = append(r, diff)
		}
	}
	return r
}
