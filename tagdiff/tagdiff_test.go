package tagdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	diffs := Compare(
		map[string]string{"TALB": "Face the Colossus", "TPE1": "Dagoba", "APIC": ""},
		map[string]string{"TALB": "Face The Colossus", "TPE1": "Dagoba", "TFLT": "MPG/3"},
	)
	require.Len(t, diffs, 4)

	fields := make([]string, 0, len(diffs))
	for _, d := range diffs {
		fields = append(fields, d.Field)
	}
	assert.Equal(t, []string{"APIC", "TALB", "TFLT", "TPE1"}, fields)

	// removed, even though it had no text
	assert.False(t, diffs[0].Equal)

	assert.False(t, diffs[1].Equal)
	assert.Equal(t, "Face the Colossus", dmp.DiffText1(diffs[1].Before))
	assert.Equal(t, "Face The Colossus", dmp.DiffText2(diffs[1].After))

	assert.False(t, diffs[2].Equal)
	assert.Equal(t, "", dmp.DiffText1(diffs[2].Before))
	assert.Equal(t, "MPG/3", dmp.DiffText2(diffs[2].After))

	assert.True(t, diffs[3].Equal)
	assert.True(t, Changed(diffs))
}

func TestUnchanged(t *testing.T) {
	t.Parallel()

	same := map[string]string{"TIT2": "Black Smokers", "TRCK": "1/12"}
	diffs := Compare(same, same)
	assert.False(t, Changed(diffs))
	assert.Equal(t, "", Table(diffs))

	assert.False(t, Changed(Compare(nil, nil)))
}

func TestTable(t *testing.T) {
	t.Parallel()

	out := Table(Compare(
		map[string]string{"TIT2": "old", "TPE1": "same"},
		map[string]string{"TIT2": "new", "TPE1": "same", "TPOS": ""},
	))
	assert.Contains(t, out, "TIT2")
	assert.Contains(t, out, "TPOS")
	assert.Contains(t, out, "[empty]")
	assert.NotContains(t, out, "TPE1")
}
