package hook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := New(`convert "<path>" -resize 500x500 '<path>.small.jpg'`)
	require.NoError(t, err)
	assert.Equal(t, "convert", c.command)
	assert.Equal(t, []string{"<path>", "-resize", "500x500", "<path>.small.jpg"}, c.args)
	assert.Equal(t, `"convert" "<path>" "-resize" "500x500" "<path>.small.jpg"`, c.String())

	_, err = New("  ")
	assert.ErrorIs(t, err, ErrNoCommand)

	_, err = New(`unterminated "quote`)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.jpg")
	require.NoError(t, os.WriteFile(cover, []byte("jpeg"), 0o644))

	c, err := New("cp <path> <path>.bak")
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), cover))

	data, err := os.ReadFile(cover + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	c, err = New("cp <path> " + filepath.Join(dir, "missing", "x"))
	require.NoError(t, err)
	assert.Error(t, c.Run(context.Background(), cover))
}
