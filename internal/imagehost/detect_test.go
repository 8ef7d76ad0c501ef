package imagehost

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestFromBytes(t *testing.T) {
	img := FromBytes("dish.png", pngHeader)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, int64(len(pngHeader)), img.Size())

	txt := FromBytes("notes.txt", []byte("just some text"))
	assert.False(t, strings.HasPrefix(txt.ContentType, "image/"), txt.ContentType)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dish.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o644))

	img, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dish.png", img.Name)
	assert.Equal(t, "image/png", img.ContentType)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestReadFile_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxImageSize+1))
	require.NoError(t, f.Close())

	_, err = ReadFile(path)
	assert.ErrorIs(t, err, ErrTooLarge)
}
