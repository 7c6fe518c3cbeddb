package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageStorePNG(t *testing.T) {
	dir := t.TempDir()
	svc := NewImageService(dir, 5)

	relPath, err := svc.Store(pngBytes(t, 32, 32))
	require.NoError(t, err)
	assert.Equal(t, "posts", filepath.Dir(relPath))
	assert.Equal(t, ".png", filepath.Ext(relPath))

	_, err = os.Stat(filepath.Join(dir, relPath))
	assert.NoError(t, err, "stored image must exist under the media root")
}

func TestImageStoreIsContentAddressed(t *testing.T) {
	svc := NewImageService(t.TempDir(), 5)

	data := pngBytes(t, 16, 16)
	first, err := svc.Store(data)
	require.NoError(t, err)
	second, err := svc.Store(data)
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical bytes must map to the same path")
}

func TestImageRemoveDeletesImageAndThumbnail(t *testing.T) {
	dir := t.TempDir()
	svc := NewImageService(dir, 5)

	relPath, err := svc.Store(pngBytes(t, 32, 32))
	require.NoError(t, err)

	svc.Remove(relPath)

	entries, err := os.ReadDir(filepath.Join(dir, "posts"))
	require.NoError(t, err)
	assert.Empty(t, entries, "image and thumbnail must both be gone")
}

func TestImageStoreRejectsGarbage(t *testing.T) {
	svc := NewImageService(t.TempDir(), 5)

	_, err := svc.Store([]byte("definitely not an image"))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestImageStoreRejectsOversize(t *testing.T) {
	svc := NewImageService(t.TempDir(), 0)

	_, err := svc.Store(pngBytes(t, 8, 8))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
