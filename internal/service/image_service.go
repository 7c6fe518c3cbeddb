package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"yatube/internal/models"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
)

const thumbnailWidth = 480

// ImageService validates uploaded post images and stores them under the
// media root, alongside a WebP thumbnail for listings.
type ImageService struct {
	uploadDir    string
	maxSizeBytes int64
}

// NewImageService wires an image service writing under uploadDir with the
// given size cap in megabytes.
func NewImageService(uploadDir string, maxSizeMB int) *ImageService {
	return &ImageService{
		uploadDir:    uploadDir,
		maxSizeBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

func decodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, format, nil
	}
	// image.Decode only knows registered formats; try WebP explicitly.
	if img, webpErr := webp.Decode(bytes.NewReader(data)); webpErr == nil {
		return img, "webp", nil
	}
	return nil, "", err
}

// Store validates data as a JPEG, PNG or WebP image and writes it to
// posts/<hash>.<ext> under the media root, returning the media-relative
// path. A scaled WebP thumbnail is written next to it as
// posts/<hash>.thumb.webp.
func (s *ImageService) Store(data []byte) (string, error) {
	if int64(len(data)) > s.maxSizeBytes {
		return "", models.NewValidationError(
			fmt.Sprintf("image exceeds %d MB limit", s.maxSizeBytes/(1024*1024)), nil)
	}

	img, format, err := decodeImage(data)
	if err != nil {
		return "", models.NewValidationError("file is not a valid image", err)
	}

	var ext string
	switch format {
	case "jpeg":
		ext = "jpg"
	case "png", "webp":
		ext = format
	default:
		return "", models.NewValidationError("unsupported image format: "+format, nil)
	}

	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:16])
	relPath := filepath.Join("posts", name+"."+ext)

	dir := filepath.Join(s.uploadDir, "posts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewInternalError("failed to create media directory", err)
	}
	if err := os.WriteFile(filepath.Join(s.uploadDir, relPath), data, 0o644); err != nil {
		return "", models.NewInternalError("failed to store image", err)
	}

	if err := s.writeThumbnail(img, filepath.Join(dir, name+".thumb.webp")); err != nil {
		// The original is stored; a missing thumbnail only degrades listings.
		return relPath, nil
	}
	return relPath, nil
}

// Remove deletes a stored image and its thumbnail. Handlers call it to back
// out an upload when the mutation it was attached to is rejected.
func (s *ImageService) Remove(relPath string) {
	if relPath == "" {
		return
	}
	full := filepath.Join(s.uploadDir, relPath)
	os.Remove(full)
	os.Remove(strings.TrimSuffix(full, filepath.Ext(full)) + ".thumb.webp")
}

func (s *ImageService) writeThumbnail(img image.Image, path string) error {
	bounds := img.Bounds()
	if bounds.Dx() <= thumbnailWidth {
		return s.encodeWebP(img, path)
	}

	height := bounds.Dy() * thumbnailWidth / bounds.Dx()
	scaled := image.NewRGBA(image.Rect(0, 0, thumbnailWidth, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
	return s.encodeWebP(scaled, path)
}

func (s *ImageService) encodeWebP(img image.Image, path string) error {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: 80}); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
