package imagehost

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest photo accepted, in bytes.
const MaxImageSize = 32 * 1024 * 1024

// ErrTooLarge is returned for images over MaxImageSize.
var ErrTooLarge = errors.New("Image file is too large. Please use an image smaller than 32MB.")

// FromBytes builds an Image, detecting the content type from its magic bytes.
func FromBytes(name string, data []byte) Image {
	return Image{
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
}

// ReadFile loads an image from disk. Files over MaxImageSize are refused
// before they are read.
func ReadFile(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	if info.Size() > MaxImageSize {
		return Image{}, ErrTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return FromBytes(filepath.Base(path), data), nil
}
