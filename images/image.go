package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats.
type ImageFormat string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatUnknown is returned when the encoding cannot be identified.
	FormatUnknown ImageFormat = "unknown"
)

// DetectFormat identifies the encoding of raw image bytes by magic number.
//
// Arguments:
//   - data: The raw image bytes.
//
// Returns:
//   - ImageFormat: The detected format, or FormatUnknown.
func DetectFormat(data []byte) ImageFormat {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return FormatPNG
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// Decode decodes raw JPEG, PNG or WebP bytes into an image.Image.
//
// Arguments:
//   - data: The raw image bytes.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if the bytes are empty, unrecognized or corrupt.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}

	reader := bytes.NewReader(data)
	switch DetectFormat(data) {
	case FormatJPEG:
		img, err := jpeg.Decode(reader)
		return img, errors.Wrap(err, "decoding jpeg")
	case FormatPNG:
		img, err := png.Decode(reader)
		return img, errors.Wrap(err, "decoding png")
	case FormatWebP:
		img, err := webp.Decode(reader)
		return img, errors.Wrap(err, "decoding webp")
	default:
		return nil, errors.New("unsupported image format")
	}
}

// Load reads and decodes a single image file.
//
// Arguments:
//   - path: The image file path.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if reading or decoding fails.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading image %s", path)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", path)
	}
	return img, nil
}
