// Package images - Image decoding and model-input preprocessing.
package images

import (
	"image"
	"image/draw"
	"math"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DefaultTargetSize is the square model input size expected by the detector.
const DefaultTargetSize = 320

// ErrInvalidImage reports a source image with a zero dimension.
var ErrInvalidImage = errors.New("invalid image: zero width or height")

// LetterboxResult holds the preprocessed tensor together with the geometry
// needed to map detections back onto the original image.
type LetterboxResult struct {
	// Tensor contains the normalized pixels in channel-planar (C,H,W) order.
	Tensor []float32 `json:"tensor"`
	// Dims is the tensor shape, always [1, 3, targetSize, targetSize].
	Dims []int64 `json:"dims"`
	// PadLeft is the x offset where the resized content begins on the canvas.
	PadLeft int `json:"pad_left"`
	// PadTop is the y offset where the resized content begins on the canvas.
	PadTop int `json:"pad_top"`
	// Scale is the uniform factor applied to the original image.
	Scale float32 `json:"scale"`
}

// Letterbox resizes img so its longer side equals targetSize, centers the
// result on a black targetSize x targetSize canvas and converts the canvas
// into a channel-planar float32 tensor normalized to [0,1].
//
// Arguments:
//   - img: The source image.
//   - targetSize: The square canvas size; DefaultTargetSize when <= 0.
//
// Returns:
//   - *LetterboxResult: The tensor and its inversion geometry.
//   - error: ErrInvalidImage if the source has a zero dimension.
func Letterbox(img image.Image, targetSize int) (*LetterboxResult, error) {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, errors.Wrapf(ErrInvalidImage, "%dx%d", srcW, srcH)
	}

	// The longer side maps to targetSize, the shorter one is rounded to the
	// nearest pixel, so neither dimension exceeds the canvas and exactly one
	// equals it.
	var newW, newH int
	if srcW >= srcH {
		newW = targetSize
		newH = int(math.Round(float64(targetSize) * float64(srcH) / float64(srcW)))
	} else {
		newH = targetSize
		newW = int(math.Round(float64(targetSize) * float64(srcW) / float64(srcH)))
	}

	// Odd padding totals push the extra pixel to the trailing side.
	padLeft := (targetSize - newW) / 2
	padTop := (targetSize - newH) / 2

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)

	// A fresh RGBA canvas is zero-filled, which is already the black padding.
	canvas := image.NewRGBA(image.Rect(0, 0, targetSize, targetSize))
	draw.Draw(canvas, image.Rect(padLeft, padTop, padLeft+newW, padTop+newH),
		resized, image.Point{}, draw.Src)

	data := make([]float32, tensor.Shape{1, 3, targetSize, targetSize}.TotalSize())

	channelSize := targetSize * targetSize
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	i := 0
	for y := 0; y < targetSize; y++ {
		for x := 0; x < targetSize; x++ {
			r, g, b, _ := canvas.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}

	scale := math32.Min(
		float32(targetSize)/float32(srcW),
		float32(targetSize)/float32(srcH),
	)

	return &LetterboxResult{
		Tensor:  data,
		Dims:    []int64{1, 3, int64(targetSize), int64(targetSize)},
		PadLeft: padLeft,
		PadTop:  padTop,
		Scale:   scale,
	}, nil
}
