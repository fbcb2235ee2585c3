// Package fingerprint reduces observations to comparable values: a digest for
// text and a changed-pixel ratio for pairs of screenshots.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"go-jobwatch/internal/models"
)

// Text returns the hex sha256 digest of already normalized text
func Text(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ImageDiff is the result of comparing two screenshots
type ImageDiff struct {
	ChangeRatio   float64 `json:"change_ratio"`
	TotalPixels   int     `json:"total_pixels"`
	ChangedPixels int     `json:"changed_pixels"`
	MaxIntensity  uint8   `json:"max_intensity"`
	AvgIntensity  float64 `json:"avg_intensity"`
	//Resized is true when the current image was scaled to the prior's size
	Resized bool `json:"resized"`
}

// DecodeImage decodes PNG or JPEG bytes
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", models.ErrComparison, err)
	}
	return img, nil
}

// EncodePNG encodes an image as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// CompareImages decodes both screenshots and compares them. Any decode failure
// is reported as models.ErrComparison.
func CompareImages(prior, current []byte) (*ImageDiff, *image.Gray, error) {
	priorImg, err := DecodeImage(prior)
	if err != nil {
		return nil, nil, fmt.Errorf("prior: %w", err)
	}
	currentImg, err := DecodeImage(current)
	if err != nil {
		return nil, nil, fmt.Errorf("current: %w", err)
	}
	diff, gray := Compare(priorImg, currentImg)
	return diff, gray, nil
}

// Compare computes the changed-pixel ratio of current against prior. When the
// sizes differ the current image is resampled to the prior's size first, so a
// page that merely rendered taller does not count as changed.
func Compare(prior, current image.Image) (*ImageDiff, *image.Gray) {
	bounds := image.Rect(0, 0, prior.Bounds().Dx(), prior.Bounds().Dy())
	a := toRGBA(prior, bounds)

	var b *image.RGBA
	resized := current.Bounds().Size() != bounds.Size()
	if resized {
		b = image.NewRGBA(bounds)
		draw.CatmullRom.Scale(b, bounds, current, current.Bounds(), draw.Src, nil)
	} else {
		b = toRGBA(current, bounds)
	}

	gray := image.NewGray(bounds)
	var histogram [256]int
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			i := a.PixOffset(x, y)
			r := absDiff(a.Pix[i], b.Pix[i])
			g := absDiff(a.Pix[i+1], b.Pix[i+1])
			bl := absDiff(a.Pix[i+2], b.Pix[i+2])
			l := luma(r, g, bl)
			gray.Pix[gray.PixOffset(x, y)] = l
			histogram[l]++
		}
	}

	total := bounds.Dx() * bounds.Dy()
	diff := &ImageDiff{TotalPixels: total, Resized: resized}
	if total == 0 {
		return diff, gray
	}

	var sum int
	for level := 1; level < len(histogram); level++ {
		count := histogram[level]
		if count == 0 {
			continue
		}
		diff.ChangedPixels += count
		sum += level * count
		diff.MaxIntensity = uint8(level)
	}
	diff.ChangeRatio = float64(diff.ChangedPixels) / float64(total) * 100
	diff.AvgIntensity = float64(sum) / float64(total)
	return diff, gray
}

func toRGBA(img image.Image, bounds image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, img.Bounds().Min, draw.Src)
	return dst
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// luma collapses an RGB difference to one channel with ITU-R 601-2 weights,
// rounded the same way common imaging libraries do
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}
