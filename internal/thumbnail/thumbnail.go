// Package thumbnail generates the bounded, unencrypted low-resolution
// previews stored alongside vault items.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/TheMichaelB/mediavault/internal/models"
)

const jpegQuality = 75

// FrameExtractor pulls a representative still frame out of a video.
// Video decoding lives outside the engine; the default generator
// falls back to a placeholder when no extractor is wired.
type FrameExtractor interface {
	FirstFrame(video []byte) (image.Image, error)
}

// Generator produces preview JPEGs capped at a maximum edge length.
type Generator struct {
	maxEdge int
	frames  FrameExtractor
}

// NewGenerator creates a generator. maxEdge bounds the longest side
// of the output in pixels.
func NewGenerator(maxEdge int, frames FrameExtractor) *Generator {
	return &Generator{maxEdge: maxEdge, frames: frames}
}

// Thumbnail renders the preview for one media item. Photos are
// decoded and downscaled; videos use the extractor's first frame or a
// placeholder. The output never exceeds the configured edge bound.
func (g *Generator) Thumbnail(plaintext []byte, kind models.MediaKind) ([]byte, error) {
	var src image.Image

	switch kind {
	case models.MediaPhoto:
		img, _, err := image.Decode(bytes.NewReader(plaintext))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		src = img
	case models.MediaVideo:
		if g.frames != nil {
			frame, err := g.frames.FirstFrame(plaintext)
			if err != nil {
				src = placeholder(g.maxEdge)
			} else {
				src = frame
			}
		} else {
			src = placeholder(g.maxEdge)
		}
	default:
		return nil, fmt.Errorf("invalid media kind %q", kind)
	}

	return g.encode(downscale(src, g.maxEdge))
}

func (g *Generator) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale fits img inside maxEdge x maxEdge, preserving aspect
// ratio. Images already within the bound pass through unscaled.
func downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	var tw, th int
	if w >= h {
		tw = maxEdge
		th = h * maxEdge / w
	} else {
		th = maxEdge
		tw = w * maxEdge / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// placeholder renders the neutral frame used when a video preview
// cannot be extracted.
func placeholder(edge int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, edge, edge*9/16))
	fill := color.RGBA{R: 0x2e, G: 0x2e, B: 0x32, A: 0xff}
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			img.Set(x, y, fill)
		}
	}
	return img
}
