// Package compositor builds the try-on preview stack and flattens overlay
// layers into the single PNG that is saved to the wardrobe.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// GarmentOpacity is how opaque the garment is drawn over the base in the preview.
const GarmentOpacity = 0.85

// GarmentMaxWidth caps the garment's rendered width in the preview.
const GarmentMaxWidth = 300

// MaxCanvasSide bounds either side of a canvas or a scaled layer.
const MaxCanvasSide = 4096

var (
	// ErrNoResult means there is nothing to flatten yet.
	ErrNoResult = errors.New("no try-on result to flatten")
	// ErrEmptyCanvas means the base layer has no displayable size.
	ErrEmptyCanvas = errors.New("base image has no size")
	// ErrCanvasTooLarge means a requested size is above MaxCanvasSide.
	ErrCanvasTooLarge = errors.New("image size too large")
)

// Loader fetches the bytes behind an image reference.
type Loader interface {
	Load(ctx context.Context, ref string) ([]byte, string, error)
}

// Layer is one absolutely positioned image in a stack. Width and Height are
// the rendered size; zero means the image's natural size (limited by MaxWidth).
type Layer struct {
	Src       string  `json:"src"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	MaxWidth  int     `json:"max_width,omitempty"`
	Opacity   float64 `json:"opacity,omitempty"`
	Hidden    bool    `json:"hidden,omitempty"`
	Accessory bool    `json:"accessory,omitempty"`
}

// Scene is a container to flatten. The first layer is the base image; Width
// and Height are its displayed size and become the canvas size.
type Scene struct {
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	Layers []Layer `json:"layers"`
}

// PreviewStack returns the base image with the garment overlaid at the same
// top-left origin. It is rebuilt from scratch on every change.
func PreviewStack(base, garment string) []Layer {
	if base == "" {
		return nil
	}
	stack := []Layer{{Src: base}}
	if garment != "" {
		stack = append(stack, Layer{Src: garment, Opacity: GarmentOpacity, MaxWidth: GarmentMaxWidth})
	}
	return stack
}

// Flatten draws every visible, non-accessory layer of the scene onto a
// canvas sized to the base layer and encodes it as PNG. Accessory layers are
// tracked in outfit metadata only.
func Flatten(ctx context.Context, loader Loader, scene Scene) ([]byte, error) {
	if len(scene.Layers) == 0 || scene.Layers[0].Src == "" {
		return nil, ErrNoResult
	}

	baseImg, err := load(ctx, loader, scene.Layers[0].Src)
	if err != nil {
		return nil, fmt.Errorf("load base layer: %w", err)
	}

	w, h := scene.Width, scene.Height
	if w == 0 || h == 0 {
		w, h = renderedSize(scene.Layers[0], baseImg.Bounds())
	}
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyCanvas
	}
	if w > MaxCanvasSide || h > MaxCanvasSide {
		return nil, fmt.Errorf("canvas %dx%d: %w", w, h, ErrCanvasTooLarge)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, layer := range scene.Layers {
		if layer.Hidden || layer.Accessory || layer.Src == "" {
			continue
		}
		img := baseImg
		if i > 0 {
			img, err = load(ctx, loader, layer.Src)
			if err != nil {
				return nil, fmt.Errorf("load layer %d: %w", i, err)
			}
		}
		if err := drawLayer(canvas, img, layer); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPreview rasterizes a preview stack at the base image's natural size.
func RenderPreview(ctx context.Context, loader Loader, stack []Layer) ([]byte, error) {
	return Flatten(ctx, loader, Scene{Layers: stack})
}

func load(ctx context.Context, loader Loader, ref string) (image.Image, error) {
	data, _, err := loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// renderedSize mirrors how a browser sizes an <img>: explicit sizes win,
// a missing dimension keeps the aspect ratio and max-width scales down.
func renderedSize(l Layer, natural image.Rectangle) (int, int) {
	nw, nh := natural.Dx(), natural.Dy()
	w, h := l.Width, l.Height
	switch {
	case w > 0 && h > 0:
	case w > 0 && nw > 0:
		h = w * nh / nw
	case h > 0 && nh > 0:
		w = h * nw / nh
	default:
		w, h = nw, nh
	}
	if l.MaxWidth > 0 && w > l.MaxWidth && w > 0 {
		h = h * l.MaxWidth / w
		w = l.MaxWidth
	}
	return w, h
}

func drawLayer(canvas *image.RGBA, img image.Image, l Layer) error {
	w, h := renderedSize(l, img.Bounds())
	if w <= 0 || h <= 0 {
		return nil
	}
	if w > MaxCanvasSide || h > MaxCanvasSide {
		return fmt.Errorf("scaled to %dx%d: %w", w, h, ErrCanvasTooLarge)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	dst := image.Rect(l.X, l.Y, l.X+w, l.Y+h)
	opacity := l.Opacity
	if opacity <= 0 || opacity >= 1 {
		draw.Draw(canvas, dst, scaled, image.Point{}, draw.Over)
		return nil
	}
	mask := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(canvas, dst, scaled, image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}
