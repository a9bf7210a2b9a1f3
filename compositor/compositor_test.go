package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

type mapLoader map[string][]byte

func (m mapLoader) Load(ctx context.Context, ref string) ([]byte, string, error) {
	data, ok := m[ref]
	if !ok {
		return nil, "", errors.New("not found: " + ref)
	}
	return data, "image/png", nil
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return img
}

func rgb(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestFlattenDrawsVisibleNonAccessoryLayers(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}

	loader := mapLoader{
		"base":    solidPNG(t, 100, 80, red),
		"garment": solidPNG(t, 20, 10, blue),
		"watch":   solidPNG(t, 10, 10, green),
		"hidden":  solidPNG(t, 50, 40, green),
	}

	scene := Scene{
		Width:  50,
		Height: 40,
		Layers: []Layer{
			{Src: "base", Width: 50, Height: 40},
			{Src: "garment", X: 10, Y: 5, Width: 40, Height: 20},
			{Src: "watch", X: 0, Y: 0, Accessory: true},
			{Src: "hidden", Hidden: true},
		},
	}

	out, err := Flatten(context.Background(), loader, scene)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	img := decode(t, out)

	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 40 {
		t.Fatalf("canvas = %v, want 50x40", b)
	}
	if r, g, b := rgb(img, 2, 2); r != 255 || g != 0 || b != 0 {
		t.Errorf("accessory or hidden layer drawn at (2,2): %d,%d,%d", r, g, b)
	}
	if r, _, b := rgb(img, 20, 15); b != 255 || r != 0 {
		t.Errorf("garment missing at (20,15): r=%d b=%d", r, b)
	}
	if r, _, b := rgb(img, 45, 35); r != 255 || b != 0 {
		t.Errorf("base missing at (45,35): r=%d b=%d", r, b)
	}
}

func TestFlattenUsesBaseDisplayedSizeWhenSceneUnsized(t *testing.T) {
	loader := mapLoader{"base": solidPNG(t, 600, 400, color.White)}

	out, err := Flatten(context.Background(), loader, Scene{Layers: []Layer{{Src: "base", MaxWidth: 300}}})
	if err != nil {
		t.Fatal(err)
	}
	if b := decode(t, out).Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("canvas = %v, want 300x200", b)
	}
}

func TestFlattenRefusesWithoutResult(t *testing.T) {
	tests := []struct {
		name  string
		scene Scene
	}{
		{name: "no layers", scene: Scene{}},
		{name: "empty base", scene: Scene{Layers: []Layer{{Src: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Flatten(context.Background(), mapLoader{}, tt.scene)
			if !errors.Is(err, ErrNoResult) {
				t.Errorf("err = %v, want ErrNoResult", err)
			}
		})
	}
}

func TestFlattenRejectsOversizedCanvas(t *testing.T) {
	loader := mapLoader{"result": solidPNG(t, 4, 4, color.White)}
	tests := []struct {
		name  string
		scene Scene
	}{
		{name: "huge scene", scene: Scene{Width: 1 << 31, Height: 1 << 31, Layers: []Layer{{Src: "result", Width: 1 << 31, Height: 1 << 31}}}},
		{name: "wide scene", scene: Scene{Width: MaxCanvasSide + 1, Height: 10, Layers: []Layer{{Src: "result"}}}},
		{name: "huge layer", scene: Scene{Width: 10, Height: 10, Layers: []Layer{{Src: "result", Width: 60000, Height: 60000}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Flatten(context.Background(), loader, tt.scene)
			if !errors.Is(err, ErrCanvasTooLarge) {
				t.Errorf("err = %v, want ErrCanvasTooLarge", err)
			}
		})
	}
}

func TestPreviewStack(t *testing.T) {
	if got := PreviewStack("", "g"); got != nil {
		t.Errorf("PreviewStack without base = %v", got)
	}

	stack := PreviewStack("base", "garment")
	if len(stack) != 2 {
		t.Fatalf("len = %d", len(stack))
	}
	g := stack[1]
	if g.X != 0 || g.Y != 0 || g.Opacity != GarmentOpacity || g.MaxWidth != GarmentMaxWidth {
		t.Errorf("garment layer = %+v", g)
	}

	if only := PreviewStack("base", ""); len(only) != 1 {
		t.Errorf("stack without garment = %v", only)
	}
}

func TestRenderPreviewAppliesGarmentOpacity(t *testing.T) {
	loader := mapLoader{
		"base":    solidPNG(t, 10, 10, color.Black),
		"garment": solidPNG(t, 10, 10, color.White),
	}

	out, err := RenderPreview(context.Background(), loader, PreviewStack("base", "garment"))
	if err != nil {
		t.Fatal(err)
	}
	r, _, _ := rgb(decode(t, out), 5, 5)
	if r < 214 || r > 220 {
		t.Errorf("blended red = %d, want about %.0f", r, GarmentOpacity*255)
	}
}
