package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"inviteai/internal/domain"
)

// SyntheticProvider renders a deterministic placeholder PNG. It stands in for
// vendors without credentials so local environments exercise the full flow.
type SyntheticProvider struct {
	Width  int
	Height int
}

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{Width: 512, Height: 768}
}

func (p *SyntheticProvider) GenerateImage(ctx context.Context, req Request) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := req.Seed
	if seed == 0 {
		seed = Seed(req.Prompt, req.ImageURL, req.VariationIndex)
	}
	data, err := renderPlaceholder(p.Width, p.Height, uint32(seed))
	if err != nil {
		return nil, err
	}
	return &Output{
		Encoding:      domain.EncodingInline,
		Data:          data,
		MIME:          "image/png",
		ProviderJobID: fmt.Sprintf("synthetic-%d", seed),
	}, nil
}

func renderPlaceholder(width, height int, seed uint32) ([]byte, error) {
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 768
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := seedColor(seed, 0)
	accent := seedColor(seed, 8)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripe := max(24, height/16)
	for y := 0; y < height; y += stripe * 2 {
		draw.Draw(img, image.Rect(0, y, width, min(height, y+stripe)), &image.Uniform{accent}, image.Point{}, draw.Over)
	}
	diagonal := seedColor(seed, 16)
	for x := 0; x < width; x += max(16, width/24) {
		for y := 0; y < height && x+y < width; y++ {
			img.Set(x+y, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func seedColor(seed uint32, shift uint) color.RGBA {
	v := seed>>shift | seed<<(32-shift)
	return color.RGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 255}
}

var _ Provider = (*SyntheticProvider)(nil)
