package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// TriColorPalette is the ink set of a black/red/white e-paper panel.
var TriColorPalette = color.Palette{
	color.White,
	color.Black,
	color.RGBA{R: 0xe0, A: 0xff},
}

const (
	inkWhite uint8 = iota
	inkBlack
	inkRed
)

// Quantize maps every pixel of img onto TriColorPalette.
func Quantize(img image.Image) *image.Paletted {
	b := img.Bounds()
	out := image.NewPaletted(b, TriColorPalette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetColorIndex(x, y, classifyPixel(c))
		}
	}
	return out
}

// classifyPixel picks the ink for one pixel:
//
//   - transparent (alpha < 128) is white
//   - luma Y = 0.299R + 0.587G + 0.114B below 64 is black
//   - R > 128 with redness R - max(G, B) above 32 is red
//   - everything else is white
func classifyPixel(c color.NRGBA) uint8 {
	if c.A < 128 {
		return inkWhite
	}
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	if 0.299*r+0.587*g+0.114*b < 64 {
		return inkBlack
	}
	if r > 128 && r-max(g, b) > 32 {
		return inkRed
	}
	return inkWhite
}

// quantizePNG re-encodes a PNG with the tri-color palette.
func quantizePNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, Quantize(img)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
