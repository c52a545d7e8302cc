// Package ogimage renders the social preview card served for player profiles.
package ogimage

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/aveforge-dashboard/internal/domain"
	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Output size of the card in pixels
const (
	Width  = 1200
	Height = 630
)

const (
	scale  = 4
	margin = 16
)

var (
	gradientFrom = color.RGBA{0x02, 0x06, 0x17, 0xff}
	gradientTo   = color.RGBA{0x5b, 0x21, 0xb6, 0xff}

	brandColor = color.RGBA{0xc4, 0xb5, 0xfd, 0xff}
	textColor  = color.RGBA{0xf8, 0xfa, 0xfc, 0xff}
	mutedColor = color.RGBA{0x94, 0xa3, 0xb8, 0xff}
)

// Stat is one labelled figure in the bottom row of the card
type Stat struct {
	Label string
	Value string
}

// Card is the content drawn on a preview image
type Card struct {
	Brand    string
	Title    string
	Subtitle string
	Stats    []Stat
}

// PlayerCard builds the preview for a player profile
func PlayerCard(p *domain.Player) Card {
	return Card{
		Brand:    "AVE FORGE",
		Title:    p.DisplayName,
		Subtitle: p.Handle,
		Stats: []Stat{
			{Label: "LEVEL", Value: fmt.Sprint(p.Level)},
			{Label: "WINS", Value: fmt.Sprint(p.Wins)},
			{Label: "WIN RATE", Value: fmt.Sprintf("%.0f%%", math.Round(p.WinRate()))},
			{Label: "MISSIONS", Value: fmt.Sprint(p.MissionsCompleted)},
		},
	}
}

// NotFoundCard is served when the requested player does not exist
func NotFoundCard() Card {
	return Card{
		Brand: "AVE FORGE",
		Title: "Player not found",
	}
}

// Render draws card at quarter scale, upscales it to Width x Height and
// writes it as PNG
func Render(w io.Writer, card Card) error {
	small := image.NewRGBA(image.Rect(0, 0, Width/scale, (Height+scale-1)/scale))
	fillGradient(small, gradientFrom, gradientTo)

	y := margin + 8
	drawText(small, card.Brand, margin, y, brandColor, 1)

	y += 10
	titleScale := 2
	maxChars := (small.Bounds().Dx() - 2*margin) / (glyphWidth * titleScale)
	drawText(small, truncate(card.Title, maxChars), margin, y, textColor, titleScale)
	y += glyphHeight*titleScale + 6

	drawText(small, truncate(card.Subtitle, maxChars*titleScale), margin, y, mutedColor, 1)

	if len(card.Stats) > 0 {
		colWidth := (small.Bounds().Dx() - 2*margin) / len(card.Stats)
		labelY := small.Bounds().Dy() - margin - 2*glyphHeight - 2
		for i, stat := range card.Stats {
			x := margin + i*colWidth
			cols := colWidth / glyphWidth
			drawText(small, truncate(stat.Label, cols), x, labelY, mutedColor, 1)
			drawText(small, truncate(stat.Value, cols), x, labelY+glyphHeight+2, textColor, 1)
		}
	}

	out := resize.Resize(Width, Height, small, resize.NearestNeighbor)
	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("encoding preview: %w", err)
	}
	return nil
}

var (
	face        = basicfont.Face7x13
	glyphWidth  = face.Advance
	glyphHeight = face.Height
	glyphAscent = face.Ascent
)

// fillGradient paints a diagonal gradient from the top-left to the
// bottom-right corner
func fillGradient(img *image.RGBA, from, to color.RGBA) {
	b := img.Bounds()
	span := float64(b.Dx() + b.Dy() - 2)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			t := float64(x-b.Min.X+y-b.Min.Y) / span
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 0xff,
			})
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// drawText draws s with its top-left corner at (x, top). Text larger than
// one is rendered once and enlarged so glyphs stay crisp.
func drawText(dst *image.RGBA, s string, x, top int, c color.Color, textScale int) {
	if s == "" {
		return
	}

	if textScale <= 1 {
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.P(x, top+glyphAscent),
		}
		d.DrawString(s)
		return
	}

	width := font.MeasureString(face, s).Ceil()
	glyphs := image.NewRGBA(image.Rect(0, 0, width, glyphHeight))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, glyphAscent),
	}
	d.DrawString(s)

	big := resize.Resize(uint(width*textScale), uint(glyphHeight*textScale), glyphs, resize.NearestNeighbor)
	draw.Draw(dst, big.Bounds().Add(image.Pt(x, top)), big, image.Point{}, draw.Over)
}

// truncate shortens s to at most max runes, ending in "..." when cut
func truncate(s string, max int) string {
	runes := []rune(s)
	switch {
	case len(runes) <= max:
		return s
	case max <= 3:
		return string(runes[:max])
	default:
		return string(runes[:max-3]) + "..."
	}
}
