package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/rand/v2"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/panyu/myblog/ports"
)

const (
	DefaultWidth  = 100
	DefaultHeight = 40

	glyphScale    = 2
	glyphAdvance  = 20
	glyphOffsetX  = 10
	maxRotation   = 15.0 // degrees either way
	distractorCnt = 3
)

var (
	background = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	lineColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	border     = color.RGBA{A: 255}
)

// Renderer draws codes into small PNG images with per-glyph colour and
// rotation jitter plus a few distractor lines. The jitter is cosmetic; the
// code itself comes from the caller.
type Renderer struct {
	width  int
	height int
	face   font.Face
}

// NewRenderer creates a renderer for DefaultWidth x DefaultHeight images
func NewRenderer() *Renderer {
	return &Renderer{
		width:  DefaultWidth,
		height: DefaultHeight,
		face:   basicfont.Face7x13,
	}
}

var _ ports.CaptchaRenderer = (*Renderer)(nil)

// Render returns the PNG encoding of code
func (r *Renderer) Render(code string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for i := 0; i < distractorCnt; i++ {
		drawLine(img,
			rand.IntN(r.width), rand.IntN(r.height),
			rand.IntN(r.width), rand.IntN(r.height),
			lineColor)
	}

	for i, ch := range code {
		ink := color.RGBA{
			R: uint8(rand.IntN(100)),
			G: uint8(rand.IntN(100)),
			B: uint8(rand.IntN(100)),
			A: 255,
		}
		angle := (rand.Float64()*2 - 1) * maxRotation * math.Pi / 180
		cx := glyphOffsetX + i*glyphAdvance + glyphAdvance/2 - 3
		cy := r.height / 2
		r.drawGlyph(img, ch, ink, angle, cx, cy)
	}

	drawRect(img, border)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode captcha image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawGlyph rasterises ch at its native size, then copies it onto dst scaled
// by glyphScale and rotated by angle around (cx, cy).
func (r *Renderer) drawGlyph(dst *image.RGBA, ch rune, ink color.RGBA, angle float64, cx, cy int) {
	metrics := r.face.Metrics()
	adv, ok := r.face.GlyphAdvance(ch)
	if !ok {
		return
	}
	gw := adv.Ceil()
	gh := (metrics.Ascent + metrics.Descent).Ceil()
	glyph := image.NewAlpha(image.Rect(0, 0, gw, gh))

	d := &font.Drawer{
		Dst:  glyph,
		Src:  image.Opaque,
		Face: r.face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(string(ch))

	sin, cos := math.Sincos(-angle)
	half := float64(max(gw, gh)*glyphScale) * 0.75
	gcx, gcy := float64(gw)/2, float64(gh)/2

	for y := int(-half); y <= int(half); y++ {
		for x := int(-half); x <= int(half); x++ {
			// inverse rotation, then inverse scale
			sx := (float64(x)*cos-float64(y)*sin)/glyphScale + gcx
			sy := (float64(x)*sin+float64(y)*cos)/glyphScale + gcy
			if sx < 0 || sy < 0 || int(sx) >= gw || int(sy) >= gh {
				continue
			}
			if glyph.AlphaAt(int(sx), int(sy)).A < 128 {
				continue
			}
			px, py := cx+x, cy+y
			if image.Pt(px, py).In(dst.Bounds()) {
				dst.SetRGBA(px, py, ink)
			}
		}
	}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawRect(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		img.SetRGBA(x, b.Min.Y, c)
		img.SetRGBA(x, b.Max.Y-1, c)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		img.SetRGBA(b.Min.X, y, c)
		img.SetRGBA(b.Max.X-1, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
