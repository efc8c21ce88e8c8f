package compositor

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // sticker decoding
	_ "image/png"  // sticker decoding
	"math"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/clipforge/clipforge-agent/internal/clip"
)

const (
	// Subtitles wrap to this fraction of the frame width.
	subtitleWidthFraction = 0.8
	subtitlePadding       = 8
	subtitleBottomMargin  = 24
	badgeAngleDegrees     = -8
)

// Renderer draws the per-frame overlay pass: filters, subtitles, and
// stickers. It is stateless apart from the font face and safe to reuse
// across exports.
type Renderer struct {
	face   font.Face
	scale  int
	height int
}

func NewRenderer() *Renderer {
	return &Renderer{
		face:   basicfont.Face7x13,
		scale:  2,
		height: basicfont.Face7x13.Height,
	}
}

// ApplyFilter applies a CSS-style filter in place. Unknown styles are
// ignored rather than failing the export.
func (r *Renderer) ApplyFilter(img *image.RGBA, style string) {
	name, amount := parseFilter(style)

	switch name {
	case "grayscale":
		mapPixels(img, func(c color.RGBA) color.RGBA {
			gray := uint8((299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000)
			return blend(c, color.RGBA{gray, gray, gray, c.A}, amount)
		})
	case "sepia":
		mapPixels(img, func(c color.RGBA) color.RGBA {
			sr := clamp8(0.393*float64(c.R) + 0.769*float64(c.G) + 0.189*float64(c.B))
			sg := clamp8(0.349*float64(c.R) + 0.686*float64(c.G) + 0.168*float64(c.B))
			sb := clamp8(0.272*float64(c.R) + 0.534*float64(c.G) + 0.131*float64(c.B))
			return blend(c, color.RGBA{sr, sg, sb, c.A}, amount)
		})
	case "invert":
		mapPixels(img, func(c color.RGBA) color.RGBA {
			return blend(c, color.RGBA{255 - c.R, 255 - c.G, 255 - c.B, c.A}, amount)
		})
	case "brightness":
		mapPixels(img, func(c color.RGBA) color.RGBA {
			return color.RGBA{
				clamp8(float64(c.R) * amount),
				clamp8(float64(c.G) * amount),
				clamp8(float64(c.B) * amount),
				c.A,
			}
		})
	case "contrast":
		mapPixels(img, func(c color.RGBA) color.RGBA {
			return color.RGBA{
				clamp8((float64(c.R)-128)*amount + 128),
				clamp8((float64(c.G)-128)*amount + 128),
				clamp8((float64(c.B)-128)*amount + 128),
				c.A,
			}
		})
	}
}

// parseFilter splits "grayscale(0.8)" into name and amount. A bare name
// gets amount 1.
func parseFilter(style string) (string, float64) {
	style = strings.TrimSpace(strings.ToLower(style))
	name := style
	amount := 1.0

	if open := strings.IndexByte(style, '('); open != -1 {
		name = style[:open]
		arg := strings.TrimSuffix(style[open+1:], ")")
		arg = strings.TrimSpace(strings.TrimSuffix(arg, "%"))
		if v, ok := parseFloat(arg); ok {
			amount = v
			if strings.Contains(style, "%") {
				amount /= 100
			}
		}
	}
	return name, amount
}

func parseFloat(s string) (float64, bool) {
	var v float64
	var seen bool
	var frac float64 = 0.1
	inFrac := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seen = true
			if inFrac {
				v += float64(r-'0') * frac
				frac /= 10
			} else {
				v = v*10 + float64(r-'0')
			}
		case r == '.' && !inFrac:
			inFrac = true
		default:
			return 0, false
		}
	}
	return v, seen
}

// DrawSubtitles renders word-wrapped text bottom-anchored over a
// translucent backing box sized to the wrapped block.
func (r *Renderer) DrawSubtitles(img *image.RGBA, text string) {
	bounds := img.Bounds()
	maxWidth := int(float64(bounds.Dx()) * subtitleWidthFraction)

	lines := r.WrapWords(text, maxWidth)
	if len(lines) == 0 {
		return
	}

	lineHeight := r.height * r.scale
	blockHeight := lineHeight*len(lines) + 2*subtitlePadding

	blockWidth := 0
	for _, line := range lines {
		if w := r.measure(line); w > blockWidth {
			blockWidth = w
		}
	}
	blockWidth += 2 * subtitlePadding

	x0 := bounds.Min.X + (bounds.Dx()-blockWidth)/2
	y1 := bounds.Max.Y - subtitleBottomMargin
	y0 := y1 - blockHeight

	fillRect(img, image.Rect(x0, y0, x0+blockWidth, y1), color.RGBA{0, 0, 0, 160})

	// Render lines bottom-up from the anchor.
	y := y1 - subtitlePadding
	for i := len(lines) - 1; i >= 0; i-- {
		w := r.measure(lines[i])
		x := bounds.Min.X + (bounds.Dx()-w)/2
		r.drawString(img, lines[i], x, y-lineHeight, color.RGBA{255, 255, 255, 255})
		y -= lineHeight
	}
}

// WrapWords greedily appends words to a line, closing the line when the
// next word would exceed the pixel width.
func (r *Renderer) WrapWords(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if r.measure(candidate) > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	return append(lines, current)
}

// DrawOverlay draws a sticker: a scaled-up emoji glyph, a rotated meme-text
// badge with a solid background, or an image loaded from disk.
func (r *Renderer) DrawOverlay(img *image.RGBA, ov clip.Overlay) {
	switch ov.Type {
	case clip.OverlayEmoji:
		r.drawEmoji(img, ov.Content, ov.Position)
	case clip.OverlayText:
		r.drawBadge(img, ov.Content, ov.Position)
	case clip.OverlayImage:
		r.drawImageFile(img, ov.Content, ov.Position)
	}
}

func (r *Renderer) drawEmoji(img *image.RGBA, content, position string) {
	if content == "" {
		return
	}
	stamp := r.renderStamp(content, color.RGBA{255, 255, 255, 255}, color.RGBA{}, 4)
	x, y := anchor(img.Bounds(), stamp.Bounds(), position, "center")
	draw.Draw(img, stamp.Bounds().Add(image.Pt(x, y)), stamp, stamp.Bounds().Min, draw.Over)
}

func (r *Renderer) drawBadge(img *image.RGBA, content, position string) {
	if content == "" {
		return
	}
	stamp := r.renderStamp(strings.ToUpper(content), color.RGBA{0, 0, 0, 255}, color.RGBA{255, 221, 0, 255}, 3)
	rotated := rotate(stamp, badgeAngleDegrees*math.Pi/180)
	x, y := anchor(img.Bounds(), rotated.Bounds(), position, "top-right")
	draw.Draw(img, rotated.Bounds().Add(image.Pt(x, y)), rotated, rotated.Bounds().Min, draw.Over)
}

func (r *Renderer) drawImageFile(img *image.RGBA, path, position string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	decoded, _, err := image.Decode(f)
	if err != nil {
		return
	}

	src := image.NewRGBA(decoded.Bounds())
	draw.Draw(src, src.Bounds(), decoded, decoded.Bounds().Min, draw.Src)

	maxW := img.Bounds().Dx() / 4
	if src.Bounds().Dx() > maxW {
		factor := float64(maxW) / float64(src.Bounds().Dx())
		src = scaleNearest(src, factor)
	}
	x, y := anchor(img.Bounds(), src.Bounds(), position, "bottom-right")
	draw.Draw(img, src.Bounds().Add(image.Pt(x, y)), src, src.Bounds().Min, draw.Over)
}

// renderStamp rasterizes text at base size with optional solid background
// and padding, then scales it up for visibility on video frames.
func (r *Renderer) renderStamp(text string, fg, bg color.RGBA, scale int) *image.RGBA {
	w := r.measureBase(text) + 2*subtitlePadding
	h := r.height + 2*subtitlePadding

	base := image.NewRGBA(image.Rect(0, 0, w, h))
	if bg.A > 0 {
		fillRect(base, base.Bounds(), bg)
	}
	d := &font.Drawer{
		Dst:  base,
		Src:  image.NewUniform(fg),
		Face: r.face,
		Dot:  fixed.P(subtitlePadding, h-subtitlePadding-2),
	}
	d.DrawString(text)

	return scaleNearest(base, float64(scale))
}

func (r *Renderer) measureBase(s string) int {
	return font.MeasureString(r.face, s).Ceil()
}

func (r *Renderer) measure(s string) int {
	return r.measureBase(s) * r.scale
}

func (r *Renderer) drawString(img *image.RGBA, s string, x, y int, fg color.RGBA) {
	stamp := r.renderStamp(s, fg, color.RGBA{}, r.scale)
	// The stamp carries its own padding; compensate so x,y is the text
	// corner, not the padded corner.
	offset := image.Pt(x-subtitlePadding*r.scale, y-subtitlePadding*r.scale/2)
	draw.Draw(img, stamp.Bounds().Add(offset), stamp, stamp.Bounds().Min, draw.Over)
}

// --- pixel helpers ---

func mapPixels(img *image.RGBA, fn func(color.RGBA) color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			c := color.RGBA{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
			c = fn(c)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

func blend(from, to color.RGBA, amount float64) color.RGBA {
	if amount >= 1 {
		return to
	}
	if amount <= 0 {
		return from
	}
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a)*(1-amount) + float64(b)*amount)
	}
	return color.RGBA{mix(from.R, to.R), mix(from.G, to.G), mix(from.B, to.B), from.A}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func fillRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	draw.Draw(img, rect.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func scaleNearest(src *image.RGBA, factor float64) *image.RGBA {
	sb := src.Bounds()
	w := int(float64(sb.Dx()) * factor)
	h := int(float64(sb.Dy()) * factor)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx := sb.Min.X + int(float64(x)/factor)
			sy := sb.Min.Y + int(float64(y)/factor)
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

// rotate resamples src around its center by angle radians, growing the
// canvas to fit the rotated bounds.
func rotate(src *image.RGBA, angle float64) *image.RGBA {
	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	sin, cos := math.Abs(math.Sin(angle)), math.Abs(math.Cos(angle))
	dw := int(sw*cos + sh*sin)
	dh := int(sw*sin + sh*cos)

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	cx, cy := sw/2, sh/2
	dcx, dcy := float64(dw)/2, float64(dh)/2

	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			// Inverse-map the destination pixel into source space.
			dx, dy := float64(x)-dcx, float64(y)-dcy
			sx := dx*math.Cos(-angle) - dy*math.Sin(-angle) + cx
			sy := dx*math.Sin(-angle) + dy*math.Cos(-angle) + cy
			if sx >= 0 && sy >= 0 && int(sx) < sb.Dx() && int(sy) < sb.Dy() {
				dst.Set(x, y, src.At(sb.Min.X+int(sx), sb.Min.Y+int(sy)))
			}
		}
	}
	return dst
}

// anchor positions an overlay rectangle inside the frame by position name.
func anchor(frame, overlay image.Rectangle, position, fallback string) (int, int) {
	if position == "" {
		position = fallback
	}
	margin := 16
	w, h := overlay.Dx(), overlay.Dy()

	x := frame.Min.X + (frame.Dx()-w)/2
	y := frame.Min.Y + (frame.Dy()-h)/2

	pos := strings.ToLower(position)
	if strings.Contains(pos, "left") {
		x = frame.Min.X + margin
	}
	if strings.Contains(pos, "right") {
		x = frame.Max.X - w - margin
	}
	if strings.Contains(pos, "top") {
		y = frame.Min.Y + margin
	}
	if strings.Contains(pos, "bottom") {
		y = frame.Max.Y - h - margin
	}
	return x, y
}
