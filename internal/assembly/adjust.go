package assembly

import (
	"github.com/fogleman/gg"

	"ceritanya-photobox/internal/photobox"
)

const (
	adjustOutW = 800
	adjustOutH = 600 // fixed 4:3 output, same frame the generator targets
)

// Adjust implements photobox.Adjuster: crop/rotate/zoom the slot's source
// into a fresh 4:3 active image. The source is decoded fresh each call, so a
// failed attempt leaves nothing half-modified.
func (c *Compositor) Adjust(src string, opts photobox.AdjustOptions) (string, error) {
	img, err := decodeDataURL(src)
	if err != nil {
		return "", err
	}

	zoom := opts.Zoom
	if zoom < 1 {
		zoom = 1
	}
	if zoom > 3 {
		zoom = 3
	}
	cx := opts.CenterX
	if cx <= 0 || cx > 1 {
		cx = 0.5
	}
	cy := opts.CenterY
	if cy <= 0 || cy > 1 {
		cy = 0.5
	}

	bounds := img.Bounds()
	srcW := float64(bounds.Dx())
	srcH := float64(bounds.Dy())

	// Scale so the zoomed crop window fills the output, then rotate about
	// the chosen center.
	scale := float64(adjustOutW) / srcW * zoom
	if s := float64(adjustOutH) / srcH * zoom; s > scale {
		scale = s
	}

	dc := gg.NewContext(adjustOutW, adjustOutH)
	dc.Translate(adjustOutW/2, adjustOutH/2)
	dc.Rotate(gg.Radians(opts.RotationDeg))
	dc.Scale(scale, scale)
	dc.Translate(-cx*srcW, -cy*srcH)
	dc.DrawImage(img, 0, 0)

	return encodePNGDataURL(dc.Image())
}
