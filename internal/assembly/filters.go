package assembly

import (
	"image"
	"image/color"
)

// Filter is one photo look, applied per slot at render time.
type Filter struct {
	ID   string
	Name string
}

var filters = []Filter{
	{ID: "none", Name: "Normal"},
	{ID: "bw", Name: "B&W"},
	{ID: "sepia", Name: "Sepia"},
	{ID: "vintage", Name: "Vintage"},
	{ID: "cool", Name: "Cool"},
}

func Filters() []Filter {
	out := make([]Filter, len(filters))
	copy(out, filters)
	return out
}

func ValidFilter(id string) bool {
	if id == "" {
		return true
	}
	for _, f := range filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

// ApplyFilter returns a filtered copy of img. Unknown or empty IDs pass the
// image through unchanged.
func ApplyFilter(img image.Image, filterID string) image.Image {
	switch filterID {
	case "bw":
		return mapPixels(img, func(r, g, b uint8) (uint8, uint8, uint8) {
			y := luma(r, g, b)
			return y, y, y
		})
	case "sepia":
		return mapPixels(img, sepia(1.0))
	case "vintage":
		// Half sepia, then a contrast push and slight darkening.
		half := mapPixels(img, sepia(0.5))
		return mapPixels(half, func(r, g, b uint8) (uint8, uint8, uint8) {
			return contrastBrightness(r, 1.2, 0.9), contrastBrightness(g, 1.2, 0.9), contrastBrightness(b, 1.2, 0.9)
		})
	case "cool":
		return mapPixels(img, func(r, g, b uint8) (uint8, uint8, uint8) {
			// Hue rotation by 180 degrees approximated by complementing
			// each channel around the pixel's luma.
			y := int(luma(r, g, b))
			return clampByte(2*y - int(r)), clampByte(2*y - int(g)), clampByte(2*y - int(b))
		})
	default:
		return img
	}
}

func sepia(amount float64) func(r, g, b uint8) (uint8, uint8, uint8) {
	return func(r, g, b uint8) (uint8, uint8, uint8) {
		rf, gf, bf := float64(r), float64(g), float64(b)
		sr := 0.393*rf + 0.769*gf + 0.189*bf
		sg := 0.349*rf + 0.686*gf + 0.168*bf
		sb := 0.272*rf + 0.534*gf + 0.131*bf
		return clampByte(int(rf + (sr-rf)*amount)),
			clampByte(int(gf + (sg-gf)*amount)),
			clampByte(int(bf + (sb-bf)*amount))
	}
}

func contrastBrightness(v uint8, contrast, brightness float64) uint8 {
	f := (float64(v)/255 - 0.5) * contrast
	f = (f + 0.5) * brightness
	return clampByte(int(f * 255))
}

func luma(r, g, b uint8) uint8 {
	return clampByte(int(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)))
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func mapPixels(img image.Image, fn func(r, g, b uint8) (uint8, uint8, uint8)) image.Image {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			r, g, b := fn(c.R, c.G, c.B)
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: c.A})
		}
	}
	return out
}
