package assembly

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"ceritanya-photobox/internal/photobox"
)

const (
	padding = 24
	gap     = 12

	stripPhotoW = 480
	stripPhotoH = 360 // 4:3
	widePhotoH  = 270 // 16:9
	footerH     = 64
)

type Options struct {
	// CaptionFontPath points at a TTF used for the date caption. Empty
	// disables the caption, it is never an error.
	CaptionFontPath string
	Logger          *slog.Logger
}

// Compositor arranges finalized photos into a themed strip and rasterizes
// it. It also implements the crop/rotate/zoom adjustment used by the studio.
type Compositor struct {
	logger   *slog.Logger
	fontFace font.Face
}

func New(opts Options) *Compositor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Compositor{logger: logger}
	if opts.CaptionFontPath != "" {
		face, err := loadFontFace(opts.CaptionFontPath, 22)
		if err != nil {
			logger.Warn("caption font unavailable, date caption disabled", "path", opts.CaptionFontPath, "err", err)
		} else {
			c.fontFace = face
		}
	}
	return c
}

func loadFontFace(path string, size float64) (font.Face, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: size}), nil
}

type RenderInput struct {
	Layout   photobox.Layout
	Photos   []photobox.FinalPhoto
	ThemeID  string
	FilterID string
	ShowDate bool
}

// Render rasterizes the current arrangement. Every photo must decode; a
// broken slot image is a bug upstream, the studio guarantees resolved slots.
func (c *Compositor) Render(in RenderInput) (image.Image, error) {
	if len(in.Photos) == 0 {
		return nil, errors.New("no photos to assemble")
	}

	theme := ThemeByID(in.ThemeID)
	cellW, cellH := cellSize(in.Layout)
	cols, rows := gridShape(in.Layout, len(in.Photos))

	width := padding*2 + cols*cellW + (cols-1)*gap
	height := padding*2 + rows*cellH + (rows-1)*gap
	if in.ShowDate {
		height += footerH
	}

	dc := gg.NewContext(width, height)
	drawBackground(dc, theme, width, height)

	for i, photo := range in.Photos {
		img, err := decodeDataURL(photo.Image())
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}

		filterID := photo.Filter
		if filterID == "" || filterID == "none" {
			filterID = in.FilterID
		}
		img = ApplyFilter(img, filterID)

		col := i % cols
		row := i / cols
		x := padding + col*(cellW+gap)
		y := padding + row*(cellH+gap)
		dc.DrawImage(scaleCover(img, cellW, cellH), x, y)
	}

	if in.ShowDate {
		c.drawDate(dc, theme, width, height)
	}

	return dc.Image(), nil
}

func (c *Compositor) drawDate(dc *gg.Context, theme Theme, width, height int) {
	if c.fontFace == nil {
		c.logger.Debug("date caption requested but no font configured")
		return
	}

	dc.SetFontFace(c.fontFace)
	if theme.DarkText {
		dc.SetRGB(0.2, 0.2, 0.2)
	} else {
		dc.SetRGB(0.95, 0.95, 0.95)
	}
	caption := time.Now().Format("02.01.2006")
	dc.DrawStringAnchored(caption, float64(width)/2, float64(height)-footerH/2, 0.5, 0.5)
}

// ExportPNG renders and encodes the strip, returning the bytes and the
// timestamped download name.
func (c *Compositor) ExportPNG(in RenderInput) ([]byte, string, error) {
	img, err := c.Render(in)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}

	name := fmt.Sprintf("photobox-%d.png", time.Now().UnixMilli())
	return buf.Bytes(), name, nil
}

func cellSize(layout photobox.Layout) (int, int) {
	if layout.Kind == photobox.ArrangementWide {
		return stripPhotoW, widePhotoH
	}
	return stripPhotoW, stripPhotoH
}

func gridShape(layout photobox.Layout, count int) (cols, rows int) {
	if layout.Kind == photobox.ArrangementGrid {
		cols = 2
	} else {
		cols = 1
	}
	rows = (count + cols - 1) / cols
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

func drawBackground(dc *gg.Context, theme Theme, width, height int) {
	dc.SetColor(theme.Background)
	dc.Clear()

	size := theme.PatternSize
	if size <= 0 {
		size = 20
	}

	switch theme.Pattern {
	case PatternDots:
		dc.SetColor(theme.PatternColor)
		radius := float64(size) / 8
		if radius < 1 {
			radius = 1
		}
		for y := size / 2; y < height; y += size {
			for x := size / 2; x < width; x += size {
				dc.DrawCircle(float64(x), float64(y), radius)
				dc.Fill()
			}
		}
	case PatternChecker:
		dc.SetColor(theme.PatternColor)
		for y := 0; y < height; y += size {
			for x := 0; x < width; x += size {
				if ((x/size)+(y/size))%2 == 0 {
					dc.DrawRectangle(float64(x), float64(y), float64(size), float64(size))
					dc.Fill()
				}
			}
		}
	case PatternGrid:
		dc.SetColor(theme.PatternColor)
		dc.SetLineWidth(1)
		for x := 0; x <= width; x += size {
			dc.DrawLine(float64(x), 0, float64(x), float64(height))
			dc.Stroke()
		}
		for y := 0; y <= height; y += size {
			dc.DrawLine(0, float64(y), float64(width), float64(y))
			dc.Stroke()
		}
	}
}

// scaleCover scales the photo to fill the cell completely and center-crops
// the overflow.
func scaleCover(img image.Image, cellW, cellH int) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return image.NewNRGBA(image.Rect(0, 0, cellW, cellH))
	}

	scale := float64(cellW) / float64(srcW)
	if s := float64(cellH) / float64(srcH); s > scale {
		scale = s
	}

	scaledW := int(float64(srcW)*scale + 0.5)
	scaledH := int(float64(srcH)*scale + 0.5)
	scaled := image.NewNRGBA(image.Rect(0, 0, scaledW, scaledH))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	offX := (scaledW - cellW) / 2
	offY := (scaledH - cellH) / 2
	out := image.NewNRGBA(image.Rect(0, 0, cellW, cellH))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(offX, offY), draw.Src)
	return out
}

func decodeDataURL(src string) (image.Image, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("empty image")
	}
	if idx := strings.IndexByte(src, ','); idx >= 0 && strings.HasPrefix(src, "data:") {
		src = src[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(src)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func encodePNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
