// Package badge renders the current glucose value as a PNG image
package badge

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/mrcode/glucoshare/internal/models"
	"github.com/mrcode/glucoshare/internal/tendency"
	"golang.org/x/image/font/gofont/goregular"
)

// Size bounds in pixels
const (
	DefaultSize = 64
	MinSize     = 16
	MaxSize     = 512
)

// Badge colors
const (
	colorUnknown = "#808080"
	colorStale   = "#9ca3af"
	colorUrgent  = "#ef4444"
	colorLow     = "#f97316"
	colorHigh    = "#facc15"
	colorNormal  = "#4ade80"
)

var (
	fontOnce sync.Once
	fontData *truetype.Font
	fontErr  error
)

func parsedFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontData, fontErr = truetype.Parse(goregular.TTF)
	})
	return fontData, fontErr
}

// arrow describes how the tendency is drawn
type arrow struct {
	angle  float64
	double bool
}

var arrows = map[tendency.Label]arrow{
	tendency.HighDoubleUp:     {angle: 0, double: true},
	tendency.High:             {angle: 0},
	tendency.Rising:           {angle: 45},
	tendency.Stable:           {angle: 90},
	tendency.Dropping:         {angle: 135},
	tendency.Low:              {angle: 180},
	tendency.LowTwoArrowsDown: {angle: 180, double: true},
}

// Renderer draws glucose badges
type Renderer struct {
	settings *models.Settings
	size     int
}

// NewRenderer creates a renderer producing square images of the given size.
// Sizes outside MinSize..MaxSize fall back to DefaultSize.
func NewRenderer(settings *models.Settings, size int) *Renderer {
	if size < MinSize || size > MaxSize {
		size = DefaultSize
	}
	return &Renderer{settings: settings, size: size}
}

// Size returns the edge length in pixels
func (r *Renderer) Size() int {
	return r.size
}

// WithSize returns a renderer sharing the settings with a different size
func (r *Renderer) WithSize(size int) *Renderer {
	return NewRenderer(r.settings, size)
}

// Render draws the value, tendency arrow and status color. A nil status
// renders a placeholder.
func (r *Renderer) Render(status *models.GlucoseStatus) ([]byte, error) {
	if status == nil {
		return r.draw("---", "", colorUnknown)
	}

	var text string
	if r.settings.Unit == models.UnitMmolL {
		text = fmt.Sprintf("%.1f", status.ValueMmol)
	} else {
		text = fmt.Sprintf("%.0f", status.Value)
	}

	return r.draw(text, tendency.Label(status.Tendency), statusColor(status))
}

// RenderError draws the error placeholder
func (r *Renderer) RenderError() ([]byte, error) {
	return r.draw("ERR", "", colorUnknown)
}

func (r *Renderer) draw(text string, label tendency.Label, bgHex string) ([]byte, error) {
	size := float64(r.size)
	scale := size / DefaultSize

	dc := gg.NewContext(r.size, r.size)

	// Transparent background
	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()

	red, green, blue := parseHexColor(bgHex)
	dc.SetRGB255(int(red), int(green), int(blue))
	dc.DrawRoundedRectangle(0, 0, size, size, 16*scale)
	dc.Fill()

	// Text color (black or white depending on brightness)
	brightness := (int(red)*299 + int(green)*587 + int(blue)*114) / 1000
	if brightness > 128 {
		dc.SetColor(color.Black)
	} else {
		dc.SetColor(color.White)
	}

	fontSize := 34 * scale
	if len(text) > 3 {
		fontSize = 26 * scale
	}
	if err := loadFont(dc, fontSize); err != nil {
		return nil, fmt.Errorf("loading font: %w", err)
	}
	dc.DrawStringAnchored(text, size/2, size/2-12*scale, 0.5, 0.5)

	if a, ok := arrows[label]; ok {
		drawArrow(dc, size/2, size-16*scale, 24*scale, a)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encoding badge: %w", err)
	}

	return buf.Bytes(), nil
}

func loadFont(dc *gg.Context, size float64) error {
	font, err := parsedFont()
	if err != nil {
		return err
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	return nil
}

// drawArrow draws the tendency arrow rotated clockwise from pointing up
func drawArrow(dc *gg.Context, x, y, size float64, a arrow) {
	dc.Push()
	defer dc.Pop()

	dc.Translate(x, y)
	dc.Rotate(gg.Radians(a.angle))

	halfSize := size / 2
	if a.double {
		drawSingleArrow(dc, 0, -halfSize/2, size*0.8)
		drawSingleArrow(dc, 0, halfSize/2, size*0.8)
	} else {
		drawSingleArrow(dc, 0, 0, size)
	}
}

func drawSingleArrow(dc *gg.Context, ox, oy, s float64) {
	w := s * 0.5

	dc.NewSubPath()
	dc.MoveTo(ox, oy-s/2)
	dc.LineTo(ox+w/2, oy)
	dc.LineTo(ox+w/6, oy)
	dc.LineTo(ox+w/6, oy+s/2)
	dc.LineTo(ox-w/6, oy+s/2)
	dc.LineTo(ox-w/6, oy)
	dc.LineTo(ox-w/2, oy)
	dc.ClosePath()
	dc.Fill()
}

// statusColor returns the background for a status, gray when stale
func statusColor(status *models.GlucoseStatus) string {
	if status.IsStale {
		return colorStale
	}

	switch status.Status {
	case models.StatusUrgentLow, models.StatusUrgentHigh:
		return colorUrgent
	case models.StatusLow:
		return colorLow
	case models.StatusHigh:
		return colorHigh
	default:
		return colorNormal
	}
}

// parseHexColor parses a hex color string to RGB values
func parseHexColor(hex string) (r, g, b byte) {
	if len(hex) == 7 && hex[0] == '#' {
		_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	}
	return
}
