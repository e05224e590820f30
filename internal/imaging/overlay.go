package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Default overlay colors.
const (
	DefaultLevelColor = "#F59E0B"
	DefaultTrendColor = "#3B82F6"
)

// TrendLine is a fitted centerline in pixel space: column = A*row + B.
type TrendLine struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// OverlayOptions selects what RenderOverlay draws.
type OverlayOptions struct {
	// Levels are normalized fractions, 0 = bottom of the panel, 1 = top.
	Levels []float64

	// Trend is drawn when non-nil.
	Trend *TrendLine

	// LevelColor and TrendColor are "#RRGGBB" hex strings. Empty or
	// unparsable values fall back to the defaults.
	LevelColor string
	TrendColor string
}

// OverlayResult contains the annotated panel encoded as base64 PNG.
type OverlayResult struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Levels      []float64 `json:"levels"`
	ImageBase64 string    `json:"image_base64"`
	MimeType    string    `json:"mime_type"`
}

// RenderOverlay draws detected levels and the fitted trend line over a copy
// of panel.
//
// Each level becomes a full-width horizontal line at row (1-level)*H with
// its value printed at the left margin. The trend line is traced row by row
// from its fit.
func RenderOverlay(panel image.Image, opts OverlayOptions) *image.RGBA {
	bounds := panel.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	result := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(result, result.Bounds(), panel, bounds.Min, draw.Src)

	levelColor := parseColor(opts.LevelColor, DefaultLevelColor)
	trendColor := parseColor(opts.TrendColor, DefaultTrendColor)

	if opts.Trend != nil {
		for y := 0; y < height; y++ {
			x := int(math.Round(opts.Trend.A*float64(y) + opts.Trend.B))
			for dx := -1; dx <= 1; dx++ {
				if x+dx >= 0 && x+dx < width {
					result.Set(x+dx, y, trendColor)
				}
			}
		}
	}

	labelBg := color.RGBA{0, 0, 0, 180}
	for _, level := range opts.Levels {
		y := LevelRow(level, height)
		for x := 0; x < width; x++ {
			result.Set(x, y, levelColor)
		}
		drawLabel(result, 2, y-2, fmt.Sprintf("%.3f", level), levelColor, labelBg)
	}

	return result
}

// LevelRow converts a normalized level back to a panel row, clamped to the
// panel.
func LevelRow(level float64, height int) int {
	y := int(math.Round((1 - level) * float64(height)))
	return clamp(y, 0, height-1)
}

// Overlay crops the price panel of img, annotates it and encodes it.
func Overlay(img image.Image, opts OverlayOptions) (*OverlayResult, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	panel := ExtractPanel(ToRGB(img))
	if err := Validate(panel); err != nil {
		return nil, err
	}
	annotated := RenderOverlay(panel, opts)

	encoded, err := EncodePNGBase64(annotated)
	if err != nil {
		return nil, fmt.Errorf("failed to encode overlay image: %w", err)
	}

	levels := opts.Levels
	if levels == nil {
		levels = []float64{}
	}
	return &OverlayResult{
		Width:       annotated.Bounds().Dx(),
		Height:      annotated.Bounds().Dy(),
		Levels:      levels,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// parseColor parses a hex color, returning fallback's color on failure.
func parseColor(hex, fallback string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(fallback)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawLabel writes text with its baseline at (x, y) over a filled box.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
	}

	labelWidth := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	if y-ascent < 0 {
		y = ascent
	}

	box := image.Rect(x-1, y-ascent-1, x+labelWidth+1, y+descent).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
