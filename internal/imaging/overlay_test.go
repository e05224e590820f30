package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelRow(t *testing.T) {
	tests := []struct {
		level  float64
		height int
		want   int
	}{
		{0.5, 100, 50},
		{0.75, 200, 50},
		{1.0, 100, 0},
		{0.0, 100, 99},
		{1.5, 100, 0},
		{-0.2, 100, 99},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelRow(tt.level, tt.height), "level %v", tt.level)
	}
}

func TestRenderOverlay_LevelLines(t *testing.T) {
	panel := createInMemoryImage(200, 100, color.White)
	out := RenderOverlay(panel, OverlayOptions{Levels: []float64{0.5}, LevelColor: "#ff0000"})

	require.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())
	// Right of the label, the level row is the line color.
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(150, 50))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(150, 10))
}

func TestRenderOverlay_DoesNotMutateInput(t *testing.T) {
	panel := createInMemoryImage(50, 40, color.White)
	before := append([]uint8(nil), panel.Pix...)

	RenderOverlay(panel, OverlayOptions{
		Levels: []float64{0.2, 0.8},
		Trend:  &TrendLine{A: 0.1, B: 10},
	})
	assert.Equal(t, before, panel.Pix)
}

func TestRenderOverlay_Trend(t *testing.T) {
	panel := createInMemoryImage(100, 50, color.White)
	out := RenderOverlay(panel, OverlayOptions{
		Trend:      &TrendLine{A: 0, B: 40},
		TrendColor: "#0000ff",
	})

	blue := color.RGBA{0, 0, 255, 255}
	for y := 0; y < 50; y++ {
		assert.Equal(t, blue, out.RGBAAt(40, y))
		assert.Equal(t, blue, out.RGBAAt(39, y))
		assert.Equal(t, blue, out.RGBAAt(41, y))
	}
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(60, 25))
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.RGBA{0x12, 0x34, 0x56, 255}, parseColor("#123456", DefaultLevelColor))
	assert.Equal(t, color.RGBA{0xF5, 0x9E, 0x0B, 255}, parseColor("", DefaultLevelColor))
	assert.Equal(t, color.RGBA{0x3B, 0x82, 0xF6, 255}, parseColor("blue", DefaultTrendColor))
}

func TestOverlay(t *testing.T) {
	img := createInMemoryImage(120, 200, color.White)

	result, err := Overlay(img, OverlayOptions{Levels: []float64{0.9, 0.4}})
	require.NoError(t, err)
	assert.Equal(t, 120, result.Width)
	assert.Equal(t, 150, result.Height)
	assert.Equal(t, []float64{0.9, 0.4}, result.Levels)
	assert.Equal(t, "image/png", result.MimeType)

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	require.NoError(t, err)
	decoded, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 150), decoded.Bounds())
}

func TestOverlay_NilLevels(t *testing.T) {
	result, err := Overlay(createInMemoryImage(20, 20, color.White), OverlayOptions{})
	require.NoError(t, err)
	assert.NotNil(t, result.Levels)
	assert.Empty(t, result.Levels)
}

func TestOverlay_InvalidImage(t *testing.T) {
	_, err := Overlay(image.NewRGBA(image.Rect(0, 0, 0, 0)), OverlayOptions{})
	assert.ErrorIs(t, err, ErrInvalidImage)

	// A single-row chart has no panel rows.
	_, err = Overlay(createInMemoryImage(20, 1, color.White), OverlayOptions{})
	assert.ErrorIs(t, err, ErrInvalidImage)
}
