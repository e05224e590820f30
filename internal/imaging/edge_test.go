package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEdges_UniformImage(t *testing.T) {
	for _, kernel := range []int{TrendBlurKernel, LevelBlurKernel} {
		edges, err := DetectEdges(createInMemoryImage(64, 48, color.RGBA{90, 120, 200, 255}), kernel)
		require.NoError(t, err)
		assert.Equal(t, 64, edges.Width)
		assert.Equal(t, 48, edges.Height)
		assert.Zero(t, edges.Count(), "kernel %d", kernel)
	}
}

func TestDetectEdges_HorizontalLine(t *testing.T) {
	img := createInMemoryImage(100, 100, color.White)
	drawHorizontalLine(img, 60, 2)

	edges, err := DetectEdges(img, LevelBlurKernel)
	require.NoError(t, err)

	// Both borders of the blurred stroke, one row outside it on each side.
	for y := 0; y < edges.Height; y++ {
		want := y == 59 || y == 62
		for x := 0; x < edges.Width; x++ {
			if edges.At(x, y) != want {
				t.Fatalf("edge at (%d,%d) = %v, want %v", x, y, !want, want)
			}
		}
	}
	assert.Equal(t, 200, edges.Count())
}

func TestDetectEdges_VerticalStep(t *testing.T) {
	img := createInMemoryImage(100, 40, color.White)
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.Black)
		}
	}

	edges, err := DetectEdges(img, LevelBlurKernel)
	require.NoError(t, err)

	for y := 0; y < 40; y++ {
		assert.True(t, edges.At(50, y), "row %d", y)
	}
	assert.Equal(t, 40, edges.Count())
}

func TestDetectEdges_PreservesDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 7, 38, 29))
	edges, err := DetectEdges(img, TrendBlurKernel)
	require.NoError(t, err)
	assert.Equal(t, 33, edges.Width)
	assert.Equal(t, 22, edges.Height)
	assert.Len(t, edges.Pix, 33*22)
}

func TestDetectEdges_ZeroArea(t *testing.T) {
	_, err := DetectEdges(image.NewRGBA(image.Rect(0, 0, 10, 0)), LevelBlurKernel)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = DetectEdges(nil, LevelBlurKernel)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestDetectEdges_BadKernel(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)
	for _, k := range []int{0, -3, 4} {
		_, err := DetectEdges(img, k)
		require.Error(t, err, "kernel %d", k)
		assert.NotErrorIs(t, err, ErrInvalidImage)
	}
}

func TestDetectEdges_Deterministic(t *testing.T) {
	img := createInMemoryImage(80, 60, color.White)
	drawHorizontalLine(img, 20, 3)
	for y := 0; y < 60; y++ {
		img.Set(y, y, color.Black)
	}

	a, err := DetectEdges(img, TrendBlurKernel)
	require.NoError(t, err)
	b, err := DetectEdges(img, TrendBlurKernel)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestGaussianKernel(t *testing.T) {
	for _, n := range []int{1, 3, 5, 7, 9, 11} {
		k := gaussianKernel(n)
		require.Len(t, k, n)

		var sum float64
		for i, w := range k {
			sum += w
			assert.InDelta(t, w, k[n-1-i], 1e-12, "kernel %d not symmetric", n)
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "kernel %d", n)

		mid := n / 2
		for i := 0; i < mid; i++ {
			assert.LessOrEqual(t, k[i], k[i+1])
		}
	}
}

// stepGrid returns a width x height intensity grid with left for x < split
// and right from split on.
func stepGrid(width, height, split, left, right int) []int {
	gray := make([]int, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < split {
				gray[y*width+x] = left
			} else {
				gray[y*width+x] = right
			}
		}
	}
	return gray
}

func TestCanny_StrongStep(t *testing.T) {
	// Sobel magnitude 4*50 = 200 exceeds the high threshold.
	edges := canny(stepGrid(10, 10, 5, 100, 150), 10, 10, CannyLow, CannyHigh)
	for y := 0; y < 10; y++ {
		assert.True(t, edges.At(4, y))
	}
	assert.Equal(t, 10, edges.Count())
}

func TestCanny_WeakOnlyDropped(t *testing.T) {
	// Magnitude 4*20 = 80 lies between the thresholds with no strong seed.
	edges := canny(stepGrid(10, 10, 5, 100, 120), 10, 10, CannyLow, CannyHigh)
	assert.Zero(t, edges.Count())
}

func TestCanny_BelowLowIgnored(t *testing.T) {
	edges := canny(stepGrid(10, 10, 5, 100, 110), 10, 10, CannyLow, CannyHigh)
	assert.Zero(t, edges.Count())
}

func TestEdgeMap(t *testing.T) {
	m := NewEdgeMap(4, 3)
	assert.Zero(t, m.Count())

	m.Set(1, 2, true)
	m.Set(3, 0, true)
	m.Set(-1, 0, true)
	m.Set(4, 0, true)

	assert.True(t, m.At(1, 2))
	assert.True(t, m.At(3, 0))
	assert.False(t, m.At(0, 0))
	assert.False(t, m.At(-1, 0))
	assert.False(t, m.At(0, 3))
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, []bool{false, true, false, false}, m.Row(2))

	img := m.Image()
	assert.Equal(t, uint8(255), img.GrayAt(1, 2).Y)
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
}

func TestEdgeDetect(t *testing.T) {
	img := createInMemoryImage(100, 100, color.White)
	drawHorizontalLine(img, 30, 2)

	result, err := EdgeDetect(img, LevelBlurKernel)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Width)
	assert.Equal(t, 75, result.Height)
	assert.Equal(t, LevelBlurKernel, result.KernelSize)
	assert.Equal(t, 200, result.EdgePixels)
	assert.Equal(t, "image/png", result.MimeType)

	decoded, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	require.NoError(t, err)
	edgeImg, err := png.Decode(strings.NewReader(string(decoded)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 75), edgeImg.Bounds())

	r, _, _, _ := edgeImg.At(10, 29).RGBA()
	assert.Equal(t, uint32(math.MaxUint16), r)
}

func TestEdgeDetect_IgnoresFooter(t *testing.T) {
	img := createInMemoryImage(100, 100, color.White)
	drawHorizontalLine(img, 90, 2)

	result, err := EdgeDetect(img, LevelBlurKernel)
	require.NoError(t, err)
	assert.Zero(t, result.EdgePixels)
}
