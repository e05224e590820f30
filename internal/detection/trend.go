package detection

import (
	"github.com/ironsheep/chart-signals-mcp/internal/imaging"
)

// MinCenterlinePoints is the fewest populated edge rows from which a slope
// is estimated. Sparser maps yield a slope of exactly 0.
const MinCenterlinePoints = 10

// CenterlinePoint is the mean column of the edge pixels in one row.
type CenterlinePoint struct {
	Row    int     `json:"row"`
	Column float64 `json:"column"`
}

// TrendEstimate is the result of fitting a line through an edge map's
// centerline.
type TrendEstimate struct {
	// Slope is horizontal drift per 100 pixels of panel width, positive
	// when the price line rises left to right. 0 for degenerate input.
	Slope float64 `json:"slope"`

	// Points is the number of centerline points the fit used.
	Points int `json:"centerline_points"`

	// Fit is the least-squares line column = A*row + B, or nil when fewer
	// than MinCenterlinePoints rows were populated.
	Fit *imaging.TrendLine `json:"fit,omitempty"`
}

// Centerline returns one point per row that holds at least one edge pixel,
// in increasing row order.
func Centerline(edges *imaging.EdgeMap) []CenterlinePoint {
	points := make([]CenterlinePoint, 0, edges.Height)
	for y := 0; y < edges.Height; y++ {
		sum, n := 0, 0
		for x, on := range edges.Row(y) {
			if on {
				sum += x
				n++
			}
		}
		if n > 0 {
			points = append(points, CenterlinePoint{Row: y, Column: float64(sum) / float64(n)})
		}
	}
	return points
}

// FitCenterline fits column = A*row + B by ordinary least squares.
//
// It reports false when fewer than MinCenterlinePoints points are given.
func FitCenterline(points []CenterlinePoint) (imaging.TrendLine, bool) {
	if len(points) < MinCenterlinePoints {
		return imaging.TrendLine{}, false
	}

	n := float64(len(points))
	var sumRow, sumCol float64
	for _, p := range points {
		sumRow += float64(p.Row)
		sumCol += p.Column
	}
	meanRow := sumRow / n
	meanCol := sumCol / n

	var sxy, sxx float64
	for _, p := range points {
		dr := float64(p.Row) - meanRow
		sxy += dr * (p.Column - meanCol)
		sxx += dr * dr
	}

	// Rows are distinct, so sxx > 0 whenever there are two or more points.
	a := sxy / sxx
	return imaging.TrendLine{A: a, B: meanCol - a*meanRow}, true
}

// SlopeFromFit converts a centerline fit to the normalized trend slope for a
// panel of the given width.
//
// Rows grow downward, so a price line rising to the right has columns that
// shrink as rows grow: the raw slope is -1/A. It is then divided by
// width/100. A horizontal fit (A == 0) has no defined slope and yields 0.
func SlopeFromFit(fit imaging.TrendLine, width int) float64 {
	if fit.A == 0 || width <= 0 {
		return 0
	}
	return (-1 / fit.A) / (float64(width) / 100)
}

// AnalyzeTrend builds the centerline of edges, fits it and derives the
// normalized slope.
func AnalyzeTrend(edges *imaging.EdgeMap) TrendEstimate {
	points := Centerline(edges)
	fit, ok := FitCenterline(points)
	if !ok {
		return TrendEstimate{Points: len(points)}
	}
	return TrendEstimate{
		Slope:  SlopeFromFit(fit, edges.Width),
		Points: len(points),
		Fit:    &fit,
	}
}

// EstimateSlope returns the normalized trend slope of an edge map.
func EstimateSlope(edges *imaging.EdgeMap) float64 {
	return AnalyzeTrend(edges).Slope
}
