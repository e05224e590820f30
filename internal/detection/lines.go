package detection

import (
	"math"

	"github.com/ironsheep/chart-signals-mcp/internal/imaging"
)

// Horizontal segment filter. A segment is kept as a level candidate when its
// endpoints differ by at most MaxVerticalSpan rows and more than
// MinHorizontalSpan columns.
const (
	MaxVerticalSpan   = 2
	MinHorizontalSpan = 20
)

// Segment is a detected line segment between two edge pixels.
type Segment struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// HoughParams configures ProbabilisticHough.
type HoughParams struct {
	// Rho is the distance resolution of the accumulator in pixels.
	Rho float64
	// Theta is the angle resolution of the accumulator in radians.
	Theta float64
	// Threshold is the accumulator vote count a line needs.
	Threshold int
	// MinLineLength is the shortest accepted segment, measured along the
	// dominant axis.
	MinLineLength int
	// MaxLineGap is the longest run of off pixels bridged within a segment.
	MaxLineGap int
}

// DefaultHoughParams are the segment detection parameters of the level
// branch: 1px, 1 degree, 80 votes, 40px minimum, 5px gap.
var DefaultHoughParams = HoughParams{
	Rho:           1,
	Theta:         math.Pi / 180,
	Threshold:     80,
	MinLineLength: 40,
	MaxLineGap:    5,
}

// FindSegments runs ProbabilisticHough with DefaultHoughParams.
func FindSegments(edges *imaging.EdgeMap) []Segment {
	return ProbabilisticHough(edges, DefaultHoughParams)
}

// ProbabilisticHough extracts line segments from an edge map with the
// progressive probabilistic Hough transform.
//
// Edge pixels are visited in a pseudo-random order drawn from a fixed seed,
// so identical maps always give identical segments. Each visited pixel votes
// for every angle. Once a bin reaches the threshold, the line through the
// pixel is walked in both directions across gaps of at most MaxLineGap; if
// the walk spans at least MinLineLength along x or y it is reported and its
// pixels withdraw their votes. Walked pixels are removed from further
// consideration either way.
//
// An empty map, or one without qualifying lines, yields an empty slice.
func ProbabilisticHough(edges *imaging.EdgeMap, p HoughParams) []Segment {
	width, height := edges.Width, edges.Height
	segments := []Segment{}
	if width <= 0 || height <= 0 || p.Rho <= 0 || p.Theta <= 0 {
		return segments
	}

	const shift = 16

	irho := 1 / p.Rho
	numAngle := int(math.Round(math.Pi / p.Theta))
	numRho := int(math.Round(float64((width+height)*2+1) / p.Rho))
	rhoOffset := (numRho - 1) / 2

	trig := make([]float32, numAngle*2)
	for n := 0; n < numAngle; n++ {
		trig[n*2] = float32(math.Cos(float64(n)*p.Theta) * irho)
		trig[n*2+1] = float32(math.Sin(float64(n)*p.Theta) * irho)
	}
	rhoIndex := func(n, x, y int) int {
		r := float32(x)*trig[n*2] + float32(y)*trig[n*2+1]
		return int(math.RoundToEven(float64(r))) + rhoOffset
	}

	accum := make([]int, numAngle*numRho)
	mask := make([]bool, width*height)
	type point struct{ x, y int }
	var pending []point
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges.Pix[y*width+x] {
				mask[y*width+x] = true
				pending = append(pending, point{x, y})
			}
		}
	}

	rng := newHoughRand()
	for count := len(pending); count > 0; count-- {
		idx := rng.intn(count)
		pt := pending[idx]
		pending[idx] = pending[count-1]

		if !mask[pt.y*width+pt.x] {
			continue
		}

		maxVal, maxN := p.Threshold-1, 0
		for n := 0; n < numAngle; n++ {
			i := n*numRho + rhoIndex(n, pt.x, pt.y)
			accum[i]++
			if accum[i] > maxVal {
				maxVal = accum[i]
				maxN = n
			}
		}
		if maxVal < p.Threshold {
			continue
		}

		// Walk along the winning line in 16.16 fixed point, stepping one
		// pixel along its dominant axis.
		a := -trig[maxN*2+1]
		b := trig[maxN*2]
		x0, y0 := pt.x, pt.y
		var dx0, dy0 int
		xflag := abs32(a) > abs32(b)
		if xflag {
			dx0 = 1
			if a <= 0 {
				dx0 = -1
			}
			dy0 = int(math.RoundToEven(float64(b * (1 << shift) / abs32(a))))
			y0 = (y0 << shift) + (1 << (shift - 1))
		} else {
			dy0 = 1
			if b <= 0 {
				dy0 = -1
			}
			dx0 = int(math.RoundToEven(float64(a * (1 << shift) / abs32(b))))
			x0 = (x0 << shift) + (1 << (shift - 1))
		}
		cell := func(x, y int) (int, int) {
			if xflag {
				return x, y >> shift
			}
			return x >> shift, y
		}

		var ends [2]point
		for k := 0; k < 2; k++ {
			gap := 0
			dx, dy := dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for x, y := x0, y0; ; x, y = x+dx, y+dy {
				cx, cy := cell(x, y)
				if cx < 0 || cx >= width || cy < 0 || cy >= height {
					break
				}
				if mask[cy*width+cx] {
					gap = 0
					ends[k] = point{cx, cy}
				} else if gap++; gap > p.MaxLineGap {
					break
				}
			}
		}

		good := absInt(ends[1].x-ends[0].x) >= p.MinLineLength ||
			absInt(ends[1].y-ends[0].y) >= p.MinLineLength

		for k := 0; k < 2; k++ {
			dx, dy := dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for x, y := x0, y0; ; x, y = x+dx, y+dy {
				cx, cy := cell(x, y)
				if mask[cy*width+cx] {
					if good {
						for n := 0; n < numAngle; n++ {
							accum[n*numRho+rhoIndex(n, cx, cy)]--
						}
					}
					mask[cy*width+cx] = false
				}
				if cx == ends[k].x && cy == ends[k].y {
					break
				}
			}
		}

		if good {
			segments = append(segments, Segment{
				X1: ends[0].x, Y1: ends[0].y,
				X2: ends[1].x, Y2: ends[1].y,
			})
		}
	}

	return segments
}

// IsHorizontal reports whether s passes the level-candidate filter.
func (s Segment) IsHorizontal() bool {
	return absInt(s.Y2-s.Y1) <= MaxVerticalSpan && absInt(s.X2-s.X1) > MinHorizontalSpan
}

// Row is the representative row of s: the mean of its endpoint rows, rounded
// down.
func (s Segment) Row() int {
	return (s.Y1 + s.Y2) / 2
}

// HorizontalRows filters segments to near-horizontal ones and reduces each to
// its representative row, preserving input order.
func HorizontalRows(segments []Segment) []int {
	rows := []int{}
	for _, s := range segments {
		if s.IsHorizontal() {
			rows = append(rows, s.Row())
		}
	}
	return rows
}

// LevelRows finds segments in edges and returns the rows of the horizontal
// ones.
func LevelRows(edges *imaging.EdgeMap) []int {
	return HorizontalRows(FindSegments(edges))
}

// houghRand is the multiply-with-carry generator that fixes the order in
// which ProbabilisticHough visits edge pixels.
type houghRand struct {
	state uint64
}

func newHoughRand() *houghRand {
	return &houghRand{state: math.MaxUint64}
}

func (r *houghRand) next() uint32 {
	r.state = uint64(uint32(r.state))*4164903690 + r.state>>32
	return uint32(r.state)
}

// intn returns a value in [0, n). n must be positive.
func (r *houghRand) intn(n int) int {
	return int(r.next() % uint32(n))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
