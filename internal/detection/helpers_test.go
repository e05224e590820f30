package detection

import (
	"github.com/ironsheep/chart-signals-mcp/internal/imaging"
)

// hline turns on row y from x1 to x2 inclusive.
func hline(m *imaging.EdgeMap, y, x1, x2 int) {
	for x := x1; x <= x2; x++ {
		m.Set(x, y, true)
	}
}

// vline turns on column x from y1 to y2 inclusive.
func vline(m *imaging.EdgeMap, x, y1, y2 int) {
	for y := y1; y <= y2; y++ {
		m.Set(x, y, true)
	}
}
