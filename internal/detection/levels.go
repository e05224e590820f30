package detection

import (
	"sort"
	"strconv"
)

// LevelTolerance is the largest row distance, in pixels, between a row and
// the previous member of its cluster.
const LevelTolerance = 6

// DefaultTopK is the number of levels reported when the caller does not ask
// for a specific count.
const DefaultTopK = 4

// ClusterRows groups rows into clusters of nearby values.
//
// Rows are sorted ascending and chained: a row joins the current cluster when
// it is within tolerance of the cluster's most recently added row, otherwise
// it starts a new cluster. Cluster span is therefore unbounded when rows are
// evenly spaced. rows is not modified.
func ClusterRows(rows []int, tolerance int) [][]int {
	if len(rows) == 0 {
		return [][]int{}
	}

	sorted := append([]int(nil), rows...)
	sort.Ints(sorted)

	clusters := [][]int{}
	current := []int{sorted[0]}
	for _, r := range sorted[1:] {
		if r-current[len(current)-1] <= tolerance {
			current = append(current, r)
			continue
		}
		clusters = append(clusters, current)
		current = []int{r}
	}
	return append(clusters, current)
}

// ClusterMean returns the mean row of a non-empty cluster.
// ClusterLevels uses its integer part, see ClusterRow.
func ClusterMean(cluster []int) float64 {
	sum := 0
	for _, r := range cluster {
		sum += r
	}
	return float64(sum) / float64(len(cluster))
}

// ClusterRow is the representative row of a non-empty cluster: its mean
// truncated toward zero.
func ClusterRow(cluster []int) int {
	return int(ClusterMean(cluster))
}

// NormalizeLevel maps a panel row to a fraction of panel height, 0 at the
// bottom and 1 at the top, rounded to three decimals.
//
// Rounding is done on the exact binary value with ties to even, so
// 1 - 7/16 = 0.5625 becomes 0.562.
func NormalizeLevel(row float64, height int) float64 {
	rel := 1 - row/float64(height)
	v, _ := strconv.ParseFloat(strconv.FormatFloat(rel, 'f', 3, 64), 64)
	return v
}

// ClusterLevels turns level rows into at most topK normalized levels.
//
// Rows are clustered with LevelTolerance, each cluster's ClusterRow is
// normalized against height, and the highest topK fractions are returned in descending
// order. The result is never nil; it is empty when rows is empty or topK is
// not positive. Selection favors the top of the panel, not proximity to the
// latest price.
func ClusterLevels(rows []int, height, topK int) []float64 {
	levels := []float64{}
	if len(rows) == 0 || topK <= 0 || height <= 0 {
		return levels
	}

	for _, c := range ClusterRows(rows, LevelTolerance) {
		levels = append(levels, NormalizeLevel(float64(ClusterRow(c)), height))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(levels)))

	if len(levels) > topK {
		levels = levels[:topK]
	}
	return levels
}
