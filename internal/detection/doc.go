// Package detection derives chart signals from edge maps.
//
// Two independent analyses consume an imaging.EdgeMap of the price panel:
//
//   - Trend: AnalyzeTrend averages the edge columns of every populated row
//     into a centerline, fits column = A*row + B by least squares and turns
//     the fit into a slope normalized to panel width. Positive slopes mean
//     price rising left to right.
//   - Levels: FindSegments runs a progressive probabilistic Hough transform,
//     HorizontalRows keeps the near-horizontal segments and ClusterLevels
//     merges their rows into support/resistance fractions of panel height,
//     0 at the bottom and 1 at the top.
//
// # Degenerate Input
//
// Sparse or featureless maps are not errors. Fewer than MinCenterlinePoints
// populated rows, or a fit with A == 0, give a slope of 0. No segments give
// an empty level list.
//
// # Determinism
//
// Every function here is pure. The Hough transform visits edge pixels in a
// pseudo-random order from a fixed seed, so repeated runs over the same map
// return identical segments.
package detection
