// Package pipeline turns chart images into the signals consumed by the
// strategy rules: a normalized trend slope and a short list of
// support/resistance levels.
//
// Extract is a plain function of its inputs. It crops the price panel and
// runs two independent branches over it, each with its own edge detection
// pass: the trend branch (5-tap blur, centerline fit) and the level branch
// (3-tap blur, Hough segments, row clustering). Repeated calls on the same
// image return identical results.
//
// ExtractAll processes many files concurrently with a bounded number of
// workers. Failures are reported per file.
package pipeline
