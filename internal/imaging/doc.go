// Package imaging provides the pixel-level stages of chart feature
// extraction: image intake, price-panel cropping, edge detection and
// annotated overlays.
//
// All operations work with standard Go image.Image types and use a
// coordinate system where (0,0) is the top-left corner, X increases
// rightward and Y increases downward. Images produced by this package always
// have their origin at (0,0).
//
// # Price Panel
//
// A chart screenshot is assumed to hold the price plot in its top 75%.
// ExtractPanel keeps the full width and rows [0, int(0.75*H)); the volume
// and axis footer below is discarded.
//
// # Edge Maps
//
// DetectEdges produces an EdgeMap the same size as its input. It converts to
// BT.601 luminance, applies a separable Gaussian blur of the requested odd
// kernel size and runs a Canny operator with fixed thresholds CannyLow and
// CannyHigh. The trend branch blurs with a 5-tap kernel, the level branch
// with a 3-tap kernel.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and never modify their input images, so they may run
// concurrently over shared images.
//
// # Error Handling
//
// Undecodable bytes and images with zero area are reported with errors
// wrapping ErrInvalidImage. File system errors and encoder failures are
// returned wrapped with context.
package imaging
