package pipeline

import (
	"image"

	"github.com/ironsheep/chart-signals-mcp/internal/detection"
	"github.com/ironsheep/chart-signals-mcp/internal/imaging"
	"github.com/rs/zerolog"
)

// Trend classifies a slope for the strategy rules that consume it.
type Trend string

const (
	TrendUp        Trend = "uptrend"
	TrendDown      Trend = "downtrend"
	TrendRange     Trend = "range"
	TrendAmbiguous Trend = "ambiguous"
)

// Slope thresholds used by ClassifyTrend.
const (
	UptrendSlope   = 0.25
	DowntrendSlope = -0.25
	RangeSlope     = 0.15
)

// ClassifyTrend labels a normalized slope. Slopes between the range band and
// the trend thresholds are ambiguous.
func ClassifyTrend(slope float64) Trend {
	switch {
	case slope > UptrendSlope:
		return TrendUp
	case slope < DowntrendSlope:
		return TrendDown
	case slope >= -RangeSlope && slope <= RangeSlope:
		return TrendRange
	default:
		return TrendAmbiguous
	}
}

// Features are the signals extracted from one chart image.
type Features struct {
	Slope       float64   `json:"slope"`
	Trend       Trend     `json:"trend"`
	Levels      []float64 `json:"levels"`
	PanelWidth  int       `json:"panel_width"`
	PanelHeight int       `json:"panel_height"`
}

// Analysis holds Features together with the intermediate results of both
// branches.
type Analysis struct {
	Features

	// Estimate is the trend branch result, including the centerline fit.
	Estimate detection.TrendEstimate `json:"estimate"`

	// Segments are all line segments found by the level branch; Rows are
	// the representative rows of the horizontal ones.
	Segments []detection.Segment `json:"segments"`
	Rows     []int               `json:"rows"`
}

// OverlayOptions returns overlay settings that draw this analysis.
func (a *Analysis) OverlayOptions() imaging.OverlayOptions {
	return imaging.OverlayOptions{
		Levels: a.Levels,
		Trend:  a.Estimate.Fit,
	}
}

// Extractor runs the chart feature pipeline. It holds no per-call state and
// is safe for concurrent use.
type Extractor struct {
	logger zerolog.Logger
}

// New creates an Extractor that logs to logger.
func New(logger zerolog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

var defaultExtractor = New(zerolog.Nop())

// Extract returns the slope and levels of a chart image without logging.
func Extract(img image.Image, topK int) (*Features, error) {
	return defaultExtractor.Extract(img, topK)
}

// Extract returns the trend slope and the top topK support/resistance levels
// of img. A topK of zero or less selects detection.DefaultTopK.
//
// The only error is one wrapping imaging.ErrInvalidImage, for images with no
// usable area. Featureless charts yield a zero slope and no levels.
func (e *Extractor) Extract(img image.Image, topK int) (*Features, error) {
	a, err := e.Analyze(img, topK)
	if err != nil {
		return nil, err
	}
	return &a.Features, nil
}

// Analyze runs both pipeline branches over the price panel of img.
//
// The trend branch blurs with imaging.TrendBlurKernel and fits the edge
// centerline. The level branch blurs with imaging.LevelBlurKernel, finds
// horizontal segments and clusters their rows. The branches share only the
// cropped panel.
func (e *Extractor) Analyze(img image.Image, topK int) (*Analysis, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = detection.DefaultTopK
	}

	panel := imaging.ExtractPanel(imaging.ToRGB(img))

	estimate, err := TrendBranch(panel)
	if err != nil {
		return nil, err
	}
	levels, err := LevelBranch(panel, topK)
	if err != nil {
		return nil, err
	}

	width, height := panel.Bounds().Dx(), panel.Bounds().Dy()
	e.logger.Debug().
		Int("panel_width", width).
		Int("panel_height", height).
		Int("centerline_points", estimate.Points).
		Int("segments", len(levels.Segments)).
		Int("level_rows", len(levels.Rows)).
		Float64("slope", estimate.Slope).
		Floats64("levels", levels.Levels).
		Msg("Extracted chart features")

	return &Analysis{
		Features: Features{
			Slope:       estimate.Slope,
			Trend:       ClassifyTrend(estimate.Slope),
			Levels:      levels.Levels,
			PanelWidth:  width,
			PanelHeight: height,
		},
		Estimate: estimate,
		Segments: levels.Segments,
		Rows:     levels.Rows,
	}, nil
}

// TrendBranch estimates the trend of a cropped price panel.
func TrendBranch(panel image.Image) (detection.TrendEstimate, error) {
	edges, err := imaging.DetectEdges(panel, imaging.TrendBlurKernel)
	if err != nil {
		return detection.TrendEstimate{}, err
	}
	return detection.AnalyzeTrend(edges), nil
}

// LevelResult is the output of LevelBranch.
type LevelResult struct {
	Levels   []float64           `json:"levels"`
	Rows     []int               `json:"rows"`
	Segments []detection.Segment `json:"segments"`
}

// LevelBranch finds up to topK support/resistance levels in a cropped price
// panel.
func LevelBranch(panel image.Image, topK int) (*LevelResult, error) {
	edges, err := imaging.DetectEdges(panel, imaging.LevelBlurKernel)
	if err != nil {
		return nil, err
	}
	segments := detection.FindSegments(edges)
	rows := detection.HorizontalRows(segments)
	return &LevelResult{
		Levels:   detection.ClusterLevels(rows, edges.Height, topK),
		Rows:     rows,
		Segments: segments,
	}, nil
}
