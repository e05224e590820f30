package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/chart-signals-mcp/internal/detection"
	"github.com/ironsheep/chart-signals-mcp/internal/imaging"
	"github.com/ironsheep/chart-signals-mcp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "chart_extract").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Arguments that do not match the tool's input schema return code -32602.
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	s.logger.Debug().Str("tool", params.Name).Msg("Tool call")

	if err := validateArguments(params.Name, params.Arguments); err != nil {
		s.logger.Warn().Err(err).Str("tool", params.Name).Msg("Rejected tool arguments")
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", params.Name).Msg("Tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images through the server's loader
//  4. Calls the appropriate imaging/pipeline function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Chart Signals
	case "chart_extract":
		return s.handleChartExtract(args)
	case "chart_extract_batch":
		return s.handleChartExtractBatch(args)
	case "chart_trend":
		return s.handleChartTrend(args)
	case "chart_levels":
		return s.handleChartLevels(args)

	// Chart Images
	case "chart_panel":
		return s.handleChartPanel(args)
	case "chart_edge_detect":
		return s.handleChartEdgeDetect(args)
	case "chart_overlay":
		return s.handleChartOverlay(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// topK returns the requested level count, or the configured default.
func (s *Server) topK(requested int) int {
	if requested <= 0 {
		return s.cfg.Extract.TopK
	}
	return requested
}

// loadPanel loads path and crops its price panel.
func (s *Server) loadPanel(path string) (*image.NRGBA, error) {
	img, err := s.loader.Load(path)
	if err != nil {
		return nil, err
	}
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	return imaging.ExtractPanel(imaging.ToRGB(img)), nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.loader, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.loader, a.Path)
}

// === Chart Signal Handlers ===

type chartExtractArgs struct {
	Path string `json:"path"`
	TopK int    `json:"top_k"`
}

func (s *Server) handleChartExtract(args json.RawMessage) (interface{}, error) {
	var a chartExtractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loader.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(img, s.topK(a.TopK))
}

type chartExtractBatchArgs struct {
	Paths   []string `json:"paths"`
	TopK    int      `json:"top_k"`
	Workers int      `json:"workers"`
}

// ChartExtractBatchResult lists per-file extraction results in request order.
type ChartExtractBatchResult struct {
	Results []pipeline.Result `json:"results"`
	Count   int               `json:"count"`
	Failed  int               `json:"failed"`
}

func (s *Server) handleChartExtractBatch(args json.RawMessage) (interface{}, error) {
	var a chartExtractBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, fmt.Errorf("paths must not be empty")
	}
	if a.Workers <= 0 {
		a.Workers = s.cfg.Extract.Workers
	}

	results, err := s.extractor.ExtractAll(context.Background(), s.loader, a.Paths, s.topK(a.TopK), a.Workers)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	return &ChartExtractBatchResult{
		Results: results,
		Count:   len(results),
		Failed:  failed,
	}, nil
}

type chartTrendArgs struct {
	Path string `json:"path"`
}

// ChartTrendResult is the trend branch output for one chart.
type ChartTrendResult struct {
	Slope            float64            `json:"slope"`
	Trend            pipeline.Trend     `json:"trend"`
	CenterlinePoints int                `json:"centerline_points"`
	Fit              *imaging.TrendLine `json:"fit,omitempty"`
	PanelWidth       int                `json:"panel_width"`
	PanelHeight      int                `json:"panel_height"`
}

func (s *Server) handleChartTrend(args json.RawMessage) (interface{}, error) {
	var a chartTrendArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	panel, err := s.loadPanel(a.Path)
	if err != nil {
		return nil, err
	}
	est, err := pipeline.TrendBranch(panel)
	if err != nil {
		return nil, err
	}
	return &ChartTrendResult{
		Slope:            est.Slope,
		Trend:            pipeline.ClassifyTrend(est.Slope),
		CenterlinePoints: est.Points,
		Fit:              est.Fit,
		PanelWidth:       panel.Bounds().Dx(),
		PanelHeight:      panel.Bounds().Dy(),
	}, nil
}

type chartLevelsArgs struct {
	Path string `json:"path"`
	TopK int    `json:"top_k"`
}

// ChartLevelsResult is the level branch output for one chart.
type ChartLevelsResult struct {
	Levels      []float64           `json:"levels"`
	Rows        []int               `json:"rows"`
	Segments    []detection.Segment `json:"segments"`
	PanelHeight int                 `json:"panel_height"`
}

func (s *Server) handleChartLevels(args json.RawMessage) (interface{}, error) {
	var a chartLevelsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	panel, err := s.loadPanel(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.LevelBranch(panel, s.topK(a.TopK))
	if err != nil {
		return nil, err
	}
	return &ChartLevelsResult{
		Levels:      res.Levels,
		Rows:        res.Rows,
		Segments:    res.Segments,
		PanelHeight: panel.Bounds().Dy(),
	}, nil
}

// === Chart Image Handlers ===

type chartPanelArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleChartPanel(args json.RawMessage) (interface{}, error) {
	var a chartPanelArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loader.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Panel(img)
}

type chartEdgeDetectArgs struct {
	Path       string `json:"path"`
	KernelSize int    `json:"kernel_size"`
}

func (s *Server) handleChartEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a chartEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.KernelSize == 0 {
		a.KernelSize = imaging.TrendBlurKernel
	}
	img, err := s.loader.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.KernelSize)
}

type chartOverlayArgs struct {
	Path       string `json:"path"`
	TopK       int    `json:"top_k"`
	LevelColor string `json:"level_color"`
	TrendColor string `json:"trend_color"`
}

func (s *Server) handleChartOverlay(args json.RawMessage) (interface{}, error) {
	var a chartOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loader.Load(a.Path)
	if err != nil {
		return nil, err
	}
	analysis, err := s.extractor.Analyze(img, s.topK(a.TopK))
	if err != nil {
		return nil, err
	}

	opts := analysis.OverlayOptions()
	opts.LevelColor = a.LevelColor
	opts.TrendColor = a.TrendColor
	return imaging.Overlay(img, opts)
}
