package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema of the image path argument shared by all tools.
func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the chart image (PNG, JPEG, GIF or WebP)",
	}
}

func topKProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of support/resistance levels to return. Defaults to the server's extract.top_k (4).",
		"minimum":     1,
	}
}

func colorProperty(what, def string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Hex color (#RRGGBB) for " + what + ". Default " + def,
		"default":     def,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, color depth and file size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Chart Signals
		{
			Name: "chart_extract",
			Description: "Extract trend and support/resistance signals from a candlestick chart screenshot. " +
				"Returns a normalized slope (drift per 100px of panel width, positive = rising), a trend label " +
				"(uptrend > 0.25, downtrend < -0.25, range within ±0.15, otherwise ambiguous) and levels as " +
				"fractions of the price panel height (0 = bottom, 1 = top), highest first. Outputs are heuristic.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"top_k": topKProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "chart_extract_batch",
			Description: "Run chart_extract over several chart files concurrently. Results keep the order of paths; a file that fails reports its error without failing the batch.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to chart images",
					},
					"top_k": topKProperty(),
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum concurrent extractions. Defaults to the server's extract.workers (4).",
						"minimum":     1,
					},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "chart_trend",
			Description: "Run only the trend branch: per-row edge centerline, least-squares fit (column = a*row + b) and normalized slope. Fewer than 10 populated rows or a vertical fit give slope 0.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "chart_levels",
			Description: "Run only the level branch: probabilistic Hough segments, near-horizontal rows and clustered levels. Returns the raw segments and rows alongside the levels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"top_k": topKProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Chart Images
		{
			Name:        "chart_panel",
			Description: "Crop a chart to its price panel (full width, top 75% of height) and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "chart_edge_detect",
			Description: "Return the edge map of a chart's price panel as base64-encoded PNG (edges white). Uses Canny with fixed 50/150 thresholds after a Gaussian blur.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"kernel_size": map[string]interface{}{
						"type":        "integer",
						"description": "Odd blur kernel size. 5 matches the trend branch, 3 the level branch. Default 5",
						"default":     5,
						"minimum":     1,
						"not":         map[string]interface{}{"multipleOf": 2},
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "chart_overlay",
			Description: "Draw the detected levels and fitted trend line over the chart's price panel and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty(),
					"top_k":       topKProperty(),
					"level_color": colorProperty("level lines", "#F59E0B"),
					"trend_color": colorProperty("the trend line", "#3B82F6"),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
