package server

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/chart-signals-mcp/internal/config"
	"github.com/ironsheep/chart-signals-mcp/internal/imaging"
	"github.com/ironsheep/chart-signals-mcp/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeChart writes a white PNG chart with 2px black lines starting at each
// of rows and returns its path.
func writeChart(t *testing.T, width, height int, rows ...int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, r := range rows {
		for x := 0; x < width; x++ {
			img.Set(x, r, color.Black)
			img.Set(x, r+1, color.Black)
		}
	}

	f, err := os.CreateTemp(t.TempDir(), "chart-*.png")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return f.Name()
}

// callTool runs a tools/call request and decodes the text content of the
// result into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPResponse {
	t.Helper()

	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	require.NoError(t, err)

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	require.NotNil(t, resp)
	if resp.Error != nil || out == nil {
		return resp
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])
	require.NoError(t, json.Unmarshal([]byte(content[0]["text"].(string)), out))
	return resp
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	resp := newTestServer().handleRequest(&MCPRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`"nope"`),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	resp := callTool(t, newTestServer(), "image_ocr_full", map[string]interface{}{}, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32000, resp.Error.Code)
	assert.Contains(t, resp.Error.Data, "unknown tool")
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	path := writeChart(t, 100, 80)

	var info imaging.ImageInfo
	resp := callTool(t, newTestServer(), "image_load", map[string]interface{}{"path": path}, &info)
	require.Nil(t, resp.Error)
	assert.Equal(t, 100, info.Width)
	assert.Equal(t, 80, info.Height)
	assert.Equal(t, "png", info.Format)
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	path := writeChart(t, 200, 150)

	var dims imaging.DimensionsResult
	resp := callTool(t, newTestServer(), "image_dimensions", map[string]interface{}{"path": path}, &dims)
	require.Nil(t, resp.Error)
	assert.Equal(t, imaging.DimensionsResult{Width: 200, Height: 150}, dims)
}

func TestHandleToolsCall_MissingFile(t *testing.T) {
	resp := callTool(t, newTestServer(), "chart_extract", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "missing.png"),
	}, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32000, resp.Error.Code)
	assert.Equal(t, "Tool execution failed", resp.Error.Message)
}

func TestHandleToolsCall_InvalidImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))

	resp := callTool(t, newTestServer(), "chart_extract", map[string]interface{}{"path": path}, nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Data, imaging.ErrInvalidImage.Error())
}

func TestHandleToolsCall_ChartExtract(t *testing.T) {
	path := writeChart(t, 300, 400, 60, 200)

	var features pipeline.Features
	resp := callTool(t, newTestServer(), "chart_extract", map[string]interface{}{"path": path}, &features)
	require.Nil(t, resp.Error)

	assert.Equal(t, 300, features.PanelWidth)
	assert.Equal(t, 300, features.PanelHeight)
	assert.Equal(t, pipeline.TrendRange, features.Trend)
	require.Len(t, features.Levels, 2)
	// Edge rows 59,62 and 199,202 cluster to rows 60 and 200.
	assert.Equal(t, []float64{0.8, 0.333}, features.Levels)
}

func TestHandleToolsCall_ChartExtract_TopK(t *testing.T) {
	path := writeChart(t, 300, 400, 60, 200)

	var features pipeline.Features
	callTool(t, newTestServer(), "chart_extract", map[string]interface{}{"path": path, "top_k": 1}, &features)
	assert.Len(t, features.Levels, 1)

	cfg := config.Default()
	cfg.Extract.TopK = 1
	features = pipeline.Features{}
	callTool(t, New(cfg, zerolog.Nop()), "chart_extract", map[string]interface{}{"path": path}, &features)
	assert.Len(t, features.Levels, 1)
}

func TestHandleToolsCall_ChartExtractBatch(t *testing.T) {
	good := writeChart(t, 300, 400, 60, 200)
	missing := filepath.Join(t.TempDir(), "missing.png")

	var result struct {
		Results []struct {
			Path     string             `json:"path"`
			Features *pipeline.Features `json:"features"`
			Error    string             `json:"error"`
		} `json:"results"`
		Count  int `json:"count"`
		Failed int `json:"failed"`
	}
	resp := callTool(t, newTestServer(), "chart_extract_batch", map[string]interface{}{
		"paths":   []string{good, missing, good},
		"workers": 2,
	}, &result)
	require.Nil(t, resp.Error)

	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 3)
	assert.Equal(t, missing, result.Results[1].Path)
	assert.NotEmpty(t, result.Results[1].Error)
	require.NotNil(t, result.Results[2].Features)
	assert.Len(t, result.Results[2].Features.Levels, 2)
}

func TestHandleToolsCall_ChartExtractBatch_Empty(t *testing.T) {
	resp := callTool(t, newTestServer(), "chart_extract_batch", map[string]interface{}{"paths": []string{}}, nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Data, "paths")
}

func TestHandleToolsCall_ChartTrend(t *testing.T) {
	path := writeChart(t, 300, 400, 60, 200)

	var result ChartTrendResult
	resp := callTool(t, newTestServer(), "chart_trend", map[string]interface{}{"path": path}, &result)
	require.Nil(t, resp.Error)
	assert.Equal(t, 0.0, result.Slope)
	assert.Equal(t, pipeline.TrendRange, result.Trend)
	assert.Equal(t, 4, result.CenterlinePoints)
	assert.Nil(t, result.Fit)
	assert.Equal(t, 300, result.PanelHeight)
}

func TestHandleToolsCall_ChartLevels(t *testing.T) {
	path := writeChart(t, 300, 400, 60, 200)

	var result ChartLevelsResult
	resp := callTool(t, newTestServer(), "chart_levels", map[string]interface{}{"path": path}, &result)
	require.Nil(t, resp.Error)
	assert.ElementsMatch(t, []int{59, 62, 199, 202}, result.Rows)
	assert.Len(t, result.Segments, 4)
	assert.Len(t, result.Levels, 2)
	assert.Equal(t, 300, result.PanelHeight)
}

func TestHandleToolsCall_ChartPanel(t *testing.T) {
	path := writeChart(t, 120, 80)

	var result imaging.PanelResult
	resp := callTool(t, newTestServer(), "chart_panel", map[string]interface{}{"path": path}, &result)
	require.Nil(t, resp.Error)
	assert.Equal(t, 120, result.Width)
	assert.Equal(t, 60, result.Height)
	assert.Equal(t, "image/png", result.MimeType)
}

func TestHandleToolsCall_ChartEdgeDetect(t *testing.T) {
	path := writeChart(t, 100, 100, 30)

	var result imaging.EdgeDetectResult
	resp := callTool(t, newTestServer(), "chart_edge_detect", map[string]interface{}{
		"path":        path,
		"kernel_size": 3,
	}, &result)
	require.Nil(t, resp.Error)
	assert.Equal(t, 3, result.KernelSize)
	assert.Equal(t, 200, result.EdgePixels)

	resp = callTool(t, newTestServer(), "chart_edge_detect", map[string]interface{}{"path": path}, &result)
	require.Nil(t, resp.Error)
	assert.Equal(t, imaging.TrendBlurKernel, result.KernelSize)

	resp = callTool(t, newTestServer(), "chart_edge_detect", map[string]interface{}{"path": path, "kernel_size": 4}, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestHandleToolsCall_ChartOverlay(t *testing.T) {
	path := writeChart(t, 300, 400, 60, 200)

	var result imaging.OverlayResult
	resp := callTool(t, newTestServer(), "chart_overlay", map[string]interface{}{
		"path":        path,
		"level_color": "#00ff00",
	}, &result)
	require.Nil(t, resp.Error)
	assert.Equal(t, 300, result.Width)
	assert.Equal(t, 300, result.Height)
	assert.Len(t, result.Levels, 2)

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	require.NoError(t, err)
	img, err := imaging.DecodeBytes(data)
	require.NoError(t, err)

	row := imaging.LevelRow(result.Levels[0], result.Height)
	r, g, b, _ := img.At(250, row).RGBA()
	assert.Equal(t, []uint32{0, 0xffff, 0}, []uint32{r, g, b})
}

func TestHandleToolsCall_UsesCache(t *testing.T) {
	s := newTestServer()
	path := writeChart(t, 50, 50)

	callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}, &imaging.DimensionsResult{})
	callTool(t, s, "chart_panel", map[string]interface{}{"path": path}, &imaging.PanelResult{})
	assert.Equal(t, 1, s.cache.Len())
}
