// Package server implements the MCP (Model Context Protocol) server for chart
// signal extraction.
//
// This package provides a JSON-RPC 2.0 server that exposes the extraction
// pipeline as MCP tools, so that an assistant or trading front end can ask
// for the trend and support/resistance levels of a chart screenshot.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Chart Signals:
//   - chart_extract: Slope, trend label and levels of one chart
//   - chart_extract_batch: chart_extract over many files concurrently
//   - chart_trend: Trend branch only, with the centerline fit
//   - chart_levels: Level branch only, with segments and rows
//
// Chart Images:
//   - chart_panel: Cropped price panel
//   - chart_edge_detect: Edge map of the price panel
//   - chart_overlay: Price panel annotated with levels and trend line
//
// # Image Caching
//
// With cache.enabled (the default) decoded images are cached by path and
// reused across tool calls for the lifetime of the process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32602 (arguments rejected by
//     the tool's input schema) or other standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Charts without usable signal are not errors; they yield a zero slope and
// an empty level list.
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal().Err(err).Msg("Server error")
//	}
package server
