// Package server implements the MCP (Model Context Protocol) server for fovea
// localization tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the heatmap
// pipeline through the MCP protocol, so an MCP client can locate the fovea in
// fundus photographs, inspect target heatmaps and run evaluations.
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
// Images and Coordinates:
//   - fovea_image_info: Load image and get metadata
//   - fovea_map_point: Map a pixel through model and grid space
//
// Heatmaps:
//   - fovea_encode_target: Render the Gaussian target for a grid cell
//   - fovea_decode_heatmap: Decode a heatmap PNG to a grid cell
//
// Prediction:
//   - fovea_predict: Locate the fovea, optionally refined and overlaid
//
// Evaluation:
//   - fovea_evaluate: Score an annotated dataset
//   - fovea_list_runs: List stored runs
//   - fovea_get_run: Fetch one stored run
//
// # Configuration
//
// New takes a config.Config. Geometry, decoder and estimator settings apply
// to every tool call. The run tools need config.Config.Database to be set.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
package server
