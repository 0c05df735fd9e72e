package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": desc,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "fovea_image_info",
			Description: "Load a fundus image and return its dimensions, format and file size. The image stays cached for later predictions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "fovea_map_point",
			Description: "Map a pixel coordinate of an image with the given size into model-input space and heatmap grid space, and report where that grid cell maps back to.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "number",
						"description": "X coordinate in original image pixels",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "Y coordinate in original image pixels",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Original image width",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Original image height",
					},
				},
				"required": []string{"x", "y", "width", "height"},
			},
		},

		// Heatmap Operations
		{
			Name:        "fovea_encode_target",
			Description: "Render the Gaussian target heatmap for a grid cell as a base64 PNG, using the configured grid size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"grid_x": map[string]interface{}{
						"type":        "integer",
						"description": "Target column in the heatmap grid",
					},
					"grid_y": map[string]interface{}{
						"type":        "integer",
						"description": "Target row in the heatmap grid",
					},
					"kernel_size": map[string]interface{}{
						"type":        "integer",
						"description": "Odd Gaussian kernel size. Defaults to the configured kernel size",
					},
					"colorize": map[string]interface{}{
						"type":        "boolean",
						"description": "Render with a color map instead of 16-bit grayscale",
						"default":     false,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the returned image. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"grid_x", "grid_y"},
			},
		},
		{
			Name:        "fovea_decode_heatmap",
			Description: "Decode a grayscale PNG heatmap to its most likely grid cell, optionally mapped back to original image pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the heatmap PNG"),
					"strategy": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"argmax", "centroid"},
						"description": "Decoding strategy. Defaults to the configured strategy",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Centroid threshold as a fraction of the peak, in (0, 1]",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Original image width, to map the result to pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Original image height, to map the result to pixels",
					},
				},
				"required": []string{"path"},
			},
		},

		// Prediction
		{
			Name:        "fovea_predict",
			Description: "Locate the fovea in a fundus image and return its pixel coordinate, the decoded grid cell and its score.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
					"refine": map[string]interface{}{
						"type":        "boolean",
						"description": "Run a second pass on a window around the first estimate. Defaults to on when refine_half_size is configured",
					},
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the image with the prediction marked",
						"default":     false,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the overlay image. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},

		// Evaluation
		{
			Name:        "fovea_evaluate",
			Description: "Score predictions against an annotated dataset. Reports mean grid-cell error (precision) and mean pixel error, and stores the run when a database is configured.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"annotations": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Annotation CSV files (ImageName, Fovea_X, Fovea_Y). Defaults to the configured tables",
					},
					"images_dir":  pathProperty("Directory holding the annotated images. Defaults to the configured directory"),
					"heatmap_dir": pathProperty("Score precomputed PNG heatmaps named after each image instead of running the estimator"),
					"notes": map[string]interface{}{
						"type":        "string",
						"description": "Free text stored with the run",
					},
					"plot_path": pathProperty("Write an error histogram to this path (png, svg or pdf)"),
					"include_samples": map[string]interface{}{
						"type":        "boolean",
						"description": "Return every per-image result",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "fovea_list_runs",
			Description: "List stored evaluation runs, newest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of runs. Default 20",
						"default":     20,
					},
				},
			},
		},
		{
			Name:        "fovea_get_run",
			Description: "Fetch a stored evaluation run with its per-image results.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Run ID returned by fovea_evaluate or fovea_list_runs",
					},
				},
				"required": []string{"id"},
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
