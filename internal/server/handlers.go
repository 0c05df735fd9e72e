package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/fovea-tools-mcp/internal/config"
	"github.com/ironsheep/fovea-tools-mcp/internal/evaluation"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"github.com/ironsheep/fovea-tools-mcp/internal/imaging"
	"github.com/ironsheep/fovea-tools-mcp/internal/predict"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "fovea_predict").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errNoStore is returned by run tools when no database is configured.
var errNoStore = errors.New("no evaluation database configured")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "fovea_image_info":
		return s.handleImageInfo(args)
	case "fovea_map_point":
		return s.handleMapPoint(args)

	// Heatmap Operations
	case "fovea_encode_target":
		return s.handleEncodeTarget(args)
	case "fovea_decode_heatmap":
		return s.handleDecodeHeatmap(args)

	// Prediction
	case "fovea_predict":
		return s.handlePredict(ctx, args)

	// Evaluation
	case "fovea_evaluate":
		return s.handleEvaluate(ctx, args)
	case "fovea_list_runs":
		return s.handleListRuns(ctx, args)
	case "fovea_get_run":
		return s.handleGetRun(ctx, args)

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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, treating missing arguments as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Image Handlers ===

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type mapPointArgs struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

type mapPointResult struct {
	Original  geometry.Point     `json:"original"`
	Model     geometry.Point     `json:"model"`
	Grid      geometry.GridPoint `json:"grid"`
	GridSize  geometry.Size      `json:"grid_size"`
	Recovered geometry.Point     `json:"recovered"`
	// MaxError is the largest distance, per axis in original pixels, between
	// a point and its grid cell's recovered coordinate.
	MaxError geometry.Scale `json:"max_error"`
}

func (s *Server) handleMapPoint(args json.RawMessage) (interface{}, error) {
	var a mapPointArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("image width and height must be positive, got %dx%d", a.Width, a.Height)
	}

	geom := s.cfg.Geometry
	orig := geometry.Size{Width: a.Width, Height: a.Height}
	p := geometry.Point{X: a.X, Y: a.Y}
	model := geometry.ToModelSpace(p, orig, geom.InputSize)
	g := geometry.ToGridSpace(model, geom.OutputStride)
	scale := geometry.ResizeScale(orig, geom.InputSize)

	return &mapPointResult{
		Original:  p,
		Model:     model,
		Grid:      g,
		GridSize:  geom.GridSize(),
		Recovered: geometry.FromGridSpace(g, geom.OutputStride, scale),
		MaxError: geometry.Scale{
			X: float64(geom.OutputStride) * scale.X,
			Y: float64(geom.OutputStride) * scale.Y,
		},
	}, nil
}

// === Heatmap Handlers ===

type encodeTargetArgs struct {
	GridX      int     `json:"grid_x"`
	GridY      int     `json:"grid_y"`
	KernelSize int     `json:"kernel_size"`
	Colorize   bool    `json:"colorize"`
	Scale      float64 `json:"scale"`
}

type encodeTargetResult struct {
	GridSize geometry.Size         `json:"grid_size"`
	Peak     geometry.GridPoint    `json:"peak"`
	Max      float64               `json:"max"`
	Image    *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleEncodeTarget(args json.RawMessage) (interface{}, error) {
	var a encodeTargetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.KernelSize == 0 {
		a.KernelSize = s.cfg.Geometry.KernelSize
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	grid := s.cfg.Geometry.GridSize()
	h, err := heatmap.Encode(grid, a.KernelSize, geometry.GridPoint{X: a.GridX, Y: a.GridY})
	if err != nil {
		return nil, err
	}

	var img image.Image = heatmap.ToGray16(h)
	if a.Colorize {
		img = heatmap.Colorize(h)
	}
	enc, err := imaging.EncodePNG(img, a.Scale)
	if err != nil {
		return nil, err
	}
	return &encodeTargetResult{
		GridSize: grid,
		Peak:     heatmap.Argmax{}.Decode(h),
		Max:      h.Max(),
		Image:    enc,
	}, nil
}

type decodeHeatmapArgs struct {
	Path      string  `json:"path"`
	Strategy  string  `json:"strategy"`
	Threshold float64 `json:"threshold"`
	// Width and Height, when set, are the original image size used to map
	// the decoded cell back to image pixels.
	Width  int `json:"width"`
	Height int `json:"height"`
}

type decodeHeatmapResult struct {
	Strategy string             `json:"strategy"`
	GridSize geometry.Size      `json:"grid_size"`
	Grid     geometry.GridPoint `json:"grid"`
	Score    float64            `json:"score"`
	Point    *geometry.Point    `json:"point,omitempty"`
}

func (s *Server) handleDecodeHeatmap(args json.RawMessage) (interface{}, error) {
	var a decodeHeatmapArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	dec, err := s.decoderFor(a.Strategy, a.Threshold)
	if err != nil {
		return nil, err
	}
	h, err := heatmap.LoadPNG(a.Path)
	if err != nil {
		return nil, err
	}

	g := dec.Decode(h)
	res := &decodeHeatmapResult{
		Strategy: dec.Name(),
		GridSize: h.Size(),
		Grid:     g,
	}
	if !h.Empty() {
		res.Score = h.At(g.X, g.Y)
	}
	if a.Width > 0 && a.Height > 0 {
		scale := geometry.ResizeScale(geometry.Size{Width: a.Width, Height: a.Height}, s.cfg.Geometry.InputSize)
		p := geometry.FromGridSpace(g, s.cfg.Geometry.OutputStride, scale)
		res.Point = &p
	}
	return res, nil
}

// decoderFor returns the named strategy, or the configured one when name is
// empty. A zero threshold falls back to the configured threshold.
func (s *Server) decoderFor(name string, threshold float64) (heatmap.Decoder, error) {
	if strings.TrimSpace(name) == "" {
		name = s.cfg.Decoder.Strategy
	}
	if threshold == 0 {
		threshold = s.cfg.Decoder.Threshold
	}
	return heatmap.NewDecoder(name, threshold)
}

// === Prediction Handlers ===

type predictArgs struct {
	Path    string  `json:"path"`
	Refine  *bool   `json:"refine,omitempty"`
	Overlay bool    `json:"overlay"`
	Scale   float64 `json:"scale"`
}

type predictResult struct {
	Path       string                     `json:"path"`
	Width      int                        `json:"width"`
	Height     int                        `json:"height"`
	Point      geometry.Point             `json:"point"`
	Prediction *predict.Prediction        `json:"prediction"`
	Refined    *predict.CascadePrediction `json:"refined,omitempty"`
	Overlay    *imaging.EncodedImage      `json:"overlay,omitempty"`
}

func (s *Server) handlePredict(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a predictArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if s.predictor == nil {
		return nil, fmt.Errorf("prediction unavailable for estimator kind %q", s.cfg.Estimator.Kind)
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	refine := s.cfg.RefineHalfSize > 0
	if a.Refine != nil {
		refine = *a.Refine
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res := &predictResult{
		Path:   a.Path,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	if refine {
		half := s.cfg.RefineHalfSize
		if half <= 0 {
			return nil, fmt.Errorf("refinement requested but refine_half_size is not configured")
		}
		c := &predict.Cascade{Coarse: s.predictor, Fine: s.predictor, HalfSize: half}
		cp, err := c.Predict(ctx, img)
		if err != nil {
			return nil, err
		}
		res.Prediction = cp.Coarse
		res.Refined = cp
		res.Point = cp.Point
	} else {
		pred, err := s.predictor.Predict(ctx, img)
		if err != nil {
			return nil, err
		}
		res.Prediction = pred
		res.Point = pred.Point
	}

	if a.Overlay {
		markers := []imaging.Marker{{Point: res.Point}}
		if res.Refined != nil {
			markers = append([]imaging.Marker{{Point: res.Refined.Coarse.Point, Label: "coarse", Color: "#FC8961"}}, markers...)
		}
		drawn, err := imaging.DrawMarkers(img, markers...)
		if err != nil {
			return nil, err
		}
		if res.Overlay, err = imaging.EncodePNG(drawn, a.Scale); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// === Evaluation Handlers ===

type evaluateArgs struct {
	// Annotations and ImagesDir override the configured dataset.
	Annotations []string `json:"annotations,omitempty"`
	ImagesDir   string   `json:"images_dir,omitempty"`
	// HeatmapDir scores against precomputed heatmaps instead of the
	// configured estimator.
	HeatmapDir string `json:"heatmap_dir,omitempty"`
	Notes      string `json:"notes,omitempty"`
	PlotPath   string `json:"plot_path,omitempty"`
	// IncludeSamples returns every per-image result, not just the summary.
	IncludeSamples bool `json:"include_samples"`
}

type evaluateResult struct {
	Run    *evaluation.Run `json:"run"`
	Stored bool            `json:"stored"`
	Plot   string          `json:"plot,omitempty"`
}

func (s *Server) handleEvaluate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a evaluateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	cfg := *s.cfg
	if len(a.Annotations) > 0 {
		cfg.Annotations = a.Annotations
	}
	if a.ImagesDir != "" {
		cfg.ImagesDir = a.ImagesDir
	}
	if a.HeatmapDir != "" {
		cfg.Estimator.Kind = config.EstimatorHeatmapDir
		cfg.Estimator.HeatmapDir = a.HeatmapDir
	}
	ds, err := cfg.OpenEvaluationDataset()
	if err != nil {
		return nil, err
	}
	scorer, err := cfg.NewScorer()
	if err != nil {
		return nil, err
	}
	dec, err := cfg.NewDecoder()
	if err != nil {
		return nil, err
	}

	run, err := evaluation.Evaluate(ctx, ds, scorer, dec, cfg.EvaluationOptions(a.Notes))
	if err != nil {
		return nil, err
	}

	res := &evaluateResult{Run: run}
	if s.store != nil {
		if err := s.store.SaveRun(ctx, run); err != nil {
			return nil, err
		}
		res.Stored = true
	}
	if a.PlotPath != "" {
		if err := evaluation.PlotErrors(run, a.PlotPath); err != nil {
			return nil, err
		}
		res.Plot = a.PlotPath
	}
	if !a.IncludeSamples {
		summary := *run
		summary.Samples = nil
		res.Run = &summary
	}
	return res, nil
}

type listRunsArgs struct {
	Limit int `json:"limit"`
}

func (s *Server) handleListRuns(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a listRunsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errNoStore
	}
	if a.Limit == 0 {
		a.Limit = 20
	}
	runs, err := s.store.ListRuns(ctx, a.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"runs": runs, "count": len(runs)}, nil
}

type getRunArgs struct {
	ID string `json:"id"`
}

func (s *Server) handleGetRun(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a getRunArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errNoStore
	}
	return s.store.GetRun(ctx, a.ID)
}
