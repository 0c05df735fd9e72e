package heatmap

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"gonum.org/v1/gonum/floats"
)

// Decoder turns a heatmap into the single most likely grid coordinate.
//
// Implementations must be deterministic and must not fail: empty and
// all-zero maps decode to a defined coordinate.
type Decoder interface {
	Decode(h *Heatmap) geometry.GridPoint
	Name() string
}

// Decoder names accepted by NewDecoder.
const (
	ArgmaxName   = "argmax"
	CentroidName = "centroid"
)

// NewDecoder returns the decoding strategy registered under name. threshold
// only applies to the centroid strategy and must lie in (0, 1].
func NewDecoder(name string, threshold float64) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ArgmaxName:
		return Argmax{}, nil
	case CentroidName:
		if threshold <= 0 || threshold > 1 {
			return nil, fmt.Errorf("centroid threshold %v must be in (0, 1]", threshold)
		}
		return Centroid{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown decoder strategy: %s", name)
	}
}

// Argmax decodes to the cell holding the highest score. On ties the first
// cell in row-major order wins.
type Argmax struct{}

// Name implements Decoder.
func (Argmax) Name() string { return ArgmaxName }

// Decode implements Decoder.
func (Argmax) Decode(h *Heatmap) geometry.GridPoint {
	d := h.Data()
	if len(d) == 0 {
		return geometry.GridPoint{}
	}
	// floats.MaxIdx returns the first index holding the maximum.
	idx := floats.MaxIdx(d)
	return geometry.GridPoint{X: idx % h.cols, Y: idx / h.cols}
}

// Centroid decodes to the score-weighted centroid of every cell whose score
// is at least Threshold times the peak score.
type Centroid struct {
	Threshold float64
}

// Name implements Decoder.
func (Centroid) Name() string { return CentroidName }

// Decode implements Decoder. Non-finite cells are ignored.
func (c Centroid) Decode(h *Heatmap) geometry.GridPoint {
	d := h.Data()
	if len(d) == 0 {
		return geometry.GridPoint{}
	}
	peak := math.Inf(-1)
	for _, v := range d {
		if finite(v) && v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return Argmax{}.Decode(h)
	}

	cut := c.Threshold * peak
	var sx, sy, sw float64
	for i, v := range d {
		if !finite(v) || v < cut {
			continue
		}
		sx += v * float64(i%h.cols)
		sy += v * float64(i/h.cols)
		sw += v
	}
	if sw == 0 {
		return Argmax{}.Decode(h)
	}
	x, y := math.Round(sx/sw), math.Round(sy/sw)
	if !finite(x) || !finite(y) || x < 0 || y < 0 || x >= float64(h.cols) || y >= float64(h.rows) {
		return Argmax{}.Decode(h)
	}
	return geometry.GridPoint{X: int(x), Y: int(y)}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
