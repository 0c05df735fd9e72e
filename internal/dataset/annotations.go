package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
)

// ErrInvalidAnnotation marks a malformed annotation table or row.
var ErrInvalidAnnotation = errors.New("invalid annotation")

// Column names of an annotation table.
const (
	ColumnImageName    = "ImageName"
	ColumnImageNameAlt = "ImgName"
	ColumnFoveaX       = "Fovea_X"
	ColumnFoveaY       = "Fovea_Y"
)

// Annotation is one labelled fovea location in original image pixels.
type Annotation struct {
	ImageName string  `json:"image_name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Point returns the annotated location.
func (a Annotation) Point() geometry.Point {
	return geometry.Point{X: a.X, Y: a.Y}
}

// LoadAnnotations reads and concatenates annotation tables in the given order.
func LoadAnnotations(paths ...string) ([]Annotation, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no annotation tables given", ErrInvalidAnnotation)
	}

	var all []Annotation
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open annotations: %w", err)
		}
		anns, err := ReadAnnotations(f, p)
		f.Close()
		if err != nil {
			return nil, err
		}
		all = append(all, anns...)
	}
	return all, nil
}

// ReadAnnotations parses one CSV annotation table. source names the table in
// error messages.
func ReadAnnotations(r io.Reader, source string) ([]Annotation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s: empty table", ErrInvalidAnnotation, source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAnnotation, source, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	nameCol, ok := cols[ColumnImageName]
	if !ok {
		nameCol, ok = cols[ColumnImageNameAlt]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing %s column", ErrInvalidAnnotation, source, ColumnImageName)
	}
	xCol, ok := cols[ColumnFoveaX]
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing %s column", ErrInvalidAnnotation, source, ColumnFoveaX)
	}
	yCol, ok := cols[ColumnFoveaY]
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing %s column", ErrInvalidAnnotation, source, ColumnFoveaY)
	}

	var anns []Annotation
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAnnotation, source, err)
		}
		line, _ := cr.FieldPos(0)

		name := strings.TrimSpace(rec[nameCol])
		if name == "" {
			return nil, fmt.Errorf("%w: %s:%d: missing image name", ErrInvalidAnnotation, source, line)
		}
		x, err := parseCoordinate(rec[xCol])
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %s %s: %v", ErrInvalidAnnotation, source, line, name, ColumnFoveaX, err)
		}
		y, err := parseCoordinate(rec[yCol])
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %s %s: %v", ErrInvalidAnnotation, source, line, name, ColumnFoveaY, err)
		}
		anns = append(anns, Annotation{ImageName: name, X: x, Y: y})
	}
	return anns, nil
}

func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty coordinate")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// Names returns the image names in annotation order, duplicates included.
func Names(anns []Annotation) []string {
	out := make([]string, len(anns))
	for i, a := range anns {
		out[i] = a.ImageName
	}
	return out
}
