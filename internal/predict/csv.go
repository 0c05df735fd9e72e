package predict

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Result is one exported prediction.
type Result struct {
	ImageName string  `json:"image_name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// WriteCSV writes results with the header ImageName,Fovea_X,Fovea_Y in the
// order given.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ImageName", "Fovea_X", "Fovea_Y"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range results {
		rec := []string{
			r.ImageName,
			strconv.FormatFloat(r.X, 'f', -1, 64),
			strconv.FormatFloat(r.Y, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
