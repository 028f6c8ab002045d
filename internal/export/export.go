// Package export turns tabular report data into downloadable documents.
// Rich formats (Excel, PDF) are produced by external renderers plugged
// in behind the Renderer interface; the built-in renderer emits CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

type Renderer interface {
	Render(title string, headers []string, rows [][]string) ([]byte, error)
	ContentType() string
	Extension() string
}

type CSVRenderer struct{}

func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

func (r *CSVRenderer) Render(_ string, headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *CSVRenderer) ContentType() string {
	return "text/csv"
}

func (r *CSVRenderer) Extension() string {
	return "csv"
}

// Filename builds the timestamped attachment name used by the export
// endpoints, e.g. "users_2026-09-01_120301.csv".
func Filename(prefix, extension string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("2006-01-02_150405"), extension)
}
