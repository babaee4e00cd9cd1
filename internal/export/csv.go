// Package export serializes sweep results to interchange formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"mppt_sweep/internal/models"
)

var csvHeader = []string{"voltage", "current", "power"}

// WriteCSV emits the sample sequence as three numeric columns with a header
// row. Values are formatted with %g so a written file reads back without
// precision loss.
func WriteCSV(w io.Writer, samples []models.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range samples {
		rec := []string{
			strconv.FormatFloat(s.Voltage, 'g', -1, 64),
			strconv.FormatFloat(s.Current, 'g', -1, 64),
			strconv.FormatFloat(s.Power, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV back into samples. The header
// row is required; extra columns are ignored.
func ReadCSV(r io.Reader) ([]models.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < len(csvHeader) {
		return nil, fmt.Errorf("expected at least %d columns, got %d", len(csvHeader), len(header))
	}

	var samples []models.Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", line, len(rec))
		}
		var s models.Sample
		if s.Voltage, err = strconv.ParseFloat(rec[0], 64); err != nil {
			return nil, fmt.Errorf("line %d voltage: %w", line, err)
		}
		if s.Current, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, fmt.Errorf("line %d current: %w", line, err)
		}
		if s.Power, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("line %d power: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}
