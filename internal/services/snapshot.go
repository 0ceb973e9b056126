package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"happymart-dashboard/internal/models"
)

// Snapshotter persists the rows selected by a render pass.
type Snapshotter interface {
	WriteSnapshot(header []string, rows []models.OrderRecord) error
}

// FileSnapshot overwrites a CSV file with the selected rows, all source
// columns included. Readers never observe a partially written file.
type FileSnapshot struct {
	path string
}

func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

func (s *FileSnapshot) Path() string {
	return s.path
}

func (s *FileSnapshot) WriteSnapshot(header []string, rows []models.OrderRecord) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeRows(tmp, header, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}
	return nil
}

func writeRows(w io.Writer, header []string, rows []models.OrderRecord) error {
	if len(rows) == 0 {
		// dataframe refuses to load a header without rows
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, row := range rows {
		records = append(records, alignRow(row.Raw, len(header)))
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return df.Err
	}
	// LoadRecords renames blank and duplicate headers (X0, a_0, a_1).
	if err := df.SetNames(header...); err != nil {
		return err
	}
	return df.WriteCSV(w)
}

// alignRow pads or trims raw to n columns.
func alignRow(raw []string, n int) []string {
	if len(raw) == n {
		return raw
	}
	out := make([]string, n)
	copy(out, raw)
	return out
}
