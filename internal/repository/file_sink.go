package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/export"
)

// FileNames names the three export files inside the output directory.
type FileNames struct {
	MapCSV  string
	MapJSON string
	DaysCSV string
}

func DefaultFileNames() FileNames {
	return FileNames{
		MapCSV:  "ny_probability_map.csv",
		MapJSON: "ny_probability_map.json",
		DaysCSV: "daily_sessions_with_labels.csv",
	}
}

// FileSink writes the map (CSV and JSON) and the per-day CSV into a directory.
// Files are written to a temp name and renamed so readers never see a partial file.
type FileSink struct {
	dir   string
	names FileNames
}

var _ domrepo.MapSink = (*FileSink)(nil)

func NewFileSink(dir string, names FileNames) *FileSink {
	return &FileSink{dir: dir, names: names}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, run *models.RunResult) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{s.names.MapCSV, func(w io.Writer) error { return export.WriteMapCSV(w, run.Map) }},
		{s.names.MapJSON, func(w io.Writer) error { return export.WriteMapJSON(w, run.Map) }},
		{s.names.DaysCSV, func(w io.Writer) error { return export.WriteDaysCSV(w, run.Days) }},
	}
	for _, o := range outputs {
		if o.name == "" {
			continue
		}
		if err := writeAtomic(filepath.Join(s.dir, o.name), o.write); err != nil {
			return fmt.Errorf("write %s: %w", o.name, err)
		}
	}
	return nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileSink) Close() error { return nil }
