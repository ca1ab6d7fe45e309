package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

type ExportData struct {
	Metadata         *RunMetadata `json:"metadata"`
	PairDistribution *Table       `json:"pair_distribution"`
	StructureFactor  *Table       `json:"structure_factor"`
	Residuals        *Table       `json:"residuals"`
}

// ExportJSON writes the metadata and every series of a run to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data := ExportData{Metadata: meta}
	for _, t := range []struct {
		series Series
		dst    **Table
	}{
		{PairDistribution, &data.PairDistribution},
		{StructureFactor, &data.StructureFactor},
		{Residuals, &data.Residuals},
	} {
		if *t.dst, err = s.LoadSeries(runID, t.series); err != nil {
			return err
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV copies one series file of a run to w unchanged.
func (s *Store) ExportCSV(w io.Writer, runID string, series Series) error {
	f, err := os.Open(s.path(runID, series))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, runID, series)
		}
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func ParseSeries(name string) (Series, error) {
	switch s := Series(name); s {
	case PairDistribution, StructureFactor, Residuals:
		return s, nil
	}
	return "", fmt.Errorf("storage: unknown series %q (want %s, %s or %s)", name, PairDistribution, StructureFactor, Residuals)
}
