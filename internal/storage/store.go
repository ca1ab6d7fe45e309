// Package storage persists experiment outcomes as plain data. Each run is a
// directory holding metadata.json and one CSV file per series. Potentials
// are stored by variant name and rebuilt through the potential table on
// restore.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/xrts/internal/config"
	"github.com/san-kum/xrts/internal/experiment"
	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/grid"
	"github.com/san-kum/xrts/internal/potential"
)

var ErrNotFound = errors.New("storage: run not found")

// Series names one of the CSV files of a run.
type Series string

const (
	PairDistribution Series = "pair_distribution"
	StructureFactor  Series = "structure_factor"
	Residuals        Series = "residuals"
)

const metadataFile = "metadata.json"

type Store struct {
	Log     logrus.FieldLogger
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{Log: logrus.StandardLogger(), baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type SpeciesRecord struct {
	Name          string  `json:"name"`
	Charge        float64 `json:"charge"`
	MassKg        float64 `json:"mass_kg"`
	NumberDensity float64 `json:"number_density"` // m^-3
	TemperatureK  float64 `json:"temperature_k"`
}

type RunMetadata struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Timestamp  time.Time              `json:"timestamp"`
	ElapsedSec float64                `json:"elapsed_sec"`
	Config     *config.Config         `json:"config"`
	Species    []SpeciesRecord        `json:"species"`
	Potentials potential.AssemblySpec `json:"potentials"`
	Grid       grid.Spec              `json:"grid"`
	Iterations int                    `json:"iterations"`
	Residual   float64                `json:"residual"`
	Converged  bool                   `json:"converged"`
	K          float64                `json:"k,omitempty"` // m^-1
	SAtK       [][]float64            `json:"s_at_k,omitempty"`
}

// Save writes out under a new id of the form <name>_<uuid prefix>.
func (s *Store) Save(out *experiment.Outcome) (string, error) {
	runID := fmt.Sprintf("%s_%s", out.Name(), uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       out.Name(),
		Timestamp:  out.Started,
		ElapsedSec: out.Elapsed.Seconds(),
		Config:     out.Config,
		Potentials: out.Assembly.Spec(),
		Grid:       out.Grid.Spec(),
		Iterations: out.Result.Iterations,
		Residual:   out.Result.Residual,
		Converged:  out.Result.Converged,
		K:          out.K,
		SAtK:       out.SAtK,
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	for _, sp := range out.Species {
		meta.Species = append(meta.Species, SpeciesRecord{
			Name:          sp.Name,
			Charge:        sp.Charge,
			MassKg:        sp.MassKg(),
			NumberDensity: sp.NumberDensity(),
			TemperatureK:  sp.TemperatureK(),
		})
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	names := out.SpeciesNames()
	if err := writeField(s.path(runID, PairDistribution), "r", "g", out.Grid.R, out.Result.G, names); err != nil {
		return "", err
	}
	if err := writeField(s.path(runID, StructureFactor), "k", "S", out.Grid.K, out.S, names); err != nil {
		return "", err
	}
	if err := writeResiduals(s.path(runID, Residuals), out.Result.History); err != nil {
		return "", err
	}

	s.log().WithFields(logrus.Fields{"id": runID, "dir": runDir}).Info("run saved")
	return runID, nil
}

func (s *Store) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Store) path(runID string, series Series) string {
	return filepath.Join(s.baseDir, runID, string(series)+".csv")
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeField writes the upper triangle of f, one column per pair.
func writeField(path, xName, prefix string, x []float64, f *field.Field, names []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{xName}
	for a := 0; a < f.N; a++ {
		for b := a; b < f.N; b++ {
			header = append(header, fmt.Sprintf("%s_%s_%s", prefix, names[a], names[b]))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range x {
		row := []string{strconv.FormatFloat(x[i], 'g', 10, 64)}
		for a := 0; a < f.N; a++ {
			for b := a; b < f.N; b++ {
				row = append(row, strconv.FormatFloat(f.At(a, b, i), 'g', 10, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeResiduals(path string, history []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"iteration", "residual"}); err != nil {
		return err
	}
	for i, r := range history {
		if err := w.Write([]string{strconv.Itoa(i + 1), strconv.FormatFloat(r, 'g', 10, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every run, newest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// Table is one series read back from disk.
type Table struct {
	Header  []string
	X       []float64
	Columns [][]float64
}

func (s *Store) LoadSeries(runID string, series Series) (*Table, error) {
	file, err := os.Open(s.path(runID, series))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, series)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: %s/%s: %w", runID, series, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	t := &Table{Header: records[0], Columns: make([][]float64, len(records[0])-1)}
	for line, rec := range records[1:] {
		vals := make([]float64, len(rec))
		for j, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s/%s line %d: %w", runID, series, line+2, err)
			}
			vals[j] = v
		}
		t.X = append(t.X, vals[0])
		for j := range t.Columns {
			t.Columns[j] = append(t.Columns[j], vals[j+1])
		}
	}
	return t, nil
}

// Restored is a stored run rebuilt into live objects.
type Restored struct {
	Meta     *RunMetadata
	Config   *config.Config
	Assembly potential.Assembly
	Grid     grid.Grid
}

// Restore rebuilds the potential assembly and grid of a stored run, so it
// can be inspected or rerun.
func (s *Store) Restore(runID string) (*Restored, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	asm, err := meta.Potentials.Assembly()
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	g, err := grid.FromSpec(meta.Grid)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	cfg := meta.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Name = meta.Name
		cfg.Potentials = meta.Potentials
	}
	return &Restored{Meta: meta, Config: cfg, Assembly: asm, Grid: g}, nil
}
