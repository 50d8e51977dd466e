// Package storage persists one directory per run: a streaming series.csv
// plus a metadata.json written when the run finishes. The writer streams
// so a failed or cancelled run still leaves a truncated series behind.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one completed (or truncated) run.
type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Controller string             `json:"controller"`
	Integrator string             `json:"integrator"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Seed       int64              `json:"seed"`
	Steps      int                `json:"steps"`
	Failed     bool               `json:"failed,omitempty"`
	Error      string             `json:"error,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// RunWriter streams one run's series to disk. It implements sim.Sink.
type RunWriter struct {
	file   *os.File
	w      *csv.Writer
	runDir string
	closed bool
}

// Open creates the run directory and the series file with its header.
// Run names are unique per run, so no two writers ever share a
// destination.
func (s *Store) Open(runName string, auxNames []string) (*RunWriter, error) {
	runDir := filepath.Join(s.baseDir, runName)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}

	f, err := os.Create(filepath.Join(runDir, "series.csv"))
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	header := append([]string{"time", "output", "setpoint", "control"}, auxNames...)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}

	return &RunWriter{file: f, w: w, runDir: runDir}, nil
}

func (rw *RunWriter) Append(t, output, setpoint, control float64, aux []float64) error {
	row := make([]string, 0, 4+len(aux))
	for _, v := range []float64{t, output, setpoint, control} {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	for _, v := range aux {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	return rw.w.Write(row)
}

// Close flushes and closes the series file. Safe to call once per run on
// any exit path; later calls are no-ops.
func (rw *RunWriter) Close() error {
	if rw.closed {
		return nil
	}
	rw.closed = true
	rw.w.Flush()
	if err := rw.w.Error(); err != nil {
		rw.file.Close()
		return err
	}
	return rw.file.Close()
}

// WriteMeta persists the run metadata next to its series.
func (s *Store) WriteMeta(meta RunMetadata) error {
	f, err := os.Create(filepath.Join(s.baseDir, meta.ID, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns metadata for every run directory under the store,
// skipping directories without readable metadata.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
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
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads one run's series back as a header plus one column per
// channel.
func (s *Store) LoadSeries(runID string) ([]string, [][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty series for run %s", runID)
	}

	header := records[0]
	cols := make([][]float64, len(header))
	for i := range cols {
		cols[i] = make([]float64, 0, len(records)-1)
	}

	for _, record := range records[1:] {
		for j, field := range record {
			if j >= len(cols) {
				break
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s: bad value %q: %w", runID, field, err)
			}
			cols[j] = append(cols[j], v)
		}
	}

	return header, cols, nil
}
