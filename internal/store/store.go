// Package store lays out the results directory of a run and writes the
// snapshot buffer to disk.
//
// A run numbered N under base produces
//
//	base/RunNNNNN/fields_RunNNNNN.npy
//	base/RunNNNNN/Code/RunNNNNN.ini
//	base/RunNNNNN/Plots/
//	base/RunNNNNN/Spectrum/
package store

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/MariosKokmo/go-qg/internal/simulation"
)

// Subdirectories of a run directory.
const (
	CodeDir     = "Code"
	PlotsDir    = "Plots"
	SpectrumDir = "Spectrum"
)

// FieldsPerSnapshot is the trailing dimension of the fields array: q, p, u, v.
const FieldsPerSnapshot = 4

// Run is the results directory of one simulation.
type Run struct {
	Number int
	Dir    string
}

// Name returns "RunNNNNN".
func Name(number int) string { return fmt.Sprintf("Run%05d", number) }

// NewRun creates base/RunNNNNN and its subdirectories.
func NewRun(base string, number int) (*Run, error) {
	r := &Run{Number: number, Dir: filepath.Join(base, Name(number))}
	for _, dir := range []string{r.Dir, r.Path(CodeDir), r.Path(PlotsDir), r.Path(SpectrumDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	log.WithField("dir", r.Dir).Info("results directory ready")
	return r, nil
}

// Path joins elem onto the run directory.
func (r *Run) Path(elem ...string) string {
	return filepath.Join(append([]string{r.Dir}, elem...)...)
}

// FieldsPath is the location of the snapshot array.
func (r *Run) FieldsPath() string {
	return r.Path("fields_" + Name(r.Number) + ".npy")
}

// SaveConfig writes the resolved run file under Code/.
func (r *Run) SaveConfig(file *ini.File) error {
	path := r.Path(CodeDir, Name(r.Number)+".ini")
	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	log.WithField("path", path).Debug("run file saved")
	return nil
}

// SaveFields writes every snapshot slot, reached or not, as an array of
// shape Ny x Nx x len(snaps) x 4 with the fields ordered q, p, u, v.
func (r *Run) SaveFields(snaps []simulation.Snapshot) error {
	shape, data := Pack(snaps)
	path := r.FieldsPath()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := WriteNPY(f, shape, data); err != nil {
		f.Close()
		return fmt.Errorf("store: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	unsaved := 0
	for _, s := range snaps {
		if !s.Saved {
			unsaved++
		}
	}
	entry := log.WithFields(log.Fields{"path": path, "shape": shape})
	if unsaved > 0 {
		entry.WithField("unreached", unsaved).Warn("fields saved with empty slots")
		return nil
	}
	entry.Info("fields saved")
	return nil
}

// Pack flattens snapshots into C order with shape Ny x Nx x saves x 4.
func Pack(snaps []simulation.Snapshot) (shape []int, data []float64) {
	if len(snaps) == 0 {
		return []int{0, 0, 0, FieldsPerSnapshot}, nil
	}
	ny, nx := snaps[0].Q.Dims()
	ns := len(snaps)
	shape = []int{ny, nx, ns, FieldsPerSnapshot}
	data = make([]float64, ny*nx*ns*FieldsPerSnapshot)
	for s, snap := range snaps {
		for f, m := range snap.Fields() {
			raw := m.RawMatrix()
			for i := 0; i < ny; i++ {
				row := raw.Data[i*raw.Stride : i*raw.Stride+nx]
				for j, v := range row {
					data[((i*nx+j)*ns+s)*FieldsPerSnapshot+f] = v
				}
			}
		}
	}
	return shape, data
}
