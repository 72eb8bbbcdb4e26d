package simulation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/MariosKokmo/go-qg/internal/spectral"
)

var (
	// ErrInvalidTime is returned for non-positive dt, T or save interval.
	ErrInvalidTime = errors.New("simulation: invalid time parameters")
	// ErrNonFinite is reported by the optional finiteness guard.
	ErrNonFinite = errors.New("simulation: state is no longer finite")
)

// TimeParams controls the length and output cadence of a run.
type TimeParams struct {
	Dt           float64 // Time step
	T            float64 // Run length
	SaveInterval int     // Steps between snapshots

	// CheckFinite stops the run with a StepError when a saved vorticity
	// field contains NaN or Inf. Off by default.
	CheckFinite bool
}

// Validate checks dt > 0, T > 0 and SaveInterval > 0.
func (p TimeParams) Validate() error {
	if !(p.Dt > 0) || math.IsInf(p.Dt, 0) {
		return fmt.Errorf("%w: dt=%g", ErrInvalidTime, p.Dt)
	}
	if !(p.T > 0) || math.IsInf(p.T, 0) {
		return fmt.Errorf("%w: T=%g", ErrInvalidTime, p.T)
	}
	if p.SaveInterval <= 0 {
		return fmt.Errorf("%w: save interval=%d", ErrInvalidTime, p.SaveInterval)
	}
	return nil
}

// Steps returns floor(T/dt).
func (p TimeParams) Steps() int { return int(p.T / p.Dt) }

// Saves returns the size of the snapshot buffer, floor(steps/interval)+1.
func (p TimeParams) Saves() int { return p.Steps()/p.SaveInterval + 1 }

// Snapshot is one saved state in physical space, each field Ny x Nx.
type Snapshot struct {
	Index int     // Position in the buffer
	Step  int     // Time-step index the state belongs to
	Time  float64 // Simulation time
	Saved bool    // False until the time loop reaches Step

	Q, P, U, V *mat.Dense
}

// Fields returns q, p, u, v in that order.
func (s Snapshot) Fields() [4]*mat.Dense { return [4]*mat.Dense{s.Q, s.P, s.U, s.V} }

// Progress is sent FROM the time loop to an optional observer every time a
// snapshot is saved.
type Progress struct {
	Index     int     `json:"index"`
	Step      int     `json:"step"`
	Time      float64 `json:"time"`
	Energy    float64 `json:"energy"`
	Enstrophy float64 `json:"enstrophy"`
	Saves     int     `json:"saves"`
}

// NonlinearTerm evaluates the explicit advective term from the spectral state.
type NonlinearTerm interface {
	Jacobian(q, p, u, v *spectral.Field) *spectral.Field
}

// StepError reports the step at which a run was aborted.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%g): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
