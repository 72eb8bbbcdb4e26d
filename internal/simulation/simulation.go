// Package simulation drives the IMEX time loop of the barotropic vorticity
// equation and records snapshots of the flow.
package simulation

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/MariosKokmo/go-qg/internal/forcing"
	"github.com/MariosKokmo/go-qg/internal/grid"
	"github.com/MariosKokmo/go-qg/internal/initial"
	"github.com/MariosKokmo/go-qg/internal/operators"
	"github.com/MariosKokmo/go-qg/internal/spectral"
	"github.com/MariosKokmo/go-qg/internal/timemarch"
)

// Components are the collaborators of a run. Forcing may be nil, in which
// case the forcing term is skipped altogether.
type Components struct {
	Grid        *grid.Grid
	Derivatives *spectral.Derivatives
	Transform   *spectral.Transform
	Linear      timemarch.Linear
	Nonlinear   NonlinearTerm
	Forcing     forcing.Forcing
}

// Simulation holds the running spectral state and the snapshot buffer. It is
// owned by a single goroutine: steps are strictly sequential.
type Simulation struct {
	c      Components
	params TimeParams
	steps  int
	t0     float64

	// Spectral state after the last completed step.
	state operators.State
	// Mean-mode velocity captured from the initial condition.
	background operators.Background

	// Current and previous explicit evaluations for AB2.
	jacobians timemarch.History
	forcings  timemarch.History

	iter      int // iterations completed
	snapshots []Snapshot

	// Optional observer, sent to without blocking.
	updates chan<- Progress
}

// New prepares a run from the initial spectral state ic. The zero-th snapshot
// is ic itself. updates may be nil.
func New(c Components, ic operators.State, params TimeParams, updates chan<- Progress) (*Simulation, error) {
	if c.Grid == nil || c.Derivatives == nil || c.Transform == nil || c.Linear == nil || c.Nonlinear == nil {
		return nil, errors.New("simulation: missing component")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if ic.Q == nil || ic.U == nil || ic.V == nil {
		return nil, errors.New("simulation: incomplete initial condition")
	}
	if ic.Q.Rows != c.Derivatives.Ny || ic.Q.Cols != c.Derivatives.Dk {
		return nil, fmt.Errorf("simulation: initial condition is %dx%d, want %dx%d",
			ic.Q.Rows, ic.Q.Cols, c.Derivatives.Ny, c.Derivatives.Dk)
	}

	sim := &Simulation{
		c:       c,
		params:  params,
		steps:   params.Steps(),
		updates: updates,
	}

	sim.state = operators.State{Q: ic.Q.Clone(), U: ic.U.Clone(), V: ic.V.Clone()}
	if ic.P != nil {
		sim.state.P = ic.P.Clone()
	} else {
		sim.state.P = operators.Invert(c.Derivatives, sim.state.Q).P
	}
	sim.background = operators.BackgroundOf(sim.state)

	// Allocate the snapshot buffer up front; slot 0 is the initial condition.
	nSaves := params.Saves()
	sim.snapshots = make([]Snapshot, nSaves)
	for k := range sim.snapshots {
		step := k * params.SaveInterval
		sim.snapshots[k] = Snapshot{
			Index: k,
			Step:  step,
			Time:  sim.t0 + float64(step)*params.Dt,
			Q:     mat.NewDense(c.Grid.Ny, c.Grid.Nx, nil),
			P:     mat.NewDense(c.Grid.Ny, c.Grid.Nx, nil),
			U:     mat.NewDense(c.Grid.Ny, c.Grid.Nx, nil),
			V:     mat.NewDense(c.Grid.Ny, c.Grid.Nx, nil),
		}
	}
	sim.record(0, sim.state)

	log.WithFields(log.Fields{
		"steps":         sim.steps,
		"dt":            params.Dt,
		"save_interval": params.SaveInterval,
		"snapshots":     nSaves,
		"forcing":       c.Forcing != nil,
	}).Info("simulation initialized")
	return sim, nil
}

// Run advances the state through steps-1 iterations, the zero-th state being
// the initial condition. The loop has no convergence check and no early
// exit; ctx only lets a caller abandon a run between steps, in which case
// the snapshots saved so far remain valid.
func (s *Simulation) Run(ctx context.Context) error {
	for s.iter < s.steps-1 {
		select {
		case <-ctx.Done():
			log.WithField("step", s.iter).Warn("simulation cancelled")
			return ctx.Err()
		default:
		}
		if err := s.advance(); err != nil {
			return err
		}
	}
	log.WithField("iterations", s.iter).Info("simulation finished")
	return nil
}

// advance performs one IMEX step from s.state.
func (s *Simulation) advance() error {
	it := s.iter
	dt := s.params.Dt
	t := s.t0 + float64(it)*dt
	q := s.state.Q

	// Explicit terms: bootstrap with backward Euler, then AB2.
	s.jacobians.Push(s.c.Nonlinear.Jacobian(s.state.Q, s.state.P, s.state.U, s.state.V))
	source := s.jacobians.Contribution(dt)

	// Linear term: Crank-Nicolson.
	explicit, implicit := timemarch.CN2(s.c.Linear, q, dt)

	// numerator = q + 0.5*dt*L*q + N [+ F]
	numerator := q.Clone()
	add(numerator, explicit)
	add(numerator, source)
	if s.c.Forcing != nil {
		s.forcings.Push(s.c.Forcing.Evaluate(t))
		add(numerator, s.forcings.Contribution(dt))
	}

	next := timemarch.Solve(numerator, implicit)

	s.state = operators.Invert(s.c.Derivatives, next)
	s.background.Restore(s.state)
	s.iter++

	if s.iter%s.params.SaveInterval == 0 {
		idx := s.iter / s.params.SaveInterval
		if s.params.CheckFinite && !next.IsFinite() {
			return &StepError{Step: s.iter, Time: s.t0 + float64(s.iter)*dt, Err: ErrNonFinite}
		}
		s.record(idx, s.state)
	}
	return nil
}

// record stores st in physical space at buffer position idx and notifies the
// observer, if any.
func (s *Simulation) record(idx int, st operators.State) {
	if idx >= len(s.snapshots) {
		return
	}
	snap := &s.snapshots[idx]
	tr := s.c.Transform
	snap.Q.Copy(tr.Inverse(st.Q))
	snap.P.Copy(tr.Inverse(st.P))
	snap.U.Copy(tr.Inverse(st.U))
	snap.V.Copy(tr.Inverse(st.V))
	snap.Saved = true

	p := Progress{
		Index:     idx,
		Step:      snap.Step,
		Time:      snap.Time,
		Energy:    initial.KineticEnergy(s.c.Derivatives, st.Q),
		Enstrophy: initial.Enstrophy(st.Q),
		Saves:     len(s.snapshots),
	}
	log.WithFields(log.Fields{
		"index":  p.Index,
		"step":   p.Step,
		"time":   p.Time,
		"energy": p.Energy,
	}).Debug("snapshot saved")

	if s.updates == nil {
		return
	}
	select {
	case s.updates <- p:
	default:
		log.Debug("update channel full, skipping progress message")
	}
}

func add(dst, src *spectral.Field) {
	for k := range dst.Data {
		dst.Data[k] += src.Data[k]
	}
}

// Snapshots returns the snapshot buffer. Slots the loop has not reached yet
// have Saved == false and zero fields.
func (s *Simulation) Snapshots() []Snapshot { return s.snapshots }

// State returns the spectral state after the last completed step.
func (s *Simulation) State() operators.State { return s.state }

// Background returns the fixed mean-mode velocity.
func (s *Simulation) Background() operators.Background { return s.background }

// Steps returns floor(T/dt).
func (s *Simulation) Steps() int { return s.steps }

// Iterations returns the number of completed time steps.
func (s *Simulation) Iterations() int { return s.iter }
