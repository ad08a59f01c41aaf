// Package sim wraps a compiled physics model in a minimal episodic
// environment: reset, step with frame skip, and a flat observation built from
// the generalized coordinates.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/Nabla7/mujoco-experiments/pkg/physics"
)

// DefaultFrameSkip is how many integration steps one Step call advances.
const DefaultFrameSkip = 10

// Options configures an Env.
type Options struct {
	// FrameSkip is the number of physics steps per environment step.
	// Zero takes DefaultFrameSkip; negative values are rejected.
	FrameSkip int
	// Seed seeds the action sampler. Zero seeds from a fixed default.
	Seed int64
}

// Info is the per-transition diagnostic payload.
type Info struct {
	Time  float64 `json:"time"`
	Steps int     `json:"nstep"`
}

// Result is one environment transition. Reward stays zero and the episode
// never ends on its own; task semantics belong to whoever wraps this.
type Result struct {
	Observation []float64
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

// Env steps a model episodically. Not safe for concurrent use.
type Env struct {
	model     physics.Model
	state     physics.State
	frameSkip int
	rng       *rand.Rand
	needReset bool
}

// New wraps model. The env owns a fresh State.
func New(model physics.Model, opts Options) (*Env, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is required", physics.ErrInvalidArgument)
	}
	if opts.FrameSkip < 0 {
		return nil, fmt.Errorf("%w: frame skip must be >= 1, got %d", physics.ErrInvalidArgument, opts.FrameSkip)
	}
	if opts.FrameSkip == 0 {
		opts.FrameSkip = DefaultFrameSkip
	}
	return &Env{
		model:     model,
		state:     model.NewState(),
		frameSkip: opts.FrameSkip,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		needReset: true,
	}, nil
}

// Model exposes the wrapped model.
func (e *Env) Model() physics.Model { return e.model }

// ObservationSize is len(qpos) + len(qvel).
func (e *Env) ObservationSize() int { return e.model.NQ() + e.model.NV() }

// ActionSize is the model's actuator count.
func (e *Env) ActionSize() int { return e.model.NU() }

// Reset restores the initial configuration and returns the first observation.
func (e *Env) Reset() ([]float64, Info, error) {
	e.state.Reset()
	e.state.Forward()
	e.needReset = false
	return e.observation(), e.info(), nil
}

// Step applies action and advances the simulation by the frame skip. Actions
// are ignored when the model has no actuators; otherwise the length must
// match ActionSize.
func (e *Env) Step(action []float64) (*Result, error) {
	if e.needReset {
		return nil, fmt.Errorf("%w: Step before Reset", physics.ErrInvalidArgument)
	}
	if e.model.NU() > 0 {
		if len(action) != e.model.NU() {
			return nil, fmt.Errorf("%w: action length %d, want %d",
				physics.ErrInvalidArgument, len(action), e.model.NU())
		}
		if err := e.state.SetCtrl(action); err != nil {
			return nil, err
		}
	}

	for i := 0; i < e.frameSkip; i++ {
		e.state.Step()
	}

	return &Result{
		Observation: e.observation(),
		Info:        e.info(),
	}, nil
}

// SampleAction draws a uniform action in [-1, 1) per actuator.
func (e *Env) SampleAction() []float64 {
	action := make([]float64, e.model.NU())
	for i := range action {
		action[i] = e.rng.Float64()*2 - 1
	}
	return action
}

func (e *Env) observation() []float64 {
	qpos := e.state.QPos()
	qvel := e.state.QVel()
	obs := make([]float64, 0, len(qpos)+len(qvel))
	obs = append(obs, qpos...)
	obs = append(obs, qvel...)
	return obs
}

func (e *Env) info() Info {
	return Info{Time: e.state.Time(), Steps: e.state.Steps()}
}
