// Package headless is a small pure-Go physics engine for development and
// tests. It understands a subset of the MJCF scene format (hinge and slide
// joints, motor actuators) and integrates with semi-implicit Euler. It has no
// binary or OpenUSD loaders, so it also exercises the capability-dispatch
// failure paths of the loader.
package headless

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Nabla7/mujoco-experiments/pkg/physics"
)

// EngineName is the registry key.
const EngineName = "headless"

const defaultTimestep = 0.002

func init() {
	physics.Register(EngineName, func() (physics.Engine, error) {
		return &Engine{}, nil
	})
}

// Engine loads MJCF XML scenes.
type Engine struct{}

func (e *Engine) Name() string { return EngineName }

func (e *Engine) Capabilities() physics.Capabilities {
	return physics.Capabilities{LoadXML: true}
}

func (e *Engine) LoadXML(path string) (physics.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseMJCF(data)
}

func (e *Engine) LoadBinary(path string) (physics.Model, error) {
	return nil, fmt.Errorf("%w: headless has no binary loader", physics.ErrCapabilityUnsupported)
}

func (e *Engine) LoadUSD(path string) (physics.Model, error) {
	return nil, fmt.Errorf("%w: headless has no USD loader", physics.ErrCapabilityUnsupported)
}

func (e *Engine) ParseSpec(path string) (physics.Spec, error) {
	return nil, fmt.Errorf("%w: headless has no spec parser", physics.ErrCapabilityUnsupported)
}

type mjcfDoc struct {
	XMLName xml.Name `xml:"mujoco"`
	Model   string   `xml:"model,attr"`
	Option  struct {
		Timestep string `xml:"timestep,attr"`
	} `xml:"option"`
	WorldBody mjcfBody `xml:"worldbody"`
	Actuator  struct {
		Motors []mjcfMotor `xml:"motor"`
	} `xml:"actuator"`
}

type mjcfBody struct {
	Name   string      `xml:"name,attr"`
	Joints []mjcfJoint `xml:"joint"`
	Bodies []mjcfBody  `xml:"body"`
}

type mjcfJoint struct {
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Ref     string `xml:"ref,attr"`
	Damping string `xml:"damping,attr"`
	Limited string `xml:"limited,attr"`
	Range   string `xml:"range,attr"`
}

type mjcfMotor struct {
	Name  string `xml:"name,attr"`
	Joint string `xml:"joint,attr"`
	Gear  string `xml:"gear,attr"`
}

type joint struct {
	name     string
	ref      float64
	damping  float64
	limited  bool
	rangeLo  float64
	rangeHi  float64
}

type actuator struct {
	name  string
	joint int
	gear  float64
}

// Model is a compiled headless scene. One degree of freedom per joint.
type Model struct {
	name      string
	timestep  float64
	joints    []joint
	actuators []actuator
}

func parseMJCF(data []byte) (*Model, error) {
	var doc mjcfDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mjcf: %w", err)
	}

	m := &Model{name: doc.Model, timestep: defaultTimestep}
	if v := strings.TrimSpace(doc.Option.Timestep); v != "" {
		ts, err := strconv.ParseFloat(v, 64)
		if err != nil || ts <= 0 {
			return nil, fmt.Errorf("parse mjcf: bad option timestep %q", v)
		}
		m.timestep = ts
	}

	byName := make(map[string]int)
	if err := m.collectJoints(&doc.WorldBody, byName); err != nil {
		return nil, err
	}

	for _, motor := range doc.Actuator.Motors {
		idx, ok := byName[motor.Joint]
		if !ok {
			return nil, fmt.Errorf("parse mjcf: motor %q targets unknown joint %q", motor.Name, motor.Joint)
		}
		gear := 1.0
		if v := strings.TrimSpace(motor.Gear); v != "" {
			// gear may carry six numbers; the first is the scalar gain.
			g, err := strconv.ParseFloat(strings.Fields(v)[0], 64)
			if err != nil {
				return nil, fmt.Errorf("parse mjcf: motor %q has bad gear %q", motor.Name, motor.Gear)
			}
			gear = g
		}
		m.actuators = append(m.actuators, actuator{name: motor.Name, joint: idx, gear: gear})
	}
	return m, nil
}

func (m *Model) collectJoints(body *mjcfBody, byName map[string]int) error {
	for _, j := range body.Joints {
		switch j.Type {
		case "", "hinge", "slide":
		default:
			return fmt.Errorf("parse mjcf: joint %q has unsupported type %q", j.Name, j.Type)
		}
		if j.Name != "" {
			if _, dup := byName[j.Name]; dup {
				return fmt.Errorf("parse mjcf: duplicate joint name %q", j.Name)
			}
			byName[j.Name] = len(m.joints)
		}

		jt := joint{name: j.Name}
		var err error
		if jt.ref, err = parseFloatAttr(j.Ref, 0); err != nil {
			return fmt.Errorf("parse mjcf: joint %q has bad ref %q", j.Name, j.Ref)
		}
		if jt.damping, err = parseFloatAttr(j.Damping, 0); err != nil {
			return fmt.Errorf("parse mjcf: joint %q has bad damping %q", j.Name, j.Damping)
		}
		if j.Limited == "true" {
			fields := strings.Fields(j.Range)
			if len(fields) != 2 {
				return fmt.Errorf("parse mjcf: joint %q is limited but range is %q", j.Name, j.Range)
			}
			lo, errLo := strconv.ParseFloat(fields[0], 64)
			hi, errHi := strconv.ParseFloat(fields[1], 64)
			if errLo != nil || errHi != nil || lo > hi {
				return fmt.Errorf("parse mjcf: joint %q has bad range %q", j.Name, j.Range)
			}
			jt.limited, jt.rangeLo, jt.rangeHi = true, lo, hi
		}
		m.joints = append(m.joints, jt)
	}
	for i := range body.Bodies {
		if err := m.collectJoints(&body.Bodies[i], byName); err != nil {
			return err
		}
	}
	return nil
}

func parseFloatAttr(v string, def float64) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func (m *Model) NQ() int           { return len(m.joints) }
func (m *Model) NV() int           { return len(m.joints) }
func (m *Model) NU() int           { return len(m.actuators) }
func (m *Model) Timestep() float64 { return m.timestep }

func (m *Model) NewState() physics.State {
	s := &simState{model: m}
	s.Reset()
	return s
}

// simState integrates one scene instance. Not safe for concurrent use.
type simState struct {
	model *Model
	qpos  []float64
	qvel  []float64
	ctrl  []float64
	time  float64
	steps int
}

func (s *simState) Time() float64   { return s.time }
func (s *simState) Steps() int      { return s.steps }
func (s *simState) QPos() []float64 { return s.qpos }
func (s *simState) QVel() []float64 { return s.qvel }

func (s *simState) SetCtrl(ctrl []float64) error {
	if len(ctrl) != s.model.NU() {
		return fmt.Errorf("%w: ctrl length %d, model has %d actuators",
			physics.ErrInvalidArgument, len(ctrl), s.model.NU())
	}
	copy(s.ctrl, ctrl)
	return nil
}

func (s *simState) Reset() {
	s.qpos = make([]float64, s.model.NQ())
	s.qvel = make([]float64, s.model.NV())
	s.ctrl = make([]float64, s.model.NU())
	for i, j := range s.model.joints {
		s.qpos[i] = j.ref
	}
	s.time = 0
	s.steps = 0
}

// Forward recomputes derived quantities. The headless state carries none
// beyond the coordinates themselves, so only limit clamping applies.
func (s *simState) Forward() {
	s.clampLimits()
}

// Step applies actuator forces and advances one timestep with semi-implicit
// Euler: velocities first, then positions from the new velocities.
func (s *simState) Step() {
	dt := s.model.timestep

	force := make([]float64, s.model.NV())
	for i, a := range s.model.actuators {
		force[a.joint] += a.gear * s.ctrl[i]
	}
	for i, j := range s.model.joints {
		acc := force[i] - j.damping*s.qvel[i]
		s.qvel[i] += acc * dt
		s.qpos[i] += s.qvel[i] * dt
	}
	s.clampLimits()

	s.time += dt
	s.steps++
}

func (s *simState) clampLimits() {
	for i, j := range s.model.joints {
		if !j.limited {
			continue
		}
		if s.qpos[i] < j.rangeLo {
			s.qpos[i] = j.rangeLo
			if s.qvel[i] < 0 {
				s.qvel[i] = 0
			}
		}
		if s.qpos[i] > j.rangeHi {
			s.qpos[i] = j.rangeHi
			if s.qvel[i] > 0 {
				s.qvel[i] = 0
			}
		}
	}
}
