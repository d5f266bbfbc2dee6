// Package assemble runs assembly plans: ordered lists of template copies and
// placeholder substitutions that build a report from its visuals.
package assemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tracekit/internal/fsys"
	"tracekit/internal/substitute"
)

// Plan is an ordered list of steps. Relative paths resolve against Root.
type Plan struct {
	Root  string `yaml:"-" json:"-"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// Step is either a substitution (Target, Token, Source) or a Copy.
type Step struct {
	Target       string `yaml:"target,omitempty" json:"target,omitempty"`
	Token        string `yaml:"token,omitempty" json:"token,omitempty"`
	Source       string `yaml:"source,omitempty" json:"source,omitempty"`
	Multiplicity string `yaml:"multiplicity,omitempty" json:"multiplicity,omitempty"`
	Copy         *Copy  `yaml:"copy,omitempty" json:"copy,omitempty"`
}

// Copy seeds To with the content of From.
type Copy struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// ErrInvalidPlan is wrapped by every plan validation error.
var ErrInvalidPlan = errors.New("assemble: invalid plan")

// Output returns the file the step writes.
func (s Step) Output() string {
	if s.Copy != nil {
		return s.Copy.To
	}
	return s.Target
}

func (s Step) kind() string {
	if s.Copy != nil {
		return "copy"
	}
	return "substitute"
}

// ParsePlan decodes a plan. ext selects JSON or YAML; when empty the format is
// detected from the content.
func ParsePlan(data []byte, ext string) (*Plan, error) {
	ext = strings.ToLower(ext)
	if ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		ext = ".json"
	}
	var p Plan
	if ext == ".json" {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse plan json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan yaml: %w", err)
	}
	if err := p.Check(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPlan reads a plan file. Its directory becomes the plan root.
func LoadPlan(f fsys.FS, path string) (*Plan, error) {
	data, err := f.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	p, err := ParsePlan(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	p.Root = filepath.Dir(path)
	return p, nil
}

// Check reports the first malformed step.
func (p *Plan) Check() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidPlan)
	}
	for i, s := range p.Steps {
		if s.Copy != nil {
			if s.Target != "" || s.Token != "" || s.Source != "" {
				return fmt.Errorf("%w: step %d: copy steps take only from and to", ErrInvalidPlan, i)
			}
			if s.Copy.From == "" || s.Copy.To == "" {
				return fmt.Errorf("%w: step %d: copy needs from and to", ErrInvalidPlan, i)
			}
			continue
		}
		if s.Target == "" || s.Token == "" || s.Source == "" {
			return fmt.Errorf("%w: step %d: target, token and source are required", ErrInvalidPlan, i)
		}
		if _, err := substitute.ParseMultiplicity(s.Multiplicity); err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidPlan, i, err)
		}
	}
	return nil
}

func (p *Plan) resolve(path string) string {
	if filepath.IsAbs(path) || p.Root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(p.Root, path)
}

// group is the steps that write one output file, in plan order.
type group struct {
	output  string
	indices []int
	reads   map[string]bool
}

// stages groups steps by output and orders the groups so that a group runs
// only after every group producing one of its inputs. Groups in the same
// stage are independent.
func (p *Plan) stages() ([][]*group, error) {
	byOutput := map[string]*group{}
	var order []*group
	for i, s := range p.Steps {
		out := p.resolve(s.Output())
		g, ok := byOutput[out]
		if !ok {
			g = &group{output: out, reads: map[string]bool{}}
			byOutput[out] = g
			order = append(order, g)
		}
		g.indices = append(g.indices, i)
		if s.Copy != nil {
			g.reads[p.resolve(s.Copy.From)] = true
		} else {
			g.reads[p.resolve(s.Source)] = true
		}
	}

	done := map[string]bool{}
	var stages [][]*group
	for len(done) < len(order) {
		var stage []*group
		for _, g := range order {
			if done[g.output] {
				continue
			}
			ready := true
			for in := range g.reads {
				if _, produced := byOutput[in]; produced && in != g.output && !done[in] {
					ready = false
					break
				}
			}
			if ready {
				stage = append(stage, g)
			}
		}
		if len(stage) == 0 {
			return nil, fmt.Errorf("%w: steps depend on each other in a cycle", ErrInvalidPlan)
		}
		for _, g := range stage {
			done[g.output] = true
		}
		stages = append(stages, stage)
	}
	return stages, nil
}
