// Package pipeline runs a sequence of image operations described in YAML.
//
// A pipeline document looks like:
//
//	name: binarize
//	steps:
//	  - op: cvtColor
//	    params: {code: RGBA2GRAY}
//	  - op: gaussianBlur
//	    params: {ksize: 5, sigmaX: 1.2}
//	  - op: threshold
//	    params: {thresh: 0, maxval: 255, type: BINARY, flags: [OTSU]}
//
// Constant names are looked up in the cv constant tables, with or without
// their family prefix.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cvbridge/cv"
)

var (
	ErrUnknownOp     = errors.New("pipeline: unknown operation")
	ErrInvalidParams = errors.New("pipeline: invalid parameters")
)

// Pipeline is a named list of steps.
type Pipeline struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one operation. Params are decoded according to Op.
type Step struct {
	Op     string    `yaml:"op"`
	Params yaml.Node `yaml:"params"`
}

// StepError reports which step of a run failed.
type StepError struct {
	Index int
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline: step %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Load reads and validates a pipeline file.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a pipeline document. Unknown keys are errors.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("pipeline: parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every step's operation, parameters and constant names
// without touching any image.
func (p *Pipeline) Validate() error {
	_, err := p.compile()
	return err
}

func (p *Pipeline) compile() ([]stage, error) {
	var errs []error
	stages := make([]stage, 0, len(p.Steps))
	for i := range p.Steps {
		st, err := p.Steps[i].compile()
		if err != nil {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i, p.Steps[i].Op, err))
			continue
		}
		stages = append(stages, st)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return stages, nil
}

// Run applies the steps to src and returns a new buffer owned by the
// caller. src itself is never modified or released. Intermediate buffers
// are released as soon as the next step has consumed them, and on every
// error path. ctx is checked before each step.
func (p *Pipeline) Run(ctx context.Context, src *cv.Mat) (*cv.Mat, error) {
	stages, err := p.compile()
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, cv.ErrNilMat
	}
	rt := src.Runtime()
	if err := rt.Check(src); err != nil {
		return nil, err
	}

	// Kernels and other per-run helpers.
	scope := rt.NewScope()
	defer scope.Close()

	logger := rt.Logger().With(zap.String("pipeline", p.Name))
	cur := src
	drop := func() {
		if cur != src {
			rt.SafeRelease(cur)
		}
	}
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			drop()
			return nil, err
		}
		next, err := st.run(scope, cur)
		drop()
		if err != nil {
			return nil, &StepError{Index: i, Op: st.op, Err: err}
		}
		logger.Debug("Pipeline step completed",
			zap.Int("step", i),
			zap.String("op", st.op),
			zap.Stringer("result", next))
		cur = next
	}
	if cur == src {
		return src.Clone()
	}
	return cur, nil
}
