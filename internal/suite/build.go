package suite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/expect"
	"github.com/roach88/uispec/internal/runner"
)

// Build converts a parsed file into a runnable suite, expanding date
// templates with x.
func Build(f *File, path string, x *Expander) (*runner.Suite, error) {
	b := &builder{x: x}
	s := &runner.Suite{File: path}

	visit, err := x.Expand(f.Visit)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "visit: " + err.Error()}
	}
	s.Visit = visit

	ctx, err := b.context(&f.ContextSpec, f.Name)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	s.Context = *ctx

	if err := s.Validate(); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	return s, nil
}

type builder struct {
	x *Expander
}

func (b *builder) context(spec *ContextSpec, path string) (*runner.Context, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%s: name is required", path)
	}
	c := &runner.Context{Name: spec.Name}

	if len(spec.BeforeAll) > 0 {
		steps, err := b.steps(spec.BeforeAll, path+": before_all")
		if err != nil {
			return nil, err
		}
		c.BeforeAll = []runner.Hook{{Name: "before_all", Steps: steps}}
	}
	if len(spec.Before) > 0 {
		steps, err := b.steps(spec.Before, path+": before")
		if err != nil {
			return nil, err
		}
		c.Before = []runner.Hook{{Name: "before", Steps: steps}}
	}

	for i, cs := range spec.Cases {
		if cs.Name == "" {
			return nil, fmt.Errorf("%s: case %d: name is required", path, i+1)
		}
		steps, err := b.steps(cs.Steps, path+" > "+cs.Name)
		if err != nil {
			return nil, err
		}
		c.Cases = append(c.Cases, runner.Case{Name: cs.Name, Steps: steps})
	}

	for i := range spec.Contexts {
		child := &spec.Contexts[i]
		childPath := fmt.Sprintf("%s > context %d", path, i+1)
		if child.Name != "" {
			childPath = path + " > " + child.Name
		}
		cc, err := b.context(child, childPath)
		if err != nil {
			return nil, err
		}
		c.Contexts = append(c.Contexts, cc)
	}
	return c, nil
}

func (b *builder) steps(specs []StepSpec, path string) ([]runner.Step, error) {
	var out []runner.Step
	for i, spec := range specs {
		steps, err := b.step(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: step %d: %w", path, i+1, err)
		}
		out = append(out, steps...)
	}
	return out, nil
}

// step converts one spec. A click with times > 1 expands to repeated
// clicks, each resolving the element afresh.
func (b *builder) step(spec StepSpec) ([]runner.Step, error) {
	keys := spec.keys()
	switch len(keys) {
	case 0:
		return nil, errors.New("empty step")
	case 1:
	default:
		return nil, fmt.Errorf("step sets %s; exactly one is allowed", strings.Join(keys, ", "))
	}

	if spec.Navigate != "" {
		p, err := b.x.Expand(spec.Navigate)
		if err != nil {
			return nil, err
		}
		return []runner.Step{runner.Navigate(p)}, nil
	}
	if spec.Wait != 0 {
		if spec.Wait < 0 {
			return nil, fmt.Errorf("wait must be positive, got %d", spec.Wait)
		}
		return []runner.Step{runner.Wait(time.Duration(spec.Wait) * time.Millisecond)}, nil
	}

	var (
		t    *Target
		st   runner.Step
		kind = keys[0]
	)
	switch kind {
	case "click":
		t, st = spec.Click, runner.Step{Kind: runner.StepAct, Action: driver.Click()}
	case "mousedown":
		t, st = spec.MouseDown, runner.Step{Kind: runner.StepAct, Action: driver.MouseDown()}
	case "mouseup":
		t, st = spec.MouseUp, runner.Step{Kind: runner.StepAct, Action: driver.MouseUp()}
	case "type":
		t = spec.Type
		input, err := b.x.Expand(t.Input)
		if err != nil {
			return nil, err
		}
		st = runner.Step{Kind: runner.StepAct, Action: driver.Type(input)}
	case "keypress":
		t, st = spec.KeyPress, runner.Step{Kind: runner.StepAct, Action: driver.Press(spec.KeyPress.Key)}
	case "resolve":
		t, st = spec.Resolve, runner.Step{Kind: runner.StepResolve}
	case "assert":
		t = spec.Assert
		exp, err := b.expectation(t)
		if err != nil {
			return nil, err
		}
		st = runner.Step{Kind: runner.StepAssert, Expect: exp}
	}

	if err := t.checkFields(kind); err != nil {
		return nil, err
	}
	loc, err := b.locator(t)
	if err != nil {
		return nil, err
	}
	st.Locator = loc
	st.Force = t.Force
	st.Timeout = time.Duration(t.TimeoutMs) * time.Millisecond
	st.Interval = time.Duration(t.IntervalMs) * time.Millisecond

	times := 1
	if t.Times > 1 {
		times = t.Times
	}
	out := make([]runner.Step, times)
	for i := range out {
		out[i] = st
	}
	return out, nil
}

func (b *builder) locator(t *Target) (dom.Locator, error) {
	if t.Text != "" {
		text, err := b.x.Expand(t.Text)
		if err != nil {
			return dom.Locator{}, err
		}
		loc := dom.Text(text)
		if t.CSS != "" {
			loc = loc.Matching(t.CSS)
		}
		return loc, nil
	}
	if t.CSS == "" {
		return dom.Locator{}, errors.New("target needs css or text")
	}
	return dom.CSS(t.CSS), nil
}

func (b *builder) expectation(t *Target) (expect.Expectation, error) {
	set := 0
	for _, on := range []bool{t.Contains != "", t.NotContains != "", t.Exists != nil} {
		if on {
			set++
		}
	}
	if set > 1 {
		return expect.Expectation{}, errors.New("assert takes one of contains, not_contains or exists")
	}

	switch {
	case t.Contains != "":
		text, err := b.x.Expand(t.Contains)
		return expect.Contain(text), err
	case t.NotContains != "":
		text, err := b.x.Expand(t.NotContains)
		return expect.NotContain(text), err
	case t.Exists != nil && !*t.Exists:
		return expect.NotExist(), nil
	default:
		return expect.Exist(), nil
	}
}

// keys lists the step fields that are set.
func (s StepSpec) keys() []string {
	var keys []string
	add := func(on bool, key string) {
		if on {
			keys = append(keys, key)
		}
	}
	add(s.Navigate != "", "navigate")
	add(s.Click != nil, "click")
	add(s.Type != nil, "type")
	add(s.MouseDown != nil, "mousedown")
	add(s.MouseUp != nil, "mouseup")
	add(s.KeyPress != nil, "keypress")
	add(s.Resolve != nil, "resolve")
	add(s.Assert != nil, "assert")
	add(s.Wait != 0, "wait")
	return keys
}

// checkFields rejects payload fields that do not belong to the step kind.
func (t *Target) checkFields(kind string) error {
	misplaced := func(field string) error {
		return fmt.Errorf("%s does not take %s", kind, field)
	}
	if t.Input != "" && kind != "type" {
		return misplaced("input")
	}
	if kind == "type" && t.Input == "" {
		return errors.New("type requires input")
	}
	if t.Key != "" && kind != "keypress" {
		return misplaced("key")
	}
	if kind != "assert" && (t.Contains != "" || t.NotContains != "" || t.Exists != nil) {
		return misplaced("contains, not_contains or exists")
	}
	if t.Force && (kind == "assert" || kind == "resolve") {
		return misplaced("force")
	}
	if t.Times != 0 && kind != "click" {
		return misplaced("times")
	}
	if t.Times < 0 || t.TimeoutMs < 0 || t.IntervalMs < 0 {
		return errors.New("times, timeout_ms and interval_ms must not be negative")
	}
	return nil
}
