package runner

import (
	"context"
	"errors"
	"fmt"
)

// Body is a Go-coded hook or case body. It drives the page through the
// session so that every step it runs is polled and recorded.
type Body func(ctx context.Context, s *Session) error

// Hook is setup shared by the Cases in a scope.
type Hook struct {
	Name  string
	Steps []Step
	Body  Body
}

// Case is one independent test.
type Case struct {
	Name  string
	Steps []Step
	Body  Body
}

// Context groups Cases and nested Contexts under shared hooks.
type Context struct {
	Name      string
	BeforeAll []Hook
	Before    []Hook
	Cases     []Case
	Contexts  []*Context
}

// Suite is the root of a test tree.
type Suite struct {
	Context

	// Visit is the path every Case starts from. Empty means "/".
	Visit string

	// File is the suite file the tree was loaded from, if any.
	File string
}

// VisitPath returns the effective visit path.
func (s *Suite) VisitPath() string {
	if s.Visit == "" {
		return "/"
	}
	return s.Visit
}

// Validate checks names are present and every step is well formed.
func (s *Suite) Validate() error {
	if s.Name == "" {
		return errors.New("suite name is required")
	}
	return validateContext(&s.Context, s.Name)
}

func validateContext(c *Context, path string) error {
	for i, h := range c.BeforeAll {
		if err := validateSteps(h.Steps, h.Body, fmt.Sprintf("%s: before_all[%d]", path, i)); err != nil {
			return err
		}
	}
	for i, h := range c.Before {
		if err := validateSteps(h.Steps, h.Body, fmt.Sprintf("%s: before[%d]", path, i)); err != nil {
			return err
		}
	}
	seen := make(map[string]bool)
	for i, tc := range c.Cases {
		if tc.Name == "" {
			return fmt.Errorf("%s: case[%d]: name is required", path, i)
		}
		if seen[tc.Name] {
			return fmt.Errorf("%s: duplicate case name %q", path, tc.Name)
		}
		seen[tc.Name] = true
		if err := validateSteps(tc.Steps, tc.Body, fmt.Sprintf("%s > %s", path, tc.Name)); err != nil {
			return err
		}
	}
	for i, child := range c.Contexts {
		if child == nil {
			return fmt.Errorf("%s: context[%d] is nil", path, i)
		}
		if child.Name == "" {
			return fmt.Errorf("%s: context[%d]: name is required", path, i)
		}
		if err := validateContext(child, path+" > "+child.Name); err != nil {
			return err
		}
	}
	return nil
}

func validateSteps(steps []Step, body Body, path string) error {
	if len(steps) == 0 && body == nil {
		return fmt.Errorf("%s: no steps", path)
	}
	for i, st := range steps {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("%s: step %d: %w", path, i+1, err)
		}
	}
	return nil
}

// CountCases returns the number of Cases in the tree.
func (s *Suite) CountCases() int {
	return countCases(&s.Context)
}

func countCases(c *Context) int {
	n := len(c.Cases)
	for _, child := range c.Contexts {
		n += countCases(child)
	}
	return n
}

// planned is a Case with the chain of scopes enclosing it, outermost first.
type planned struct {
	scopes []*Context
	tc     *Case
}

func (p planned) path() []string {
	names := make([]string, len(p.scopes))
	for i, c := range p.scopes {
		names[i] = c.Name
	}
	return names
}

// plan flattens the tree in execution order.
func plan(s *Suite) []planned {
	var out []planned
	var walk func(c *Context, chain []*Context)
	walk = func(c *Context, chain []*Context) {
		chain = append(chain[:len(chain):len(chain)], c)
		for i := range c.Cases {
			out = append(out, planned{scopes: chain, tc: &c.Cases[i]})
		}
		for _, child := range c.Contexts {
			walk(child, chain)
		}
	}
	walk(&s.Context, nil)
	return out
}
