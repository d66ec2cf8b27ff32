package suite

// File is the on-disk form of a suite, shared by YAML and CUE.
type File struct {
	ContextSpec `yaml:",inline"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Visit is the path every case starts from (default "/").
	Visit string `yaml:"visit,omitempty" json:"visit,omitempty"`
}

// ContextSpec groups cases under shared setup steps.
type ContextSpec struct {
	Name string `yaml:"name" json:"name"`

	// BeforeAll runs once for the scope, before its first case, after that
	// case has navigated to the visit path. Later cases navigate afresh, so
	// page changes made here are gone by the second case; use Before for
	// page setup and keep BeforeAll to checks. Lint flags the difference.
	BeforeAll []StepSpec `yaml:"before_all,omitempty" json:"before_all,omitempty"`

	// Before runs before every case in scope.
	Before []StepSpec `yaml:"before,omitempty" json:"before,omitempty"`

	Cases    []CaseSpec    `yaml:"cases,omitempty" json:"cases,omitempty"`
	Contexts []ContextSpec `yaml:"contexts,omitempty" json:"contexts,omitempty"`
}

// CaseSpec is one test case.
type CaseSpec struct {
	Name  string     `yaml:"name" json:"name"`
	Steps []StepSpec `yaml:"steps" json:"steps"`
}

// StepSpec is one step. Exactly one field must be set.
type StepSpec struct {
	Navigate  string  `yaml:"navigate,omitempty" json:"navigate,omitempty"`
	Click     *Target `yaml:"click,omitempty" json:"click,omitempty"`
	Type      *Target `yaml:"type,omitempty" json:"type,omitempty"`
	MouseDown *Target `yaml:"mousedown,omitempty" json:"mousedown,omitempty"`
	MouseUp   *Target `yaml:"mouseup,omitempty" json:"mouseup,omitempty"`
	KeyPress  *Target `yaml:"keypress,omitempty" json:"keypress,omitempty"`
	Resolve   *Target `yaml:"resolve,omitempty" json:"resolve,omitempty"`
	Assert    *Target `yaml:"assert,omitempty" json:"assert,omitempty"`

	// Wait pauses for the given number of milliseconds.
	Wait int `yaml:"wait,omitempty" json:"wait,omitempty"`
}

// Target names the element a step works on, plus the step's payload and
// options.
//
// The locator is css alone, text alone, or both: text with css matches
// elements selected by css that render text.
type Target struct {
	CSS  string `yaml:"css,omitempty" json:"css,omitempty"`
	Text string `yaml:"text,omitempty" json:"text,omitempty"`

	// Input is the text to type (type steps).
	Input string `yaml:"input,omitempty" json:"input,omitempty"`
	// Key is the key to press (keypress steps).
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	// Assertion relations. With none set an assert checks existence.
	Contains    string `yaml:"contains,omitempty" json:"contains,omitempty"`
	NotContains string `yaml:"not_contains,omitempty" json:"not_contains,omitempty"`
	Exists      *bool  `yaml:"exists,omitempty" json:"exists,omitempty"`

	Force      bool `yaml:"force,omitempty" json:"force,omitempty"`
	Times      int  `yaml:"times,omitempty" json:"times,omitempty"`
	TimeoutMs  int  `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	IntervalMs int  `yaml:"interval_ms,omitempty" json:"interval_ms,omitempty"`
}
