package suite

import "fmt"

// Warning flags a suite that loads but likely misbehaves at run time.
type Warning struct {
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return w.Scope + ": " + w.Message
}

// Lint reports before_all hooks that change the page. Every case navigates
// to the visit path before its hooks run, so such changes reach only the
// first case of the scope.
func Lint(f *File) []Warning {
	var out []Warning
	lintContext(&f.ContextSpec, f.Name, &out)
	return out
}

func lintContext(spec *ContextSpec, path string, out *[]Warning) {
	for i, st := range spec.BeforeAll {
		if action := pageAction(st); action != "" {
			*out = append(*out, Warning{
				Scope:   path + ": before_all",
				Message: fmt.Sprintf("step %d (%s) changes the page, but only the first case sees it; move it to before", i+1, action),
			})
		}
	}
	for i := range spec.Contexts {
		child := &spec.Contexts[i]
		lintContext(child, path+" > "+child.Name, out)
	}
}

// pageAction names the page-changing action of st, or "" for steps that
// only observe.
func pageAction(st StepSpec) string {
	switch {
	case st.Navigate != "":
		return "navigate"
	case st.Click != nil:
		return "click"
	case st.Type != nil:
		return "type"
	case st.MouseDown != nil:
		return "mousedown"
	case st.MouseUp != nil:
		return "mouseup"
	case st.KeyPress != nil:
		return "keypress"
	}
	return ""
}
