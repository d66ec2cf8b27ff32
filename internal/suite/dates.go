package suite

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// DateLayout matches how browsers print Date.toDateString().
const DateLayout = "Mon Jan 02 2006"

// Expander renders the date helpers available in suite strings:
//
//	{{ today }}  {{ tomorrow }}  {{ yesterday }}  {{ days -3 }}
type Expander struct {
	now time.Time
}

// NewExpander creates an expander anchored at now.
func NewExpander(now time.Time) *Expander {
	return &Expander{now: now}
}

func (e *Expander) funcs() template.FuncMap {
	day := func(offset int) string {
		return e.now.AddDate(0, 0, offset).Format(DateLayout)
	}
	return template.FuncMap{
		"today":     func() string { return day(0) },
		"tomorrow":  func() string { return day(1) },
		"yesterday": func() string { return day(-1) },
		"days":      day,
	}
}

// Expand renders s. Strings without template actions are returned as is.
func (e *Expander) Expand(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	tmpl, err := template.New("step").Option("missingkey=error").Funcs(e.funcs()).Parse(s)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", s, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, nil); err != nil {
		return "", fmt.Errorf("template %q: %w", s, err)
	}
	return b.String(), nil
}
