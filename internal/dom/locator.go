package dom

import (
	"fmt"
	"strconv"

	"github.com/andybalholm/cascadia"
)

// Mode selects how a Locator is matched against a snapshot.
type Mode int

const (
	// ModeCSS matches elements with a CSS selector.
	ModeCSS Mode = iota + 1
	// ModeText matches elements whose rendered text contains a substring.
	ModeText
)

// String returns the mode name used in step descriptions and reports.
func (m Mode) String() string {
	switch m {
	case ModeCSS:
		return "css"
	case ModeText:
		return "text"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Locator is a declarative description of which elements to target.
//
// Filter only applies to text mode: when set, a candidate element must also
// match the CSS selector in Filter (cy.contains("button", "Save")).
type Locator struct {
	Mode     Mode
	Selector string
	Filter   string
}

// CSS returns a locator matching the given CSS selector.
func CSS(selector string) Locator {
	return Locator{Mode: ModeCSS, Selector: selector}
}

// Text returns a locator matching elements that render the given text.
func Text(text string) Locator {
	return Locator{Mode: ModeText, Selector: text}
}

// Matching restricts a text locator to elements matching the CSS filter.
func (l Locator) Matching(filter string) Locator {
	l.Filter = filter
	return l
}

// IsZero reports whether the locator was left unset.
func (l Locator) IsZero() bool {
	return l.Mode == 0 && l.Selector == "" && l.Filter == ""
}

// String renders the locator for logs and failure messages.
func (l Locator) String() string {
	switch {
	case l.Mode == ModeText && l.Filter != "":
		return fmt.Sprintf("%s containing %s", l.Filter, strconv.Quote(l.Selector))
	case l.Mode == ModeText:
		return "text " + strconv.Quote(l.Selector)
	default:
		return l.Selector
	}
}

// Validate checks the locator is well formed and its selectors compile.
func (l Locator) Validate() error {
	switch l.Mode {
	case ModeCSS:
		if l.Selector == "" {
			return fmt.Errorf("css locator requires a selector")
		}
		if l.Filter != "" {
			return fmt.Errorf("css locator %q cannot carry a filter", l.Selector)
		}
		if _, err := compile(l.Selector); err != nil {
			return err
		}
	case ModeText:
		if NormalizeText(l.Selector) == "" {
			return fmt.Errorf("text locator requires text")
		}
		if l.Filter != "" {
			if _, err := compile(l.Filter); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown locator mode %d", int(l.Mode))
	}
	return nil
}

// compile parses a selector group, wrapping failures as SelectorError.
func compile(selector string) (cascadia.Selector, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &SelectorError{Selector: selector, Err: err}
	}
	return m, nil
}
