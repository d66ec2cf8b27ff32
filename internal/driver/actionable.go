package driver

import (
	"fmt"

	"github.com/roach88/uispec/internal/dom"
)

// NotActionableError reports an element that exists but cannot receive
// input: hidden, covered by another element, or disabled.
type NotActionableError struct {
	Element dom.ElementHandle
	Reason  string
}

func (e *NotActionableError) Error() string {
	return fmt.Sprintf("%s is not actionable: %s", e.Element, e.Reason)
}

// CheckActionable applies the preconditions a real user would face before
// acting on h. Force bypasses it.
func CheckActionable(h dom.ElementHandle, a Action) error {
	switch {
	case !h.Visible:
		return &NotActionableError{Element: h, Reason: "element is not visible"}
	case h.Obstructed:
		return &NotActionableError{Element: h, Reason: "element is covered by another element"}
	}
	if _, disabled := h.Attrs["disabled"]; disabled && a.Kind != ActionMouseDown && a.Kind != ActionMouseUp {
		return &NotActionableError{Element: h, Reason: "element is disabled"}
	}
	if _, ro := h.Attrs["readonly"]; ro && a.Kind == ActionType {
		return &NotActionableError{Element: h, Reason: "element is readonly"}
	}
	return nil
}
