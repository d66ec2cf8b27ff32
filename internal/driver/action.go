package driver

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ActionKind names a synthetic input action.
type ActionKind string

const (
	ActionClick     ActionKind = "click"
	ActionType      ActionKind = "type"
	ActionMouseDown ActionKind = "mousedown"
	ActionMouseUp   ActionKind = "mouseup"
	ActionKeyPress  ActionKind = "keypress"
)

// Action is an input to deliver to an element.
type Action struct {
	Kind ActionKind `json:"kind"`
	// Text is the text to type for ActionType.
	Text string `json:"text,omitempty"`
	// Key is the key name for ActionKeyPress, e.g. "Enter" or "a".
	Key string `json:"key,omitempty"`
}

// Click returns a click action: mousedown, mouseup and click in sequence.
func Click() Action { return Action{Kind: ActionClick} }

// Type returns an action that focuses the element and types text into it.
func Type(text string) Action { return Action{Kind: ActionType, Text: text} }

// MouseDown returns a mousedown action.
func MouseDown() Action { return Action{Kind: ActionMouseDown} }

// MouseUp returns a mouseup action.
func MouseUp() Action { return Action{Kind: ActionMouseUp} }

// Press returns a keypress action for key.
func Press(key string) Action { return Action{Kind: ActionKeyPress, Key: key} }

// NamedKeys lists the non-printable keys Press accepts.
var NamedKeys = map[string]bool{
	"Enter":      true,
	"Escape":     true,
	"Tab":        true,
	"Backspace":  true,
	"Delete":     true,
	"ArrowUp":    true,
	"ArrowDown":  true,
	"ArrowLeft":  true,
	"ArrowRight": true,
	"Home":       true,
	"End":        true,
	"PageUp":     true,
	"PageDown":   true,
	"Space":      true,
}

// Validate checks the action carries the payload its kind needs.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionClick, ActionMouseDown, ActionMouseUp:
		if a.Text != "" || a.Key != "" {
			return fmt.Errorf("%s takes no text or key", a.Kind)
		}
	case ActionType:
		if a.Text == "" {
			return fmt.Errorf("type requires text")
		}
	case ActionKeyPress:
		if !NamedKeys[a.Key] && utf8.RuneCountInString(a.Key) != 1 {
			return fmt.Errorf("keypress: unknown key %q", a.Key)
		}
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

// String renders the action for step descriptions.
func (a Action) String() string {
	switch a.Kind {
	case ActionType:
		return "type " + strconv.Quote(a.Text)
	case ActionKeyPress:
		return "keypress " + a.Key
	default:
		return string(a.Kind)
	}
}

// Events returns the DOM event names the action fires, in order.
func (a Action) Events() []string {
	switch a.Kind {
	case ActionClick:
		return []string{"mousedown", "mouseup", "click"}
	case ActionType:
		return []string{"focus", "input"}
	case ActionKeyPress:
		return []string{"keydown", "keypress", "keyup"}
	default:
		return []string{string(a.Kind)}
	}
}
