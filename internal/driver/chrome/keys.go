package chrome

import (
	"fmt"
	"unicode/utf8"

	"github.com/chromedp/chromedp/kb"
)

// namedKeys maps driver key names to the key codes chromedp.KeyEvent sends.
var namedKeys = map[string]string{
	"Enter":      kb.Enter,
	"Escape":     kb.Escape,
	"Tab":        kb.Tab,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"Home":       kb.Home,
	"End":        kb.End,
	"PageUp":     kb.PageUp,
	"PageDown":   kb.PageDown,
	"Space":      " ",
}

// keyCode returns what to send for key: a named key's code or the single
// rune itself.
func keyCode(key string) (string, error) {
	if code, ok := namedKeys[key]; ok {
		return code, nil
	}
	if utf8.RuneCountInString(key) == 1 {
		return key, nil
	}
	return "", fmt.Errorf("no key code for %q", key)
}
