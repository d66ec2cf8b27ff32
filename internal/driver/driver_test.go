package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uispec/internal/dom"
)

func TestAction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr string
	}{
		{"click", Click(), ""},
		{"mousedown", MouseDown(), ""},
		{"mouseup", MouseUp(), ""},
		{"type", Type("My event"), ""},
		{"type empty", Type(""), "type requires text"},
		{"press named", Press("Enter"), ""},
		{"press rune", Press("é"), ""},
		{"press unknown", Press("Hyper"), `unknown key "Hyper"`},
		{"click with text", Action{Kind: ActionClick, Text: "x"}, "takes no text"},
		{"unknown kind", Action{Kind: "hover"}, `unknown action kind "hover"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAction_StringAndEvents(t *testing.T) {
	assert.Equal(t, "click", Click().String())
	assert.Equal(t, `type "My event"`, Type("My event").String())
	assert.Equal(t, "keypress Enter", Press("Enter").String())

	assert.Equal(t, []string{"mousedown", "mouseup", "click"}, Click().Events())
	assert.Equal(t, []string{"mousedown"}, MouseDown().Events())
}

func TestCheckActionable(t *testing.T) {
	base := dom.ElementHandle{Tag: "button", Visible: true, Attrs: map[string]string{"class": "x"}}

	assert.NoError(t, CheckActionable(base, Click()))

	hidden := base
	hidden.Visible = false
	err := CheckActionable(hidden, Click())
	var na *NotActionableError
	require.ErrorAs(t, err, &na)
	assert.Equal(t, `<button class="x"> is not actionable: element is not visible`, err.Error())

	covered := base
	covered.Obstructed = true
	assert.ErrorContains(t, CheckActionable(covered, Click()), "covered")

	disabled := base
	disabled.Attrs = map[string]string{"disabled": ""}
	assert.ErrorContains(t, CheckActionable(disabled, Click()), "disabled")
	assert.NoError(t, CheckActionable(disabled, MouseDown()))

	readonly := dom.ElementHandle{Tag: "input", Visible: true, Attrs: map[string]string{"readonly": ""}}
	assert.ErrorContains(t, CheckActionable(readonly, Type("a")), "readonly")
	assert.NoError(t, CheckActionable(readonly, Click()))
}
