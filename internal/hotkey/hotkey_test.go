package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for in, want := range map[string]string{
		"F8":                "f8",
		"ctrl+h":            "ctrl+h",
		"Ctrl + Shift + F9": "ctrl+shift+f9",
		"shift+ctrl+f9":     "ctrl+shift+f9",
		"alt+esc":           "alt+escape",
		"cmd+space":         "win+space",
		"control+option+1":  "ctrl+alt+1",
		"f20":               "f20",
	} {
		c, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, c.String(), in)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("  ")
	assert.ErrorIs(t, err, ErrEmpty)

	for _, in := range []string{"mouse3", "ctrl+mouse4", "ctrl", "ctrl+", "a+b", "f25", "hyper+x"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrUnsupported, in)
	}
}

func TestBindings_SkipsInvalid(t *testing.T) {
	b, errs := Bindings(map[Action]string{ActionCycle: "f8", ActionUnlock: "mouse3"})
	require.Len(t, b, 1)
	assert.Equal(t, ActionCycle, b[0].Action)
	assert.Equal(t, "f8", b[0].Combo.Key)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "unlock hotkey")
}

func TestBindings_OptionalActions(t *testing.T) {
	b, errs := Bindings(map[Action]string{
		ActionCycle:   "f8",
		ActionUnlock:  "ctrl+shift+f8",
		ActionPause:   "ctrl+alt+p",
		ActionRefresh: "",
	})
	require.Empty(t, errs)
	require.Len(t, b, 3)
	assert.Equal(t, ActionPause, b[2].Action)
	assert.Equal(t, "ctrl+alt+p", b[2].Combo.String())

	// Required actions are reported when missing, optional ones are not.
	b, errs = Bindings(map[Action]string{ActionCycle: "f8"})
	require.Len(t, b, 1)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrEmpty)
}

func TestBindings_RejectsDuplicateCombo(t *testing.T) {
	b, errs := Bindings(map[Action]string{
		ActionCycle:   "f8",
		ActionUnlock:  "ctrl+shift+f8",
		ActionRefresh: "F8",
	})
	require.Len(t, b, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "already bound to cycle")
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "cycle", ActionCycle.String())
	assert.Equal(t, "quit", ActionQuit.String())
	assert.Equal(t, "action(42)", Action(42).String())
}
