package global

import (
	xhotkey "golang.design/x/hotkey"

	"cryptick/internal/hotkey"
)

var modCodes = map[string]xhotkey.Modifier{
	hotkey.ModCtrl:  xhotkey.ModCtrl,
	hotkey.ModAlt:   xhotkey.ModAlt,
	hotkey.ModShift: xhotkey.ModShift,
	hotkey.ModWin:   xhotkey.ModWin,
}
