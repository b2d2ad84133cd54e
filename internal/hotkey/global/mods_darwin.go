package global

import (
	xhotkey "golang.design/x/hotkey"

	"cryptick/internal/hotkey"
)

var modCodes = map[string]xhotkey.Modifier{
	hotkey.ModCtrl:  xhotkey.ModCtrl,
	hotkey.ModAlt:   xhotkey.ModOption,
	hotkey.ModShift: xhotkey.ModShift,
	hotkey.ModWin:   xhotkey.ModCmd,
}
