package global

import (
	xhotkey "golang.design/x/hotkey"

	"cryptick/internal/hotkey"
)

// X11 maps Alt to Mod1 and Super to Mod4 on common layouts.
var modCodes = map[string]xhotkey.Modifier{
	hotkey.ModCtrl:  xhotkey.ModCtrl,
	hotkey.ModAlt:   xhotkey.Mod1,
	hotkey.ModShift: xhotkey.ModShift,
	hotkey.ModWin:   xhotkey.Mod4,
}
