// Package fatal reports errors that end the process where the user can see
// them. The overlay has no console on Windows, so a message on stderr alone
// would go unnoticed.
package fatal

import (
	"fmt"
	"io"
)

const Title = "CrypTick"

// Show writes err to w and, where the platform has one, raises an error
// dialog. It blocks until the dialog is dismissed.
func Show(w io.Writer, err error) {
	if err == nil {
		return
	}
	msg := Message(err)
	if w != nil {
		fmt.Fprintln(w, msg)
	}
	dialog(Title, msg)
}

// Message is the text shown for err.
func Message(err error) string {
	return fmt.Sprintf("%s stopped: %v", Title, err)
}
