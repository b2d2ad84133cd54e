//go:build !windows

package fatal

// dialog is a no-op: on other platforms the overlay is started from a
// terminal or a service manager that keeps stderr.
func dialog(title, msg string) {}
