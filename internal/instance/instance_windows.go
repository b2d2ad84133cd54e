package instance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// Acquire takes the named mutex. dir is unused on Windows.
func Acquire(dir string) (func(), error) {
	name, err := windows.UTF16PtrFromString(MutexName)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateMutex(nil, false, name)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, fmt.Errorf("create mutex [%s]: %w", MutexName, err)
	}
	return func() { _ = windows.CloseHandle(h) }, nil
}
