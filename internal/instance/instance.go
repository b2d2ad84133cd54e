// Package instance keeps a second copy of the overlay from starting.
package instance

import "errors"

// ErrAlreadyRunning is returned by Acquire when another instance holds the
// lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// MutexName is the Windows named mutex guarding the overlay.
const MutexName = `Local\CrypTick`
