package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const AppName = "CrypTick"

const (
	StateFileName = "app_state.json"
	LogFileName   = "ticker_debug.log"
	EnvFileName   = ".env"
	LockFileName  = "instance.lock"

	DirPerm  = 0o700
	FilePerm = 0o600
)

// Layout locates every file CrypTick writes. Read-only assets are embedded in
// the binary, so everything here lives under the per-user data directory.
type Layout struct {
	Root string
}

// Resolve returns the layout rooted at override, or at the OS data directory
// when override is empty.
func Resolve(override string) Layout {
	if override != "" {
		return Layout{Root: override}
	}
	return Layout{Root: filepath.Join(baseDir(), AppName)}
}

func baseDir() string {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("APPDATA"); dir != "" {
			return dir
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support")
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share")
	}
}

func (l Layout) StateFile() string { return filepath.Join(l.Root, StateFileName) }
func (l Layout) LogFile() string   { return filepath.Join(l.Root, LogFileName) }
func (l Layout) EnvFile() string   { return filepath.Join(l.Root, EnvFileName) }
func (l Layout) LockFile() string  { return filepath.Join(l.Root, LockFileName) }
func (l Layout) LogoDir() string   { return filepath.Join(l.Root, "cache", "logos") }

// Ensure creates the data and cache directories.
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.Root, DirPerm); err != nil {
		return err
	}
	return os.MkdirAll(l.LogoDir(), DirPerm)
}
