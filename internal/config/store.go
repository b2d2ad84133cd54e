package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"cryptick/internal/paths"
)

// ErrConfigLoad marks a state file that exists but could not be used. Load
// still returns a usable default state alongside it.
var ErrConfigLoad = errors.New("config load failed")

var knownStateKeys = map[string]bool{
	"schema":         true,
	"active_profile": true,
	"profiles":       true,
	"token_names":    true,
	"token_logos":    true,
	"windows":        true,
	"hotkeys":        true,
	"defaults":       true,
}

var knownLegacyKeys = map[string]bool{
	"profiles":         true,
	"active_profile":   true,
	"token_names":      true,
	"token_logos":      true,
	"profile_settings": true,
	"settings":         true,
}

// ownWrites is how many of our recent writes the watcher recognizes. Saves
// can land faster than fsnotify delivers their events.
const ownWrites = 4

// Store reads and writes the JSON state file.
type Store struct {
	path string
	log  *zap.SugaredLogger
	now  func() time.Time

	mu     sync.Mutex
	recent [ownWrites][sha256.Size]byte
	next   int
}

func NewStore(path string, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{path: path, log: log, now: time.Now}
}

func (s *Store) Path() string { return s.path }

// Load never fails hard: a missing file yields the default state with a nil
// error, an unreadable or malformed one yields the default state together
// with an error wrapping ErrConfigLoad. Fields of the wrong type fall back
// to their defaults; the file is then copied aside before anything is
// saved over it.
func (s *Store) Load() (*AppState, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Infow("State file not found, using defaults", "path", s.path)
			return Default(), nil
		}
		return Default(), fmt.Errorf("%w [%s]: %w", ErrConfigLoad, s.path, err)
	}

	st, dropped, err := s.decode(b)
	if err != nil {
		return Default(), fmt.Errorf("%w [%s]: %w", ErrConfigLoad, s.path, err)
	}
	if len(dropped) > 0 {
		backup := s.sidePath()
		if err := os.WriteFile(backup, b, paths.FilePerm); err != nil {
			s.log.Warnw("Failed to back up state file", "path", backup, "error", err)
		} else {
			s.log.Warnw("Kept a copy of the state file before repair", "path", backup)
		}
	}
	s.log.Infow("State loaded", "path", s.path, "profiles", len(st.Profiles))
	return st, nil
}

// Quarantine moves an unusable state file out of the way so the next Save
// starts fresh without destroying it. It returns the new path.
func (s *Store) Quarantine() (string, error) {
	dst := s.sidePath()
	if err := os.Rename(s.path, dst); err != nil {
		return "", fmt.Errorf("failed to move state file aside: %w", err)
	}
	s.log.Warnw("Moved unreadable state file aside", "path", dst)
	return dst, nil
}

func (s *Store) sidePath() string {
	return s.path + ".bad-" + s.now().Format("20060102-150405.000")
}

// Decode parses either the current layout or the legacy layout (profiles as
// an object keyed by name) and normalizes the result.
func (s *Store) Decode(b []byte) (*AppState, error) {
	st, _, err := s.decode(b)
	return st, err
}

func (s *Store) decode(b []byte) (*AppState, []string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return nil, nil, fmt.Errorf("failed to decode state data: %w", err)
	}
	if top == nil {
		return nil, nil, fmt.Errorf("failed to decode state data: %w", errNotObject)
	}

	var (
		d     drift
		st    *AppState
		err   error
		known = knownStateKeys
	)
	if isLegacy(top) {
		if st, err = decodeLegacy(&d, top); err != nil {
			return nil, nil, fmt.Errorf("failed to decode legacy state data: %w", err)
		}
		known = knownLegacyKeys
		s.log.Infow("Imported legacy state layout", "profiles", len(st.Profiles))
	} else if st, err = decodeState(&d, b); err != nil {
		return nil, nil, fmt.Errorf("failed to decode state data: %w", err)
	}

	if unknown := unknownKeys(top, known); len(unknown) > 0 {
		s.log.Debugw("Ignoring unknown state fields", "fields", unknown)
	}
	dropped := d.sorted()
	if len(dropped) > 0 {
		s.log.Warnw("Replaced unusable state fields with defaults", "fields", dropped)
	}

	st.Normalize()
	return st, dropped, nil
}

func (s *Store) Save(st *AppState) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), paths.DirPerm); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	// Recorded before the write so the watcher never sees our own file as
	// an external change.
	s.mu.Lock()
	s.recent[s.next] = sha256.Sum256(b)
	s.next = (s.next + 1) % ownWrites
	s.mu.Unlock()

	if err := atomicWriteFile(s.path, b, paths.FilePerm); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	s.log.Debugw("State saved", "path", s.path)
	return nil
}

func (s *Store) isOwnWrite(b []byte) bool {
	sum := sha256.Sum256(b)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.recent {
		if h == sum {
			return true
		}
	}
	return false
}

func isLegacy(top map[string]json.RawMessage) bool {
	if _, ok := top["profile_settings"]; ok {
		return true
	}
	raw := bytes.TrimSpace(top["profiles"])
	return len(raw) > 0 && raw[0] == '{'
}

func unknownKeys(top map[string]json.RawMessage, known map[string]bool) []string {
	var out []string
	for k := range top {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
