// Package profile persists the browser profiles the warmup bot can drive.
// The whole set lives in one JSON file that is rewritten atomically on
// every mutation, so a crash or restart never loses saved profiles.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalid  = errors.New("invalid profile")
	ErrNotFound = errors.New("profile not found")
)

// Profile points at a browser profile directory on disk.
type Profile struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Created time.Time `json:"created"`
}

type Store struct {
	mu       sync.Mutex
	filePath string
	profiles []Profile
	// bumped before each save so the file watcher can tell our own
	// writes apart from external edits
	selfWrites int
}

// NewStore loads the profile set from filePath, creating an empty store
// when the file does not exist yet.
func NewStore(filePath string) (*Store, error) {
	s := &Store{filePath: filePath}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.profiles = nil
			return nil
		}
		return fmt.Errorf("read %s: %w", s.filePath, err)
	}

	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.profiles = profiles
	return nil
}

// Add validates, persists, and returns a new profile.
func (s *Store) Add(name, path string) (Profile, error) {
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if name == "" {
		return Profile{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if path == "" {
		return Profile{}, fmt.Errorf("%w: path is required", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.Path == path {
			return Profile{}, fmt.Errorf("%w: profile path already exists", ErrInvalid)
		}
	}

	p := Profile{
		ID:      uuid.NewString(),
		Name:    name,
		Path:    path,
		Created: time.Now(),
	}
	s.profiles = append(s.profiles, p)

	if err := s.saveLocked(); err != nil {
		s.profiles = s.profiles[:len(s.profiles)-1]
		return Profile{}, err
	}
	return p, nil
}

// Update renames and/or repoints an existing profile. Empty fields keep
// their current value.
func (s *Store) Update(id, name, path string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.profiles {
		if s.profiles[i].ID != id {
			continue
		}
		prev := s.profiles[i]
		if name = strings.TrimSpace(name); name != "" {
			s.profiles[i].Name = name
		}
		if path = strings.TrimSpace(path); path != "" {
			s.profiles[i].Path = path
		}
		if err := s.saveLocked(); err != nil {
			s.profiles[i] = prev
			return Profile{}, err
		}
		return s.profiles[i], nil
	}
	return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Remove deletes a profile by id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.profiles {
		if s.profiles[i].ID != id {
			continue
		}
		removed := s.profiles[i]
		s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
		if err := s.saveLocked(); err != nil {
			s.profiles = append(s.profiles[:i], append([]Profile{removed}, s.profiles[i:]...)...)
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns all profiles in insertion order.
func (s *Store) List() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Get returns the profile with the given id.
func (s *Store) Get(id string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// saveLocked rewrites the whole set: temp file in the same directory,
// then rename, so readers never observe a partial file.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	if s.profiles == nil {
		data = []byte("[]")
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".profiles-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	s.selfWrites++
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.filePath, err)
	}
	return nil
}

// consumeSelfWrite reports whether a filesystem event was caused by our
// own save and should be ignored by the watcher.
func (s *Store) consumeSelfWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selfWrites > 0 {
		s.selfWrites--
		return true
	}
	return false
}

// logf is a hook point for the watcher; kept package-private so the
// store itself stays quiet during normal CRUD.
func logf(format string, args ...any) {
	log.Printf(format, args...)
}
