package profile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.json")
	s, err := NewStore(path)
	require.NoError(t, err)
	return s, path
}

func TestAddAndGet(t *testing.T) {
	s, path := newTestStore(t)

	p, err := s.Add("Main Account", "/data/profiles/main")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Main Account", p.Name)
	assert.False(t, p.Created.IsZero())

	got, err := s.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// Persisted as valid JSON on disk.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []Profile
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 1)
	assert.Equal(t, p.ID, onDisk[0].ID)
}

func TestAddValidation(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Add("", "/some/path")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.Add("   ", "/some/path")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.Add("Name", "")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.Add("First", "/dup/path")
	require.NoError(t, err)
	_, err = s.Add("Second", "/dup/path")
	assert.ErrorIs(t, err, ErrInvalid, "duplicate path must be rejected")
}

func TestUpdate(t *testing.T) {
	s, _ := newTestStore(t)
	p, err := s.Add("Old Name", "/old/path")
	require.NoError(t, err)

	updated, err := s.Update(p.ID, "New Name", "")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "/old/path", updated.Path, "empty path keeps current value")

	updated, err = s.Update(p.ID, "", "/new/path")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "/new/path", updated.Path)

	_, err = s.Update("missing-id", "x", "y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	s, _ := newTestStore(t)
	p1, err := s.Add("One", "/p/1")
	require.NoError(t, err)
	p2, err := s.Add("Two", "/p/2")
	require.NoError(t, err)

	require.NoError(t, s.Remove(p1.ID))
	assert.ErrorIs(t, s.Remove(p1.ID), ErrNotFound)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, p2.ID, list[0].ID)
}

func TestLoadSurvivesRestart(t *testing.T) {
	s, path := newTestStore(t)
	p, err := s.Add("Persistent", "/p/persistent")
	require.NoError(t, err)

	reopened, err := NewStore(path)
	require.NoError(t, err)
	got, err := reopened.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Path, got.Path)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "nope", "profiles.json"))
	require.NoError(t, err)
	assert.Empty(t, s.List())
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(path)
	assert.Error(t, err)
}

func TestListReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Add("One", "/p/1")
	require.NoError(t, err)

	list := s.List()
	list[0].Name = "mutated"

	fresh := s.List()
	assert.Equal(t, "One", fresh[0].Name)
}

func TestProfileSourceAdapter(t *testing.T) {
	s, _ := newTestStore(t)
	p, err := s.Add("Runner Facing", "/p/runner")
	require.NoError(t, err)

	got, ok := s.Profile(p.ID)
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Path, got.Path)

	_, ok = s.Profile("missing")
	assert.False(t, ok)
}

func TestWatchPicksUpExternalEdit(t *testing.T) {
	s, path := newTestStore(t)
	_, err := s.Add("Original", "/p/original")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)

	// Give the watcher a moment to register before editing the file.
	time.Sleep(200 * time.Millisecond)

	external := []Profile{{
		ID:      "external-id",
		Name:    "Edited Outside",
		Path:    "/p/external",
		Created: time.Now(),
	}}
	data, err := json.Marshal(external)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	require.Eventually(t, func() bool {
		list := s.List()
		return len(list) == 1 && list[0].ID == "external-id"
	}, 3*time.Second, 50*time.Millisecond)
}
