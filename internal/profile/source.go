package profile

import "go-warmup-automation/internal/runner"

// Profile implements runner.ProfileSource, so the store can be handed to
// the runner directly.
func (s *Store) Profile(id string) (runner.Profile, bool) {
	p, err := s.Get(id)
	if err != nil {
		return runner.Profile{}, false
	}
	return runner.Profile{ID: p.ID, Name: p.Name, Path: p.Path}, true
}
