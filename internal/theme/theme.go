// Package theme persists the user's light/dark preference.
package theme

import (
	"github.com/user/promptengine/internal/kvstore"
	"github.com/user/promptengine/internal/types"
)

// StorageKey is the key the preference is stored under.
const StorageKey = "theme"

type Store struct {
	value *kvstore.Value[types.Theme]
}

func NewStore(backend kvstore.Backend) *Store {
	return &Store{value: kvstore.NewValue[types.Theme](backend, StorageKey)}
}

// Get returns the stored theme, dark when unset or unrecognized.
func (s *Store) Get() types.Theme {
	t := s.value.Get(types.ThemeDark)
	if !t.Valid() {
		return types.ThemeDark
	}
	return t
}

func (s *Store) Set(t types.Theme) {
	s.value.Set(t)
}

// Toggle flips the preference and returns the new value.
func (s *Store) Toggle() types.Theme {
	next := s.Get().Toggle()
	s.Set(next)
	return next
}
