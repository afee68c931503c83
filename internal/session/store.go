// Package session holds the authenticated identity and persists it to local
// storage so it survives restarts.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notedash/internal/apperr"
	"github.com/starford/notedash/internal/checksum"
	"github.com/starford/notedash/internal/models"
	"github.com/starford/notedash/internal/storage"
)

// StorageKey is the fixed local-storage key holding the serialized identity.
const StorageKey = "notesAppUser"

// Listener is called after every session transition with the new state.
type Listener func(user models.User, authenticated bool)

// Store is the session store. The authenticated flag is true iff an identity
// is held. No network calls originate here.
type Store struct {
	local  storage.Provider
	logger *slog.Logger

	mu        sync.RWMutex
	user      *models.User
	sum       string // checksum of the last persisted or restored value
	listeners []Listener
}

// NewStore creates an unauthenticated store over local. Call Restore to load
// a persisted identity.
func NewStore(local storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{local: local, logger: logger}
}

// OnChange registers fn to run after each transition.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Restore reads the persisted identity. Missing or corrupt data yields the
// unauthenticated state; corrupt data is also removed from storage.
func (s *Store) Restore() {
	data, err := s.local.Get(StorageKey)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("session: read stored identity failed", slog.String("error", err.Error()))
		}
		s.set(nil, "")
		return
	}
	user, err := decode(data)
	if err != nil {
		s.logger.Warn("session: discarding corrupt stored identity", slog.String("error", err.Error()))
		if rmErr := s.local.Remove(StorageKey); rmErr != nil {
			s.logger.Warn("session: remove corrupt identity failed", slog.String("error", rmErr.Error()))
		}
		s.set(nil, "")
		return
	}
	s.set(&user, checksum.Sum(data))
}

// Login persists user and transitions to authenticated.
func (s *Store) Login(user models.User) error {
	if err := validateUser(user); err != nil {
		return apperr.Invalid(err)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode identity: %w", err)
	}
	if err := s.local.Set(StorageKey, data); err != nil {
		return fmt.Errorf("session: persist identity: %w", err)
	}
	s.set(&user, checksum.Sum(data))
	s.logger.Info("session: logged in", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return nil
}

// Logout clears the persisted identity and transitions to unauthenticated.
// The in-memory state is cleared even when storage removal fails.
func (s *Store) Logout() error {
	err := s.local.Remove(StorageKey)
	s.set(nil, "")
	s.logger.Info("session: logged out")
	if err != nil {
		return fmt.Errorf("session: remove identity: %w", err)
	}
	return nil
}

// Current returns the identity and whether the session is authenticated.
func (s *Store) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether an identity is held.
func (s *Store) Authenticated() bool {
	_, ok := s.Current()
	return ok
}

// Require returns the identity or apperr.ErrUnauthenticated.
func (s *Store) Require() (models.User, error) {
	u, ok := s.Current()
	if !ok {
		return models.User{}, apperr.ErrUnauthenticated
	}
	return u, nil
}

// persistedSum returns the checksum of the value this store last saw.
func (s *Store) persistedSum() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sum
}

func (s *Store) set(user *models.User, sum string) {
	s.mu.Lock()
	prev := s.user
	s.user = user
	s.sum = sum
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if prev == nil && user == nil {
		return
	}
	var u models.User
	if user != nil {
		u = *user
	}
	for _, fn := range listeners {
		fn(u, user != nil)
	}
}

func decode(data []byte) (models.User, error) {
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return models.User{}, fmt.Errorf("session: decode identity: %w", err)
	}
	if err := validateUser(u); err != nil {
		return models.User{}, fmt.Errorf("session: incomplete identity: %w", err)
	}
	return u, nil
}

func validateUser(u models.User) error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.ID, validation.Required),
		validation.Field(&u.Username, validation.Required),
	)
}
