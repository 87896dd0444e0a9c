// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/campusconnect/notifier/internal/logging"
	"github.com/campusconnect/notifier/internal/models"
)

// storeSchemaVersion is bumped whenever the persisted layout changes.
// Files without a schema_version field are treated as version 0 and
// upgraded on load.
const storeSchemaVersion = 1

// StoredNotification is a received notification with client-side state.
type StoredNotification struct {
	// ID uniquely identifies the entry; assigned on Add.
	ID string `json:"id"`

	models.Notification

	// Read marks whether the user has seen the notification.
	Read bool `json:"read"`

	// ReceivedAt records when the client stored the notification.
	ReceivedAt time.Time `json:"receivedAt"`
}

// storeState is the on-disk layout.
type storeState struct {
	SchemaVersion int                  `json:"schema_version"`
	Notifications []StoredNotification `json:"notifications"`
	Favorites     []string             `json:"favorites"`
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithHighPriorityHandler registers a callback fired whenever a
// high-priority notification is added. Useful for surfacing alerts.
func WithHighPriorityHandler(fn func(StoredNotification)) StoreOption {
	return func(s *Store) {
		s.onHighPriority = fn
	}
}

// WithMaxEntries caps how many notifications the store keeps; the
// oldest entries are trimmed first. Zero means unlimited.
func WithMaxEntries(n int) StoreOption {
	return func(s *Store) {
		s.maxEntries = n
	}
}

// Store keeps received notifications with read state and a favorites
// list, persisted as JSON so state survives restarts. The unread count
// is always derived from the entries, never tracked separately.
type Store struct {
	mu             sync.RWMutex
	path           string
	notifications  []StoredNotification
	favorites      []string
	maxEntries     int
	onHighPriority func(StoredNotification)
}

// NewStore opens (or creates) a store persisted at path.
func NewStore(path string, opts ...StoreOption) (*Store, error) {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the persisted state, tolerating a missing file and
// upgrading pre-versioned layouts.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read %s: %w", s.path, err)
	}

	var state storeState
	if err := json.Unmarshal(data, &state); err != nil {
		// A pre-versioned file was a bare list of notifications
		var legacy []StoredNotification
		if legacyErr := json.Unmarshal(data, &legacy); legacyErr != nil {
			return fmt.Errorf("store: parse %s: %w", s.path, err)
		}
		state = storeState{Notifications: legacy}
	}

	if state.SchemaVersion > storeSchemaVersion {
		return fmt.Errorf("store: %s has schema version %d, this client supports up to %d",
			s.path, state.SchemaVersion, storeSchemaVersion)
	}
	if state.SchemaVersion < storeSchemaVersion {
		logging.Debug().
			Int("from", state.SchemaVersion).
			Int("to", storeSchemaVersion).
			Msg("upgrading notification store schema")
	}

	s.notifications = state.Notifications
	s.favorites = state.Favorites
	return nil
}

// persist writes the state atomically (must hold mu).
func (s *Store) persist() error {
	state := storeState{
		SchemaVersion: storeSchemaVersion,
		Notifications: s.notifications,
		Favorites:     s.favorites,
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

// Add stores a notification, newest first, and returns the stored entry.
// Control messages are ignored and return a zero entry.
func (s *Store) Add(n models.Notification) (StoredNotification, error) {
	if n.Type.Control() {
		return StoredNotification{}, nil
	}

	entry := StoredNotification{
		ID:           uuid.NewString(),
		Notification: n,
		ReceivedAt:   time.Now(),
	}

	s.mu.Lock()
	s.notifications = append([]StoredNotification{entry}, s.notifications...)
	if s.maxEntries > 0 && len(s.notifications) > s.maxEntries {
		s.notifications = s.notifications[:s.maxEntries]
	}
	err := s.persist()
	handler := s.onHighPriority
	s.mu.Unlock()

	if err != nil {
		return entry, err
	}

	if handler != nil && n.Priority == models.PriorityHigh {
		handler(entry)
	}
	return entry, nil
}

// Notifications returns a copy of all entries, newest first.
func (s *Store) Notifications() []StoredNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StoredNotification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount reports how many entries are unread. Derived on demand so
// it can never drift from the entries themselves.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags one entry as read. Unknown IDs are a no-op.
func (s *Store) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			if s.notifications[i].Read {
				return nil
			}
			s.notifications[i].Read = true
			return s.persist()
		}
	}
	return nil
}

// MarkAllRead flags every entry as read.
func (s *Store) MarkAllRead() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for i := range s.notifications {
		if !s.notifications[i].Read {
			s.notifications[i].Read = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.persist()
}

// Remove deletes an entry and any favorite reference to it.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	removed := false
	for _, n := range s.notifications {
		if n.ID == id {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	if !removed {
		return nil
	}
	s.notifications = kept

	favs := s.favorites[:0]
	for _, f := range s.favorites {
		if f != id {
			favs = append(favs, f)
		}
	}
	s.favorites = favs

	return s.persist()
}

// AddFavorite marks an entry as a favorite. Unknown or duplicate IDs
// are a no-op.
func (s *Store) AddFavorite(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	for _, f := range s.favorites {
		if f == id {
			return nil
		}
	}
	s.favorites = append(s.favorites, id)
	return s.persist()
}

// RemoveFavorite removes an entry from the favorites list.
func (s *Store) RemoveFavorite(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs := s.favorites[:0]
	removed := false
	for _, f := range s.favorites {
		if f == id {
			removed = true
			continue
		}
		favs = append(favs, f)
	}
	if !removed {
		return nil
	}
	s.favorites = favs
	return s.persist()
}

// Favorites returns the stored entries currently marked as favorites,
// in the order they were favorited.
func (s *Store) Favorites() []StoredNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := make(map[string]StoredNotification, len(s.notifications))
	for _, n := range s.notifications {
		byID[n.ID] = n
	}

	out := make([]StoredNotification, 0, len(s.favorites))
	for _, id := range s.favorites {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
