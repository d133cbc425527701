package keyValue

import (
	"context"
	"fmt"
)

// Settings is the per user preference store the UI reads and writes through
// the local api. Values never expire.
type Settings struct {
	store *Store
}

func NewSettings(store *Store) *Settings {
	return &Settings{store: store}
}

func settingsKey(userID string, key string) string {
	return fmt.Sprintf("settings:%s:%s", userID, key)
}

func (s *Settings) Get(ctx context.Context, userID string, key string) (string, error) {
	return s.store.Get(ctx, settingsKey(userID, key))
}

func (s *Settings) Set(ctx context.Context, userID string, key string, value string) error {
	if value == "" {
		return s.store.Delete(ctx, settingsKey(userID, key))
	}
	return s.store.Set(ctx, settingsKey(userID, key), value, 0)
}
