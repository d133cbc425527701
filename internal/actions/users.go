package actions

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"context"
	"errors"
)

// UpdateProfile writes the user's own profile document, creating it on first
// use.
func (s *Service) UpdateProfile(ctx context.Context, userID string, displayName string, photoURL string) models.Result {
	fields := map[string]any{
		"displayName": displayName,
		"photoURL":    photoURL,
	}

	err := s.db.Update(ctx, models.UserPath(userID), fields)
	if errors.Is(err, docstore.ErrNotFound) {
		err = s.set(ctx, models.UserPath(userID), models.User{ID: userID, DisplayName: displayName, PhotoURL: photoURL})
	}
	if err != nil {
		return s.failed("Update profile", err)
	}
	return succeeded(userID)
}
