package keyValue

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Profiles looks up user profiles, remembering them for a while so repeated
// member list repairs don't hit the database for every snapshot.
type Profiles struct {
	store *Store
	db    docstore.Store
	ttl   time.Duration
}

func NewProfiles(store *Store, db docstore.Store, ttl time.Duration) *Profiles {
	return &Profiles{store: store, db: db, ttl: ttl}
}

func (p *Profiles) Lookup(ctx context.Context, userID string) (models.User, error) {
	key := fmt.Sprintf("profile:%s", userID)

	cached, err := p.store.Get(ctx, key)
	if err != nil {
		p.store.sugar.Warnf("Couldn't read cached profile of user [%s]: %v", userID, err)
	} else if cached != "" {
		var user models.User
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			p.store.sugar.Debugf("User ID %s was found in cache", userID)
			return user, nil
		}
	}

	doc, err := p.db.Get(ctx, models.UserPath(userID))
	if err != nil {
		return models.User{}, fmt.Errorf("couldn't fetch profile of user [%s]: %w", userID, err)
	}

	var user models.User
	if err := docstore.Decode(doc, &user); err != nil {
		return models.User{}, err
	}
	user.ID = userID

	bytes, err := json.Marshal(user)
	if err == nil {
		err = p.store.Set(ctx, key, string(bytes), p.ttl)
	}
	if err != nil {
		p.store.sugar.Warnf("Couldn't cache profile of user [%s]: %v", userID, err)
	}

	return user, nil
}

// Forget drops a cached profile, e.g. after the user renamed themselves.
func (p *Profiles) Forget(ctx context.Context, userID string) error {
	return p.store.Delete(ctx, fmt.Sprintf("profile:%s", userID))
}
