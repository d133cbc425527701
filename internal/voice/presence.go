package voice

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Presence writes who is connected to which voice channel. Updates are read,
// modify, write on one document per channel.
type Presence struct {
	mutex sync.Mutex
	db    docstore.Store
	sugar *zap.SugaredLogger
}

func NewPresence(sugar *zap.SugaredLogger, db docstore.Store) *Presence {
	return &Presence{db: db, sugar: sugar}
}

func (p *Presence) users(ctx context.Context, channelID string) ([]models.PresenceEntry, error) {
	doc, err := p.db.Get(ctx, models.PresencePath(channelID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var presence models.VoicePresence
	if err := docstore.Decode(doc, &presence); err != nil {
		return nil, err
	}
	return presence.Users, nil
}

// Join adds entry to the channel, replacing an older entry of the same user.
func (p *Presence) Join(ctx context.Context, channelID string, entry models.PresenceEntry) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	users, err := p.users(ctx, channelID)
	if err != nil {
		return err
	}

	users = slices.DeleteFunc(users, func(u models.PresenceEntry) bool { return u.UserID == entry.UserID })
	users = append(users, entry)

	p.sugar.Debugf("User ID [%s] joined voice channel ID [%s]", entry.UserID, channelID)
	return p.save(ctx, channelID, users)
}

// Leave removes userID from the channel. The document goes away with the
// last user.
func (p *Presence) Leave(ctx context.Context, channelID string, userID string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	users, err := p.users(ctx, channelID)
	if err != nil {
		return err
	}

	remaining := slices.DeleteFunc(slices.Clone(users), func(u models.PresenceEntry) bool { return u.UserID == userID })
	if len(remaining) == len(users) {
		return nil
	}

	p.sugar.Debugf("User ID [%s] left voice channel ID [%s]", userID, channelID)

	if len(remaining) == 0 {
		return p.db.Delete(ctx, models.PresencePath(channelID))
	}
	return p.save(ctx, channelID, remaining)
}

func (p *Presence) save(ctx context.Context, channelID string, users []models.PresenceEntry) error {
	data, err := docstore.Encode(models.VoicePresence{ID: channelID, Users: users})
	if err != nil {
		return err
	}
	return p.db.Set(ctx, models.PresencePath(channelID), data)
}
