package actions

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"chatapp-client/internal/validator"
	"context"
	"errors"
)

type banInput struct {
	Reason string `validate:"max=500"`
}

// BanMember records the ban and then removes the member. A failed removal is
// only logged, the ban already keeps them from rejoining.
func (s *Service) BanMember(ctx context.Context, actorID string, serverID string, userID string, reason string) models.Result {
	server, err := s.authorize(ctx, serverID, actorID, models.PermBanMembers)
	if err != nil {
		return s.failed("Ban member", err)
	}
	if userID == server.OwnerID {
		return s.failed("Ban member", ErrOwner)
	}
	if userID == actorID {
		return s.failed("Ban member", errors.New("you can't ban yourself"))
	}
	if err := s.outranksMember(ctx, server, actorID, userID); err != nil {
		return s.failed("Ban member", err)
	}
	if err := validator.Struct(banInput{Reason: reason}); err != nil {
		return s.failed("Ban member", err)
	}

	ban := models.Ban{
		UserID:   userID,
		Reason:   reason,
		BannedBy: actorID,
		BannedAt: s.now(),
	}
	if err := s.set(ctx, models.BanPath(serverID, userID), ban); err != nil {
		return s.failed("Ban member", err)
	}

	if err := s.removeMember(ctx, server, userID); err != nil {
		s.sugar.Warnf("Banned user ID [%s] couldn't be removed from server ID [%s]: %v", userID, serverID, err)
	}

	s.sugar.Infof("User ID [%s] banned user ID [%s] from server ID [%s]", actorID, userID, serverID)
	return succeeded(userID)
}

func (s *Service) UnbanMember(ctx context.Context, actorID string, serverID string, userID string) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermBanMembers); err != nil {
		return s.failed("Unban member", err)
	}

	if err := s.db.Delete(ctx, models.BanPath(serverID, userID)); err != nil {
		return s.failed("Unban member", err)
	}
	return succeeded(userID)
}

func (s *Service) Bans(ctx context.Context, actorID string, serverID string) ([]models.Ban, error) {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermBanMembers); err != nil {
		return nil, err
	}

	docs, err := s.db.List(ctx, docstore.Query{Path: models.SubcollectionPath(serverID, models.BansCollection)})
	if err != nil {
		return nil, err
	}

	bans := make([]models.Ban, 0, len(docs))
	for _, doc := range docs {
		var ban models.Ban
		if err := docstore.Decode(doc, &ban); err != nil {
			s.sugar.Warnf("Skipping malformed ban in server [%s]: %v", serverID, err)
			continue
		}
		ban.UserID = doc.ID
		bans = append(bans, ban)
	}
	return bans, nil
}
