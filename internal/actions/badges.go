package actions

import (
	"chatapp-client/internal/models"
	"chatapp-client/internal/validator"
	"context"
	"slices"
)

type BadgeInput struct {
	Name  string `json:"name" validate:"required,max=50"`
	Icon  string `json:"icon" validate:"omitempty,servericon"`
	Color string `json:"color" validate:"omitempty,rolecolor"`
}

func (s *Service) CreateBadge(ctx context.Context, actorID string, serverID string, input BadgeInput) models.Result {
	if err := validator.Struct(input); err != nil {
		return s.failed("Create badge", err)
	}
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageBadges); err != nil {
		return s.failed("Create badge", err)
	}

	badgeID, err := s.ids.Next()
	if err != nil {
		return s.failed("Create badge", err)
	}

	badge := models.Badge{
		ID:        badgeID,
		Name:      input.Name,
		Icon:      input.Icon,
		Color:     input.Color,
		CreatedAt: s.now(),
	}
	if err := s.set(ctx, models.BadgePath(serverID, badgeID), badge); err != nil {
		return s.failed("Create badge", err)
	}
	return succeeded(badgeID)
}

// DeleteBadge also takes the badge away from everyone who had it, best effort.
func (s *Service) DeleteBadge(ctx context.Context, actorID string, serverID string, badgeID string) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageBadges); err != nil {
		return s.failed("Delete badge", err)
	}

	if err := s.db.Delete(ctx, models.BadgePath(serverID, badgeID)); err != nil {
		return s.failed("Delete badge", err)
	}

	members, err := s.members(ctx, serverID)
	if err != nil {
		s.sugar.Warnf("Couldn't revoke deleted badge [%s] from members: %v", badgeID, err)
	}
	for _, member := range members {
		if !slices.Contains(member.Badges, badgeID) {
			continue
		}
		badges := slices.DeleteFunc(slices.Clone(member.Badges), func(id string) bool { return id == badgeID })
		if err := s.db.Update(ctx, models.MemberPath(serverID, member.UserID), map[string]any{"badges": badges}); err != nil {
			s.sugar.Warnf("Couldn't revoke deleted badge [%s] from member [%s]: %v", badgeID, member.UserID, err)
		}
	}

	return succeeded(badgeID)
}

func (s *Service) AwardBadge(ctx context.Context, actorID string, serverID string, userID string, badgeID string) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageBadges); err != nil {
		return s.failed("Award badge", err)
	}

	if _, err := s.db.Get(ctx, models.BadgePath(serverID, badgeID)); err != nil {
		return s.failed("Award badge", err)
	}

	member, err := s.member(ctx, serverID, userID)
	if err != nil {
		return s.failed("Award badge", err)
	}
	if slices.Contains(member.Badges, badgeID) {
		return succeeded(badgeID)
	}

	badges := append(slices.Clone(member.Badges), badgeID)
	if err := s.db.Update(ctx, models.MemberPath(serverID, userID), map[string]any{"badges": badges}); err != nil {
		return s.failed("Award badge", err)
	}
	return succeeded(badgeID)
}

func (s *Service) RevokeBadge(ctx context.Context, actorID string, serverID string, userID string, badgeID string) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageBadges); err != nil {
		return s.failed("Revoke badge", err)
	}

	member, err := s.member(ctx, serverID, userID)
	if err != nil {
		return s.failed("Revoke badge", err)
	}

	badges := slices.DeleteFunc(slices.Clone(member.Badges), func(id string) bool { return id == badgeID })
	if err := s.db.Update(ctx, models.MemberPath(serverID, userID), map[string]any{"badges": badges}); err != nil {
		return s.failed("Revoke badge", err)
	}
	return succeeded(badgeID)
}
