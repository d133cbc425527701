package actions

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"context"
	"errors"
	"fmt"
	"slices"
)

func (s *Service) JoinServer(ctx context.Context, userID string, serverID string) models.Result {
	server, err := s.server(ctx, serverID)
	if err != nil {
		return s.failed("Join server", err)
	}

	if _, err := s.addMember(ctx, server, userID); err != nil {
		return s.failed("Join server", err)
	}
	return succeeded(serverID)
}

// addMember reports false when userID already was a member.
func (s *Service) addMember(ctx context.Context, server models.Server, userID string) (bool, error) {
	_, err := s.db.Get(ctx, models.BanPath(server.ID, userID))
	if err == nil {
		return false, ErrBanned
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return false, err
	}

	_, err = s.member(ctx, server.ID, userID)
	if err == nil {
		s.sugar.Debugf("User ID [%s] is already a member of server ID [%s]", userID, server.ID)
		return false, nil
	} else if !errors.Is(err, ErrNotMember) {
		return false, err
	}

	profile := s.profile(ctx, userID)
	member := models.Member{
		ServerID:    server.ID,
		UserID:      userID,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
		Roles:       []string{server.DefaultRoleID},
		JoinedAt:    s.now(),
	}
	if err := s.set(ctx, models.MemberPath(server.ID, userID), member); err != nil {
		return false, err
	}

	if !slices.Contains(server.MemberIDs, userID) {
		memberIDs := append(slices.Clone(server.MemberIDs), userID)
		if err := s.db.Update(ctx, models.ServerPath(server.ID), map[string]any{"memberIds": memberIDs}); err != nil {
			return true, fmt.Errorf("couldn't add member to server: %w", err)
		}
	}

	s.sugar.Infof("User ID [%s] joined server ID [%s]", userID, server.ID)
	return true, nil
}

func (s *Service) removeMember(ctx context.Context, server models.Server, userID string) error {
	if userID == server.OwnerID {
		return ErrOwner
	}

	if err := s.db.Delete(ctx, models.MemberPath(server.ID, userID)); err != nil {
		return err
	}

	if slices.Contains(server.MemberIDs, userID) {
		memberIDs := slices.DeleteFunc(slices.Clone(server.MemberIDs), func(id string) bool { return id == userID })
		if err := s.db.Update(ctx, models.ServerPath(server.ID), map[string]any{"memberIds": memberIDs}); err != nil {
			return fmt.Errorf("couldn't remove member from server: %w", err)
		}
	}
	return nil
}

func (s *Service) LeaveServer(ctx context.Context, userID string, serverID string) models.Result {
	server, err := s.server(ctx, serverID)
	if err != nil {
		return s.failed("Leave server", err)
	}

	if err := s.removeMember(ctx, server, userID); err != nil {
		return s.failed("Leave server", err)
	}
	return succeeded(serverID)
}

func (s *Service) KickMember(ctx context.Context, actorID string, serverID string, userID string) models.Result {
	server, err := s.authorize(ctx, serverID, actorID, models.PermKickMembers)
	if err != nil {
		return s.failed("Kick member", err)
	}
	if err := s.outranksMember(ctx, server, actorID, userID); err != nil {
		return s.failed("Kick member", err)
	}

	if err := s.removeMember(ctx, server, userID); err != nil {
		return s.failed("Kick member", err)
	}

	s.sugar.Infof("User ID [%s] kicked user ID [%s] from server ID [%s]", actorID, userID, serverID)
	return succeeded(userID)
}

func (s *Service) AssignRole(ctx context.Context, actorID string, serverID string, userID string, roleID string) models.Result {
	server, err := s.authorize(ctx, serverID, actorID, models.PermManageRoles)
	if err != nil {
		return s.failed("Assign role", err)
	}

	role, err := s.role(ctx, serverID, roleID)
	if err != nil {
		return s.failed("Assign role", err)
	}
	if err := s.outranks(ctx, server, actorID, role.Position); err != nil {
		return s.failed("Assign role", err)
	}
	if userID != actorID {
		if err := s.outranksMember(ctx, server, actorID, userID); err != nil {
			return s.failed("Assign role", err)
		}
	}

	member, err := s.member(ctx, serverID, userID)
	if err != nil {
		return s.failed("Assign role", err)
	}
	if slices.Contains(member.Roles, roleID) {
		return succeeded(roleID)
	}

	roles := append(slices.Clone(member.Roles), roleID)
	if err := s.db.Update(ctx, models.MemberPath(serverID, userID), map[string]any{"roles": roles}); err != nil {
		return s.failed("Assign role", err)
	}
	return succeeded(roleID)
}

func (s *Service) RemoveRole(ctx context.Context, actorID string, serverID string, userID string, roleID string) models.Result {
	server, err := s.authorize(ctx, serverID, actorID, models.PermManageRoles)
	if err != nil {
		return s.failed("Remove role", err)
	}
	if roleID == server.DefaultRoleID {
		return s.failed("Remove role", ErrDefaultRole)
	}

	role, err := s.role(ctx, serverID, roleID)
	if err != nil {
		return s.failed("Remove role", err)
	}
	if err := s.outranks(ctx, server, actorID, role.Position); err != nil {
		return s.failed("Remove role", err)
	}
	if userID != actorID {
		if err := s.outranksMember(ctx, server, actorID, userID); err != nil {
			return s.failed("Remove role", err)
		}
	}

	member, err := s.member(ctx, serverID, userID)
	if err != nil {
		return s.failed("Remove role", err)
	}

	roles := slices.DeleteFunc(slices.Clone(member.Roles), func(id string) bool { return id == roleID })
	if err := s.db.Update(ctx, models.MemberPath(serverID, userID), map[string]any{"roles": roles}); err != nil {
		return s.failed("Remove role", err)
	}
	return succeeded(roleID)
}
