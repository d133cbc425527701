package actions

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"chatapp-client/internal/validator"
	"context"
	"errors"
	"fmt"
	"slices"
)

type RoleInput struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Color       string   `json:"color" validate:"omitempty,rolecolor"`
	Permissions []string `json:"permissions" validate:"dive,capability"`
}

// CreateRole puts the new role above every existing one.
func (s *Service) CreateRole(ctx context.Context, actorID string, serverID string, input RoleInput) models.Result {
	if err := validator.Struct(input); err != nil {
		return s.failed("Create role", err)
	}
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageRoles); err != nil {
		return s.failed("Create role", err)
	}

	roles, err := s.roles(ctx, serverID)
	if err != nil {
		return s.failed("Create role", err)
	}

	position := 1
	for _, role := range roles {
		if role.Position >= position {
			position = role.Position + 1
		}
	}

	roleID, err := s.ids.Next()
	if err != nil {
		return s.failed("Create role", err)
	}

	role := models.Role{
		ID:          roleID,
		Name:        input.Name,
		Color:       input.Color,
		Position:    position,
		Permissions: input.Permissions,
	}
	if role.Color == "" {
		role.Color = defaultRoleColor
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}

	if err := s.set(ctx, models.RolePath(serverID, roleID), role); err != nil {
		return s.failed("Create role", err)
	}
	return succeeded(roleID)
}

func (s *Service) UpdateRole(ctx context.Context, actorID string, serverID string, roleID string, input RoleInput) models.Result {
	if err := validator.Struct(input); err != nil {
		return s.failed("Update role", err)
	}
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageRoles); err != nil {
		return s.failed("Update role", err)
	}

	permissions := input.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	fields := map[string]any{
		"name":        input.Name,
		"permissions": permissions,
	}
	if input.Color != "" {
		fields["color"] = input.Color
	}

	if err := s.db.Update(ctx, models.RolePath(serverID, roleID), fields); err != nil {
		return s.failed("Update role", err)
	}
	return succeeded(roleID)
}

// DeleteRole refuses the default role. The role is then stripped from members
// and channel overwrites on a best effort basis.
func (s *Service) DeleteRole(ctx context.Context, actorID string, serverID string, roleID string) models.Result {
	server, err := s.authorize(ctx, serverID, actorID, models.PermManageRoles)
	if err != nil {
		return s.failed("Delete role", err)
	}

	role, err := s.role(ctx, serverID, roleID)
	if err != nil {
		return s.failed("Delete role", err)
	}
	if role.IsDefault || roleID == server.DefaultRoleID {
		return s.failed("Delete role", ErrDefaultRole)
	}

	if err := s.db.Delete(ctx, models.RolePath(serverID, roleID)); err != nil {
		return s.failed("Delete role", err)
	}

	members, err := s.members(ctx, serverID)
	if err != nil {
		s.sugar.Warnf("Couldn't strip deleted role [%s] from members: %v", roleID, err)
	}
	for _, member := range members {
		if !slices.Contains(member.Roles, roleID) {
			continue
		}
		roles := slices.DeleteFunc(slices.Clone(member.Roles), func(id string) bool { return id == roleID })
		if err := s.db.Update(ctx, models.MemberPath(serverID, member.UserID), map[string]any{"roles": roles}); err != nil {
			s.sugar.Warnf("Couldn't strip deleted role [%s] from member [%s]: %v", roleID, member.UserID, err)
		}
	}

	channels, err := s.channels(ctx, serverID)
	if err != nil {
		s.sugar.Warnf("Couldn't strip deleted role [%s] from channel overwrites: %v", roleID, err)
	}
	for _, channel := range channels {
		if _, ok := channel.PermissionOverwrites[roleID]; !ok {
			continue
		}
		delete(channel.PermissionOverwrites, roleID)
		if err := s.saveOverwrites(ctx, serverID, channel.ID, channel.PermissionOverwrites); err != nil {
			s.sugar.Warnf("Couldn't strip deleted role [%s] from channel [%s]: %v", roleID, channel.ID, err)
		}
	}

	return succeeded(roleID)
}

// ReorderRoles takes role ids from highest to lowest. The default role keeps
// position 0 and is skipped if listed.
func (s *Service) ReorderRoles(ctx context.Context, actorID string, serverID string, roleIDs []string) models.Result {
	server, err := s.authorize(ctx, serverID, actorID, models.PermManageRoles)
	if err != nil {
		return s.failed("Reorder roles", err)
	}

	ordered := slices.DeleteFunc(slices.Clone(roleIDs), func(id string) bool { return id == server.DefaultRoleID })
	for i, roleID := range ordered {
		position := len(ordered) - i
		if err := s.db.Update(ctx, models.RolePath(serverID, roleID), map[string]any{"position": position}); err != nil {
			return s.failed("Reorder roles", err)
		}
	}
	return succeeded(serverID)
}

func (s *Service) role(ctx context.Context, serverID string, roleID string) (models.Role, error) {
	var role models.Role

	doc, err := s.db.Get(ctx, models.RolePath(serverID, roleID))
	if errors.Is(err, docstore.ErrNotFound) {
		return role, fmt.Errorf("role [%s] doesn't exist: %w", roleID, err)
	} else if err != nil {
		return role, err
	}

	err = docstore.Decode(doc, &role)
	return role, err
}
