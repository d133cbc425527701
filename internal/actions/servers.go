package actions

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"chatapp-client/internal/validator"
	"context"
	"fmt"
)

const defaultRoleColor = "#99aab5"

type ServerInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Icon string `json:"icon" validate:"omitempty,servericon"`
}

// CreateServer writes the server, its default role, the owner's member record
// and the default text and voice channels, in that order. A failure partway
// leaves whatever was already written.
func (s *Service) CreateServer(ctx context.Context, actorID string, input ServerInput) models.Result {
	if err := validator.Struct(input); err != nil {
		return s.failed("Create server", err)
	}

	serverID, err := s.ids.Next()
	if err != nil {
		return s.failed("Create server", err)
	}
	roleID, err := s.ids.Next()
	if err != nil {
		return s.failed("Create server", err)
	}

	server := models.Server{
		ID:            serverID,
		Name:          input.Name,
		OwnerID:       actorID,
		Icon:          input.Icon,
		MemberIDs:     []string{actorID},
		DefaultRoleID: roleID,
	}
	if err := s.set(ctx, models.ServerPath(serverID), server); err != nil {
		return s.failed("Create server", err)
	}

	role := models.Role{
		ID:          roleID,
		Name:        s.cfg.DefaultRoleName,
		Color:       defaultRoleColor,
		Position:    0,
		IsDefault:   true,
		Permissions: []string{models.PermCreateInvite},
	}
	if err := s.set(ctx, models.RolePath(serverID, roleID), role); err != nil {
		return s.failed("Create server default role", err)
	}

	profile := s.profile(ctx, actorID)
	member := models.Member{
		ServerID:    serverID,
		UserID:      actorID,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
		Roles:       []string{roleID},
		JoinedAt:    s.now(),
	}
	if err := s.set(ctx, models.MemberPath(serverID, actorID), member); err != nil {
		return s.failed("Create server owner member", err)
	}

	defaults := []models.Channel{
		{Name: s.cfg.DefaultTextChannel, Type: models.ChannelTypeText, Position: 0},
		{Name: s.cfg.DefaultVoiceChannel, Type: models.ChannelTypeVoice, Position: 1},
	}
	for _, channel := range defaults {
		channel.ID, err = s.ids.Next()
		if err != nil {
			return s.failed("Create server channels", err)
		}
		if err := s.set(ctx, models.ChannelPath(serverID, channel.ID), channel); err != nil {
			return s.failed("Create server channels", err)
		}
	}

	s.sugar.Infof("User ID [%s] created server ID [%s]", actorID, serverID)
	return succeeded(serverID)
}

func (s *Service) UpdateServer(ctx context.Context, actorID string, serverID string, input ServerInput) models.Result {
	if err := validator.Struct(input); err != nil {
		return s.failed("Update server", err)
	}
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageServer); err != nil {
		return s.failed("Update server", err)
	}

	err := s.db.Update(ctx, models.ServerPath(serverID), map[string]any{
		"name": input.Name,
		"icon": input.Icon,
	})
	if err != nil {
		return s.failed("Update server", err)
	}
	return succeeded(serverID)
}

// DeleteServer deletes every subcollection and then the server document. A
// subcollection that fails is logged and skipped, the server document is
// always attempted.
func (s *Service) DeleteServer(ctx context.Context, actorID string, serverID string) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, ""); err != nil {
		return s.failed("Delete server", err)
	}

	for _, collection := range models.ServerSubcollections {
		if err := s.deleteSubcollection(ctx, serverID, collection); err != nil {
			s.sugar.Errorf("Couldn't delete %s of server ID [%s]: %v", collection, serverID, err)
		}
	}

	if err := s.db.Delete(ctx, models.ServerPath(serverID)); err != nil {
		return s.failed("Delete server", err)
	}

	s.sugar.Infof("User ID [%s] deleted server ID [%s]", actorID, serverID)
	return succeeded(serverID)
}

func (s *Service) deleteSubcollection(ctx context.Context, serverID string, collection string) error {
	docs, err := s.db.List(ctx, docstore.Query{Path: models.SubcollectionPath(serverID, collection)})
	if err != nil {
		return err
	}

	for _, doc := range docs {
		path := fmt.Sprintf("%s/%s", models.SubcollectionPath(serverID, collection), doc.ID)
		if err := s.db.Delete(ctx, path); err != nil {
			return err
		}

		switch collection {
		case models.InvitesCollection:
			if err := s.db.Delete(ctx, models.InviteCodePath(doc.ID)); err != nil {
				return err
			}
		case models.ChannelsCollection:
			if err := s.db.Delete(ctx, models.PresencePath(doc.ID)); err != nil {
				s.sugar.Warnf("Couldn't clear voice presence of channel ID [%s]: %v", doc.ID, err)
			}
		}
	}
	return nil
}
