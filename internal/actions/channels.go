package actions

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"chatapp-client/internal/validator"
	"context"
	"errors"
	"fmt"
)

type ChannelInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Type string `json:"type" validate:"required,oneof=text voice"`
}

type renameInput struct {
	Name string `validate:"required,max=100"`
}

// CreateChannel places the new channel after every existing one.
func (s *Service) CreateChannel(ctx context.Context, actorID string, serverID string, input ChannelInput) models.Result {
	if err := validator.Struct(input); err != nil {
		return s.failed("Create channel", err)
	}
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageChannels); err != nil {
		return s.failed("Create channel", err)
	}

	channels, err := s.channels(ctx, serverID)
	if err != nil {
		return s.failed("Create channel", err)
	}

	position := 0
	for _, channel := range channels {
		if channel.Position >= position {
			position = channel.Position + 1
		}
	}

	channelID, err := s.ids.Next()
	if err != nil {
		return s.failed("Create channel", err)
	}

	channel := models.Channel{
		ID:       channelID,
		Name:     input.Name,
		Type:     input.Type,
		Position: position,
	}
	if err := s.set(ctx, models.ChannelPath(serverID, channelID), channel); err != nil {
		return s.failed("Create channel", err)
	}
	return succeeded(channelID)
}

func (s *Service) UpdateChannel(ctx context.Context, actorID string, serverID string, channelID string, name string) models.Result {
	if err := validator.Struct(renameInput{Name: name}); err != nil {
		return s.failed("Update channel", err)
	}
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageChannels); err != nil {
		return s.failed("Update channel", err)
	}

	if err := s.db.Update(ctx, models.ChannelPath(serverID, channelID), map[string]any{"name": name}); err != nil {
		return s.failed("Update channel", err)
	}
	return succeeded(channelID)
}

func (s *Service) DeleteChannel(ctx context.Context, actorID string, serverID string, channelID string) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageChannels); err != nil {
		return s.failed("Delete channel", err)
	}

	channel, err := s.channel(ctx, serverID, channelID)
	if err != nil {
		return s.failed("Delete channel", err)
	}

	if err := s.db.Delete(ctx, models.ChannelPath(serverID, channelID)); err != nil {
		return s.failed("Delete channel", err)
	}

	if channel.IsVoice() {
		if err := s.db.Delete(ctx, models.PresencePath(channelID)); err != nil {
			s.sugar.Warnf("Couldn't clear voice presence of channel ID [%s]: %v", channelID, err)
		}
	}
	return succeeded(channelID)
}

// SetChannelOverwrite replaces the overwrite roleID has on the channel. An
// overwrite with every field neutral removes the entry.
func (s *Service) SetChannelOverwrite(ctx context.Context, actorID string, serverID string, channelID string, roleID string, overwrite models.Overwrite) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageChannels); err != nil {
		return s.failed("Set channel overwrite", err)
	}

	if _, err := s.db.Get(ctx, models.RolePath(serverID, roleID)); err != nil {
		return s.failed("Set channel overwrite", fmt.Errorf("couldn't fetch role [%s]: %w", roleID, err))
	}

	channel, err := s.channel(ctx, serverID, channelID)
	if err != nil {
		return s.failed("Set channel overwrite", err)
	}

	overwrites := channel.PermissionOverwrites
	if overwrites == nil {
		overwrites = make(map[string]models.Overwrite)
	}
	if overwrite.IsNeutral() {
		delete(overwrites, roleID)
	} else {
		overwrites[roleID] = overwrite
	}

	if err := s.saveOverwrites(ctx, serverID, channelID, overwrites); err != nil {
		return s.failed("Set channel overwrite", err)
	}
	return succeeded(channelID)
}

func (s *Service) saveOverwrites(ctx context.Context, serverID string, channelID string, overwrites map[string]models.Overwrite) error {
	encoded, err := docstore.Encode(overwrites)
	if err != nil {
		return err
	}
	if encoded == nil {
		encoded = map[string]any{}
	}
	return s.db.Update(ctx, models.ChannelPath(serverID, channelID), map[string]any{"permissionOverwrites": encoded})
}

// ReorderChannels gives each listed channel its index as position.
func (s *Service) ReorderChannels(ctx context.Context, actorID string, serverID string, channelIDs []string) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageChannels); err != nil {
		return s.failed("Reorder channels", err)
	}

	for position, channelID := range channelIDs {
		if err := s.db.Update(ctx, models.ChannelPath(serverID, channelID), map[string]any{"position": position}); err != nil {
			return s.failed("Reorder channels", err)
		}
	}
	return succeeded(serverID)
}

func (s *Service) channel(ctx context.Context, serverID string, channelID string) (models.Channel, error) {
	var channel models.Channel

	doc, err := s.db.Get(ctx, models.ChannelPath(serverID, channelID))
	if errors.Is(err, docstore.ErrNotFound) {
		return channel, fmt.Errorf("channel [%s] doesn't exist: %w", channelID, err)
	} else if err != nil {
		return channel, err
	}

	err = docstore.Decode(doc, &channel)
	return channel, err
}
