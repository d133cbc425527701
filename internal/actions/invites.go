package actions

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"chatapp-client/internal/validator"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InviteInput struct {
	// 0 means unlimited
	MaxUses          int `json:"maxUses" validate:"gte=0,lte=1000"`
	ExpiresInMinutes int `json:"expiresInMinutes" validate:"gte=0"`
}

type inviteIndex struct {
	ServerID string `json:"serverId"`
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func (s *Service) CreateInvite(ctx context.Context, actorID string, serverID string, input InviteInput) models.Result {
	if err := validator.Struct(input); err != nil {
		return s.failed("Create invite", err)
	}
	if _, err := s.authorize(ctx, serverID, actorID, models.PermCreateInvite); err != nil {
		return s.failed("Create invite", err)
	}

	now := s.now()
	invite := models.Invite{
		Code:      newInviteCode(),
		ServerID:  serverID,
		CreatedBy: actorID,
		CreatedAt: now,
		MaxUses:   input.MaxUses,
	}
	if input.ExpiresInMinutes > 0 {
		expires := now.Add(time.Duration(input.ExpiresInMinutes) * time.Minute)
		invite.ExpiresAt = &expires
	}

	if err := s.set(ctx, models.InvitePath(serverID, invite.Code), invite); err != nil {
		return s.failed("Create invite", err)
	}
	if err := s.set(ctx, models.InviteCodePath(invite.Code), inviteIndex{ServerID: serverID}); err != nil {
		return s.failed("Create invite index", err)
	}
	return succeeded(invite.Code)
}

// RedeemInvite joins userID to the invite's server. The result id is the
// server id. Redeeming as an existing member doesn't use up the invite.
func (s *Service) RedeemInvite(ctx context.Context, userID string, code string) models.Result {
	doc, err := s.db.Get(ctx, models.InviteCodePath(code))
	if err != nil {
		return s.failed("Redeem invite", fmt.Errorf("invite [%s]: %w", code, err))
	}
	var index inviteIndex
	if err := docstore.Decode(doc, &index); err != nil {
		return s.failed("Redeem invite", err)
	}

	doc, err = s.db.Get(ctx, models.InvitePath(index.ServerID, code))
	if err != nil {
		return s.failed("Redeem invite", fmt.Errorf("invite [%s]: %w", code, err))
	}
	var invite models.Invite
	if err := docstore.Decode(doc, &invite); err != nil {
		return s.failed("Redeem invite", err)
	}

	if invite.ExpiresAt != nil && !s.now().Before(*invite.ExpiresAt) {
		return s.failed("Redeem invite", ErrInviteExpired)
	}

	if _, err := s.member(ctx, index.ServerID, userID); err == nil {
		return succeeded(index.ServerID)
	}

	if invite.MaxUses > 0 && invite.Uses >= invite.MaxUses {
		return s.failed("Redeem invite", ErrInviteExhausted)
	}

	server, err := s.server(ctx, index.ServerID)
	if err != nil {
		return s.failed("Redeem invite", err)
	}

	joined, err := s.addMember(ctx, server, userID)
	if err != nil {
		return s.failed("Redeem invite", err)
	}

	if joined {
		if err := s.db.Update(ctx, models.InvitePath(index.ServerID, code), map[string]any{"uses": invite.Uses + 1}); err != nil {
			s.sugar.Warnf("Couldn't count use of invite [%s]: %v", code, err)
		}
	}
	return succeeded(index.ServerID)
}

func (s *Service) DeleteInvite(ctx context.Context, actorID string, serverID string, code string) models.Result {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageServer); err != nil {
		return s.failed("Delete invite", err)
	}

	if err := s.db.Delete(ctx, models.InvitePath(serverID, code)); err != nil {
		return s.failed("Delete invite", err)
	}
	if err := s.db.Delete(ctx, models.InviteCodePath(code)); err != nil {
		return s.failed("Delete invite index", err)
	}
	return succeeded(code)
}

func (s *Service) Invites(ctx context.Context, actorID string, serverID string) ([]models.Invite, error) {
	if _, err := s.authorize(ctx, serverID, actorID, models.PermManageServer); err != nil {
		return nil, err
	}

	docs, err := s.db.List(ctx, docstore.Query{Path: models.SubcollectionPath(serverID, models.InvitesCollection)})
	if err != nil {
		return nil, err
	}
	invites, errs := docstore.DecodeAll[models.Invite](docs)
	for _, err := range errs {
		s.sugar.Warnf("Skipping malformed invite in server [%s]: %v", serverID, err)
	}
	return invites, nil
}
