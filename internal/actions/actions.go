// Package actions performs every write the UI can ask for. Each action returns
// a models.Result and logs failures instead of passing errors on.
package actions

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
	"chatapp-client/internal/snowflake"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	ErrForbidden       = errors.New("you don't have permission to do that")
	ErrNotMember       = errors.New("not a member of this server")
	ErrBanned          = errors.New("banned from this server")
	ErrDefaultRole     = errors.New("the default role can't be removed")
	ErrOwner           = errors.New("the server owner can't be removed")
	ErrInviteExpired   = errors.New("invite has expired")
	ErrInviteExhausted = errors.New("invite has no uses left")
	ErrHierarchy       = errors.New("your highest role isn't above theirs")
)

type Service struct {
	sugar *zap.SugaredLogger
	db    docstore.Store
	ids   *snowflake.Node
	cfg   *models.ConfigFile
	now   func() time.Time
}

func New(sugar *zap.SugaredLogger, db docstore.Store, ids *snowflake.Node, cfg *models.ConfigFile) *Service {
	return &Service{
		sugar: sugar,
		db:    db,
		ids:   ids,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func succeeded(id string) models.Result {
	return models.Result{Success: true, ID: id}
}

func (s *Service) failed(action string, err error) models.Result {
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrBanned) || errors.Is(err, ErrHierarchy) {
		s.sugar.Warnf("%s refused: %v", action, err)
	} else {
		s.sugar.Errorf("%s failed: %v", action, err)
	}
	return models.Result{Success: false, Error: err.Error()}
}

func (s *Service) server(ctx context.Context, serverID string) (models.Server, error) {
	var server models.Server

	doc, err := s.db.Get(ctx, models.ServerPath(serverID))
	if err != nil {
		return server, fmt.Errorf("couldn't fetch server [%s]: %w", serverID, err)
	}
	if err := docstore.Decode(doc, &server); err != nil {
		return server, err
	}
	server.ID = serverID
	return server, nil
}

func (s *Service) member(ctx context.Context, serverID string, userID string) (models.Member, error) {
	var member models.Member

	doc, err := s.db.Get(ctx, models.MemberPath(serverID, userID))
	if errors.Is(err, docstore.ErrNotFound) {
		return member, ErrNotMember
	} else if err != nil {
		return member, err
	}
	if err := docstore.Decode(doc, &member); err != nil {
		return member, err
	}
	member.ServerID = serverID
	member.UserID = userID
	return member, nil
}

func (s *Service) roles(ctx context.Context, serverID string) ([]models.Role, error) {
	docs, err := s.db.List(ctx, docstore.Query{Path: models.SubcollectionPath(serverID, models.RolesCollection)})
	if err != nil {
		return nil, err
	}
	roles, errs := docstore.DecodeAll[models.Role](docs)
	for _, err := range errs {
		s.sugar.Warnf("Skipping malformed role in server [%s]: %v", serverID, err)
	}
	return roles, nil
}

func (s *Service) channels(ctx context.Context, serverID string) ([]models.Channel, error) {
	docs, err := s.db.List(ctx, docstore.Query{Path: models.SubcollectionPath(serverID, models.ChannelsCollection)})
	if err != nil {
		return nil, err
	}
	channels, errs := docstore.DecodeAll[models.Channel](docs)
	for _, err := range errs {
		s.sugar.Warnf("Skipping malformed channel in server [%s]: %v", serverID, err)
	}
	return channels, nil
}

func (s *Service) members(ctx context.Context, serverID string) ([]models.Member, error) {
	docs, err := s.db.List(ctx, docstore.Query{Path: models.SubcollectionPath(serverID, models.MembersCollection)})
	if err != nil {
		return nil, err
	}

	members := make([]models.Member, 0, len(docs))
	for _, doc := range docs {
		var member models.Member
		if err := docstore.Decode(doc, &member); err != nil {
			s.sugar.Warnf("Skipping malformed member in server [%s]: %v", serverID, err)
			continue
		}
		member.UserID = doc.ID
		members = append(members, member)
	}
	return members, nil
}

// authorize loads the server and checks that actorID may use capability in
// it. An empty capability means only the owner may act.
func (s *Service) authorize(ctx context.Context, serverID string, actorID string, capability string) (models.Server, error) {
	server, err := s.server(ctx, serverID)
	if err != nil {
		return server, err
	}

	if server.OwnerID == actorID {
		return server, nil
	}
	if capability == "" {
		s.sugar.Warnf("User ID [%s] tried an owner only action in server ID [%s] they don't own", actorID, serverID)
		return server, ErrForbidden
	}

	member, err := s.member(ctx, serverID, actorID)
	if errors.Is(err, ErrNotMember) {
		return server, fmt.Errorf("%w: %s", ErrForbidden, err)
	} else if err != nil {
		return server, err
	}

	roles, err := s.roles(ctx, serverID)
	if err != nil {
		return server, err
	}

	if !permissions.HasCapability(server, member, roles, capability) {
		s.sugar.Warnf("User ID [%s] lacks %s in server ID [%s]", actorID, capability, serverID)
		return server, fmt.Errorf("%w: missing %s", ErrForbidden, capability)
	}

	return server, nil
}

// rank is the position of the highest role userID holds, -1 when they aren't
// a member.
func (s *Service) rank(ctx context.Context, serverID string, userID string, roles []models.Role) (int, error) {
	member, err := s.member(ctx, serverID, userID)
	if errors.Is(err, ErrNotMember) {
		return -1, nil
	} else if err != nil {
		return 0, err
	}

	top, ok := permissions.HighestRole(member, roles)
	if !ok {
		return 0, nil
	}
	return top.Position, nil
}

// outranks fails unless actorID's highest role sits above position. The owner
// outranks everyone.
func (s *Service) outranks(ctx context.Context, server models.Server, actorID string, position int) error {
	if actorID == server.OwnerID {
		return nil
	}

	roles, err := s.roles(ctx, server.ID)
	if err != nil {
		return err
	}
	return s.above(ctx, server.ID, actorID, position, roles)
}

// outranksMember is outranks against the highest role of targetID.
func (s *Service) outranksMember(ctx context.Context, server models.Server, actorID string, targetID string) error {
	if actorID == server.OwnerID {
		return nil
	}

	roles, err := s.roles(ctx, server.ID)
	if err != nil {
		return err
	}
	targetRank, err := s.rank(ctx, server.ID, targetID, roles)
	if err != nil {
		return err
	}
	return s.above(ctx, server.ID, actorID, targetRank, roles)
}

func (s *Service) above(ctx context.Context, serverID string, actorID string, position int, roles []models.Role) error {
	actorRank, err := s.rank(ctx, serverID, actorID, roles)
	if err != nil {
		return err
	}
	if actorRank <= position {
		return fmt.Errorf("%w: %d <= %d", ErrHierarchy, actorRank, position)
	}
	return nil
}

// profile reads the user's profile. Members written without a name get
// repaired by the session later, so a missing profile isn't an error here.
func (s *Service) profile(ctx context.Context, userID string) models.User {
	user := models.User{ID: userID}

	doc, err := s.db.Get(ctx, models.UserPath(userID))
	if err != nil {
		s.sugar.Debugf("No profile for user ID [%s]: %v", userID, err)
		return user
	}
	if err := docstore.Decode(doc, &user); err != nil {
		s.sugar.Warnf("Malformed profile of user ID [%s]: %v", userID, err)
	}
	user.ID = userID
	return user
}

func (s *Service) set(ctx context.Context, path string, v any) error {
	data, err := docstore.Encode(v)
	if err != nil {
		return err
	}
	return s.db.Set(ctx, path, data)
}
