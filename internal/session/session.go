// Package session keeps the currently selected server and its channels, roles,
// members, badges and voice presence live-synchronized with the document store.
package session

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/keyValue"
	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrServerNotFound = errors.New("server not found")

// State is a snapshot of the session. Slices and maps are copies.
type State struct {
	SelectedServerID string                            `json:"selectedServerId"`
	Server           *models.Server                    `json:"server"`
	Channels         []models.Channel                  `json:"channels"`
	Roles            []models.Role                     `json:"roles"`
	Members          []models.Member                   `json:"members"`
	Badges           []models.Badge                    `json:"badges"`
	VoicePresence    map[string][]models.PresenceEntry `json:"voicePresence"`
	Loading          bool                              `json:"loading"`
	Error            string                            `json:"error,omitempty"`
}

type Store struct {
	mutex         sync.RWMutex
	sugar         *zap.SugaredLogger
	db            docstore.Store
	profiles      *keyValue.Profiles
	presenceLimit int

	// bumped on every selection, callbacks opened for an older one are ignored
	generation uint64
	selected   string
	server     *models.Server
	channels   []models.Channel
	roles      []models.Role
	members    []models.Member
	badges     []models.Badge
	presence   map[string][]models.PresenceEntry
	loading    bool
	err        string

	watches          []docstore.Unsubscribe
	presenceWatch    docstore.Unsubscribe
	voiceKey         string
	repairing        map[string]struct{}
	observers        map[int]func(State)
	nextObserverID   int
	repairs          sync.WaitGroup
	backgroundCtx    context.Context
	cancelBackground context.CancelFunc
}

func New(sugar *zap.SugaredLogger, db docstore.Store, profiles *keyValue.Profiles, presenceLimit int) *Store {
	if presenceLimit <= 0 || presenceLimit > docstore.MaxInFilter {
		presenceLimit = docstore.MaxInFilter
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Store{
		sugar:            sugar,
		db:               db,
		profiles:         profiles,
		presenceLimit:    presenceLimit,
		presence:         make(map[string][]models.PresenceEntry),
		repairing:        make(map[string]struct{}),
		observers:        make(map[int]func(State)),
		backgroundCtx:    ctx,
		cancelBackground: cancel,
	}
}

// SelectServer makes serverID the selected server, "" returns to the home
// state. Selecting the server that is already selected does nothing, unless
// loading it failed, then it is retried.
func (s *Store) SelectServer(ctx context.Context, serverID string) error {
	s.mutex.Lock()
	failed := serverID != "" && s.server == nil && s.err != "" && !s.loading
	if serverID == s.selected && !failed {
		s.mutex.Unlock()
		return nil
	}

	s.generation++
	generation := s.generation
	stale := s.takeWatches()

	s.selected = serverID
	s.server = nil
	s.channels = nil
	s.roles = nil
	s.members = nil
	s.badges = nil
	s.presence = make(map[string][]models.PresenceEntry)
	s.repairing = make(map[string]struct{})
	s.loading = serverID != ""
	s.err = ""
	s.mutex.Unlock()

	for _, unsubscribe := range stale {
		unsubscribe()
	}
	s.publish()

	if serverID == "" {
		s.sugar.Debug("Returned to home, no server selected")
		return nil
	}

	s.sugar.Debugf("Selecting server ID [%s]", serverID)

	doc, err := s.db.Get(ctx, models.ServerPath(serverID))
	if err == nil {
		var server models.Server
		if err = docstore.Decode(doc, &server); err == nil {
			s.mutex.Lock()
			if generation == s.generation {
				s.server = &server
			}
			s.mutex.Unlock()
		}
	}
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
		}
		s.sugar.Warnf("Couldn't load server ID [%s]: %v", serverID, err)

		s.mutex.Lock()
		if generation == s.generation {
			s.loading = false
			s.err = err.Error()
		}
		s.mutex.Unlock()
		s.publish()
		return err
	}

	watches := []docstore.Unsubscribe{
		s.db.Watch(docstore.Query{Path: models.SubcollectionPath(serverID, models.ChannelsCollection)}, s.channelsListener(generation)),
		s.db.Watch(docstore.Query{Path: models.SubcollectionPath(serverID, models.RolesCollection)}, s.rolesListener(generation)),
		s.db.Watch(docstore.Query{Path: models.SubcollectionPath(serverID, models.MembersCollection)}, s.membersListener(generation, serverID)),
		s.db.Watch(docstore.Query{Path: models.SubcollectionPath(serverID, models.BadgesCollection)}, s.badgesListener(generation)),
	}

	s.mutex.Lock()
	if generation != s.generation {
		s.mutex.Unlock()
		for _, unsubscribe := range watches {
			unsubscribe()
		}
		return nil
	}
	s.watches = append(s.watches, watches...)
	s.loading = false
	s.mutex.Unlock()

	s.publish()
	return nil
}

// takeWatches detaches every open watch of the current selection. Expects
// s.mutex to be held.
func (s *Store) takeWatches() []docstore.Unsubscribe {
	stale := s.watches
	if s.presenceWatch != nil {
		stale = append(stale, s.presenceWatch)
	}
	s.watches = nil
	s.presenceWatch = nil
	s.voiceKey = ""
	return stale
}

// current reports whether generation is still the live selection. Expects
// s.mutex to be held.
func (s *Store) current(generation uint64) bool {
	return generation == s.generation
}

func (s *Store) listenerFailed(generation uint64, what string, err error) {
	s.sugar.Errorf("Listener for %s failed: %v", what, err)

	s.mutex.Lock()
	if !s.current(generation) {
		s.mutex.Unlock()
		return
	}
	s.err = fmt.Sprintf("couldn't load %s", what)
	s.mutex.Unlock()
	s.publish()
}

func (s *Store) logDecodeErrors(what string, errs []error) {
	for _, err := range errs {
		s.sugar.Warnf("Skipping malformed %s document: %v", what, err)
	}
}

func (s *Store) channelsListener(generation uint64) docstore.Listener {
	return func(docs []docstore.Document, err error) {
		if err != nil {
			s.listenerFailed(generation, "channels", err)
			return
		}

		channels, errs := docstore.DecodeAll[models.Channel](docs)
		s.logDecodeErrors("channel", errs)
		permissions.SortChannels(channels)

		voiceIDs := voiceChannelIDs(channels)
		key := voiceKey(voiceIDs)

		s.mutex.Lock()
		if !s.current(generation) {
			s.mutex.Unlock()
			return
		}
		s.channels = channels

		resubscribe := key != s.voiceKey
		var stale docstore.Unsubscribe
		if resubscribe {
			stale = s.presenceWatch
			s.presenceWatch = nil
			s.voiceKey = key
			for channelID := range s.presence {
				if !slices.Contains(voiceIDs, channelID) {
					delete(s.presence, channelID)
				}
			}
		}
		s.mutex.Unlock()

		if stale != nil {
			stale()
		}

		if resubscribe && len(voiceIDs) > 0 {
			s.watchPresence(generation, key, voiceIDs)
		}

		s.publish()
	}
}

func (s *Store) watchPresence(generation uint64, key string, voiceIDs []string) {
	ids := voiceIDs
	if len(ids) > s.presenceLimit {
		s.sugar.Warnf("Server has %d voice channels, only the first %d get live presence", len(ids), s.presenceLimit)
		ids = ids[:s.presenceLimit]
	}

	s.sugar.Debugf("Watching voice presence of %d channels", len(ids))

	unsubscribe := s.db.Watch(docstore.Query{Path: models.PresenceCollection, IDs: slices.Clone(ids)}, s.presenceListener(generation, key))

	s.mutex.Lock()
	if !s.current(generation) || s.voiceKey != key {
		s.mutex.Unlock()
		unsubscribe()
		return
	}
	s.presenceWatch = unsubscribe
	s.mutex.Unlock()
}

func (s *Store) presenceListener(generation uint64, key string) docstore.Listener {
	return func(docs []docstore.Document, err error) {
		if err != nil {
			s.listenerFailed(generation, "voice presence", err)
			return
		}

		entries, errs := docstore.DecodeAll[models.VoicePresence](docs)
		s.logDecodeErrors("voice presence", errs)

		presence := make(map[string][]models.PresenceEntry, len(entries))
		for _, entry := range entries {
			presence[entry.ID] = entry.Users
		}

		s.mutex.Lock()
		if !s.current(generation) || s.voiceKey != key {
			s.mutex.Unlock()
			return
		}
		s.presence = presence
		s.mutex.Unlock()

		s.publish()
	}
}

func (s *Store) rolesListener(generation uint64) docstore.Listener {
	return func(docs []docstore.Document, err error) {
		if err != nil {
			s.listenerFailed(generation, "roles", err)
			return
		}

		roles, errs := docstore.DecodeAll[models.Role](docs)
		s.logDecodeErrors("role", errs)
		permissions.SortRoles(roles)

		s.mutex.Lock()
		if !s.current(generation) {
			s.mutex.Unlock()
			return
		}
		s.roles = roles
		s.mutex.Unlock()

		s.publish()
	}
}

func (s *Store) badgesListener(generation uint64) docstore.Listener {
	return func(docs []docstore.Document, err error) {
		if err != nil {
			s.listenerFailed(generation, "badges", err)
			return
		}

		badges, errs := docstore.DecodeAll[models.Badge](docs)
		s.logDecodeErrors("badge", errs)

		s.mutex.Lock()
		if !s.current(generation) {
			s.mutex.Unlock()
			return
		}
		s.badges = badges
		s.mutex.Unlock()

		s.publish()
	}
}

func (s *Store) membersListener(generation uint64, serverID string) docstore.Listener {
	return func(docs []docstore.Document, err error) {
		if err != nil {
			s.listenerFailed(generation, "members", err)
			return
		}

		members := make([]models.Member, 0, len(docs))
		for _, doc := range docs {
			var member models.Member
			if err := docstore.Decode(doc, &member); err != nil {
				s.logDecodeErrors("member", []error{err})
				continue
			}
			// member documents are keyed by user id
			if member.UserID == "" {
				member.UserID = doc.ID
			}
			members = append(members, member)
		}

		s.mutex.Lock()
		if !s.current(generation) {
			s.mutex.Unlock()
			return
		}
		s.members = members

		var repair []string
		if s.profiles != nil {
			for _, member := range members {
				if strings.TrimSpace(member.DisplayName) != "" {
					continue
				}
				if _, ok := s.repairing[member.UserID]; ok {
					continue
				}
				s.repairing[member.UserID] = struct{}{}
				repair = append(repair, member.UserID)
			}
			s.repairs.Add(len(repair))
		}
		s.mutex.Unlock()

		for _, userID := range repair {
			go s.repairMember(generation, serverID, userID)
		}

		s.publish()
	}
}

// repairMember backfills the display name of a member record that was written
// without one.
func (s *Store) repairMember(generation uint64, serverID string, userID string) {
	defer s.repairs.Done()

	ctx := s.backgroundCtx

	user, err := s.profiles.Lookup(ctx, userID)
	if err != nil {
		s.sugar.Warnf("Couldn't repair name of member [%s] in server [%s]: %v", userID, serverID, err)
		return
	}
	if strings.TrimSpace(user.DisplayName) == "" {
		s.sugar.Debugf("User ID [%s] has no display name either", userID)
		return
	}

	fields := map[string]any{"displayName": user.DisplayName}
	if user.PhotoURL != "" {
		fields["photoURL"] = user.PhotoURL
	}

	s.mutex.Lock()
	if s.current(generation) {
		for i := range s.members {
			if s.members[i].UserID == userID && strings.TrimSpace(s.members[i].DisplayName) == "" {
				s.members[i].DisplayName = user.DisplayName
				if s.members[i].PhotoURL == "" {
					s.members[i].PhotoURL = user.PhotoURL
				}
			}
		}
	}
	s.mutex.Unlock()
	s.publish()

	if err := s.db.Update(ctx, models.MemberPath(serverID, userID), fields); err != nil {
		s.sugar.Warnf("Couldn't save repaired name of member [%s] in server [%s]: %v", userID, serverID, err)
	}
}

func voiceChannelIDs(channels []models.Channel) []string {
	var ids []string
	for _, channel := range channels {
		if channel.IsVoice() {
			ids = append(ids, channel.ID)
		}
	}
	return ids
}

// voiceKey is the order independent signature of a voice channel id set.
func voiceKey(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return strings.Join(sorted, ",")
}

// CanUserViewChannel resolves channel visibility against the selected
// server's default role.
func (s *Store) CanUserViewChannel(channel models.Channel, roleIDs []string) bool {
	s.mutex.RLock()
	defaultRoleID := s.defaultRoleID()
	s.mutex.RUnlock()

	return permissions.CanViewChannel(channel, roleIDs, defaultRoleID)
}

// DefaultRoleID is the "everyone" role of the selected server.
func (s *Store) DefaultRoleID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.defaultRoleID()
}

// defaultRoleID expects s.mutex to be held.
func (s *Store) defaultRoleID() string {
	if s.server != nil && s.server.DefaultRoleID != "" {
		return s.server.DefaultRoleID
	}
	for _, role := range s.roles {
		if role.IsDefault {
			return role.ID
		}
	}
	return ""
}

// VisibleChannels lists the channels userID can see, in display order.
func (s *Store) VisibleChannels(userID string) []models.Channel {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	defaultRoleID := s.defaultRoleID()

	var roleIDs []string
	for _, member := range s.members {
		if member.UserID == userID {
			roleIDs = member.Roles
			break
		}
	}

	visible := []models.Channel{}
	for _, channel := range s.channels {
		if permissions.CanViewChannel(channel, roleIDs, defaultRoleID) {
			visible = append(visible, channel)
		}
	}
	return visible
}

// Member returns the selected server's member record of userID.
func (s *Store) Member(userID string) (models.Member, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, member := range s.members {
		if member.UserID == userID {
			return member, true
		}
	}
	return models.Member{}, false
}

// Channel returns a channel of the selected server.
func (s *Store) Channel(channelID string) (models.Channel, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, channel := range s.channels {
		if channel.ID == channelID {
			return channel, true
		}
	}
	return models.Channel{}, false
}

func (s *Store) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.snapshot()
}

// snapshot expects s.mutex to be held.
func (s *Store) snapshot() State {
	state := State{
		SelectedServerID: s.selected,
		Channels:         slices.Clone(s.channels),
		Roles:            slices.Clone(s.roles),
		Members:          slices.Clone(s.members),
		Badges:           slices.Clone(s.badges),
		VoicePresence:    make(map[string][]models.PresenceEntry, len(s.presence)),
		Loading:          s.loading,
		Error:            s.err,
	}
	if s.server != nil {
		server := *s.server
		server.MemberIDs = slices.Clone(server.MemberIDs)
		state.Server = &server
	}
	for channelID, users := range s.presence {
		state.VoicePresence[channelID] = slices.Clone(users)
	}
	return state
}

// Subscribe calls observer with a fresh snapshot after every change. The
// returned func removes the observer.
func (s *Store) Subscribe(observer func(State)) func() {
	s.mutex.Lock()
	id := s.nextObserverID
	s.nextObserverID++
	s.observers[id] = observer
	s.mutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mutex.Lock()
			delete(s.observers, id)
			s.mutex.Unlock()
		})
	}
}

func (s *Store) publish() {
	s.mutex.RLock()
	if len(s.observers) == 0 {
		s.mutex.RUnlock()
		return
	}
	state := s.snapshot()
	observers := make([]func(State), 0, len(s.observers))
	for _, observer := range s.observers {
		observers = append(observers, observer)
	}
	s.mutex.RUnlock()

	for _, observer := range observers {
		observer(state)
	}
}

// Close releases every watch and waits for running member repairs.
func (s *Store) Close() {
	s.mutex.Lock()
	s.generation++
	stale := s.takeWatches()
	s.selected = ""
	s.mutex.Unlock()

	for _, unsubscribe := range stale {
		unsubscribe()
	}

	s.cancelBackground()
	s.repairs.Wait()
}
