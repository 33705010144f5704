package game

import (
	"time"

	"github.com/SravanamCharan20/CodeClash/catalog"
	"github.com/SravanamCharan20/CodeClash/sandbox"
	"github.com/rs/zerolog"
)

const (
	MinDurationSeconds = 120
	MaxDurationSeconds = 7200
	MaxPenaltySeconds  = 300
)

type Options struct {
	MaxMembers       int
	MaxProblems      int
	CountdownSeconds int
	AbandonedTTL     time.Duration
	SampleTestLimit  int
}

func DefaultOptions() Options {
	return Options{
		MaxMembers:       20,
		MaxProblems:      5,
		CountdownSeconds: 5,
		AbandonedTTL:     30 * time.Minute,
		SampleTestLimit:  4,
	}
}

type ProblemCatalog interface {
	Get(id string) (catalog.Problem, bool)
	List(f catalog.Filter) []catalog.Summary
	Facets() catalog.Facets
}

// Service applies every room operation. Each operation locks exactly one
// room for its whole validate-then-commit step and emits the resulting views
// before releasing it.
type Service struct {
	registry *Registry
	timers   *timerTable
	clock    Clock
	problems ProblemCatalog
	executor sandbox.Executor
	logger   zerolog.Logger
	opts     Options
	codes    *codeGenerator
}

func NewService(registry *Registry, clock Clock, problems ProblemCatalog, executor sandbox.Executor, logger zerolog.Logger, opts Options) *Service {
	return &Service{
		registry: registry,
		timers:   newTimerTable(clock),
		clock:    clock,
		problems: problems,
		executor: executor,
		logger:   logger,
		opts:     opts,
		codes:    newCodeGenerator(),
	}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

// lockRoom returns the room locked, or ErrRoomNotFound when it is gone.
func (s *Service) lockRoom(code string) (*Room, error) {
	room, ok := s.registry.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	if room.deleted {
		room.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// memberRoom resolves the room an action targets and checks that sess is
// seated in it. An empty requested code means the session's current room.
// On success the room is returned locked.
func (s *Service) memberRoom(sess *Session, requested string) (*Room, *member, error) {
	code := NormalizeRoomCode(requested)
	if code == "" {
		code = sess.RoomCode()
		if code == "" {
			return nil, nil, ErrNotMember
		}
	}
	if !ValidRoomCode(code) {
		return nil, nil, ErrInvalidRoomCode
	}
	room, err := s.lockRoom(code)
	if err != nil {
		return nil, nil, err
	}
	m, ok := room.members[sess.id]
	if !ok {
		room.mu.Unlock()
		return nil, nil, ErrNotMember
	}
	return room, m, nil
}

// deleteRoom is called with room.mu held.
func (s *Service) deleteRoom(room *Room, reason string) {
	room.deleted = true
	s.timers.cancelRoom(room.code)
	s.registry.remove(room)
	s.logger.Info().Str("room", room.code).Str("reason", reason).Msg("room deleted")
}

func (s *Service) lobbyView(room *Room) LobbyView {
	return buildLobbyView(room, s.opts.MaxMembers)
}

func (s *Service) broadcast(room *Room, event string, data any) {
	for _, m := range orderedMembers(room) {
		m.session.emit(event, data)
	}
}

func (s *Service) broadcastLobby(room *Room) {
	s.broadcast(room, EventLobbyUpdate, s.lobbyView(room))
}

// broadcastArena sends every member the arena view with their own section.
func (s *Service) broadcastArena(room *Room, event string) {
	view := buildArenaView(room, s.clock.Now(), s.opts.SampleTestLimit)
	if view == nil {
		return
	}
	for _, m := range orderedMembers(room) {
		m.session.emit(event, view.withMe(room, m.identity.UserID))
	}
}

func (s *Service) emitArena(room *Room, sess *Session, event string) {
	view := buildArenaView(room, s.clock.Now(), s.opts.SampleTestLimit)
	if view == nil {
		return
	}
	sess.emit(event, view.withMe(room, sess.identity.UserID))
}
