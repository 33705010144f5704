package game

import (
	"strings"
	"time"

	"github.com/SravanamCharan20/CodeClash/domain"
)

type RoomInput struct {
	RoomID string `json:"roomId" validate:"max=32"`
}

type JoinInput struct {
	RoomID string `json:"roomId" validate:"required,max=32"`
}

type ReadyInput struct {
	RoomID string `json:"roomId" validate:"max=32"`
	Ready  bool   `json:"ready"`
}

type ProblemsInput struct {
	RoomID          string   `json:"roomId" validate:"max=32"`
	ProblemIDs      []string `json:"problemIds" validate:"max=64,dive,max=128"`
	DurationSeconds int      `json:"durationSeconds"`
	PenaltySeconds  int      `json:"penaltySeconds"`
}

// CreateRoom opens a lobby with the admin seated as its first member. Any
// room the connection was in is left first.
func (s *Service) CreateRoom(sess *Session) (string, error) {
	if !sess.identity.IsAdmin() {
		return "", ErrNotAdmin
	}
	s.leaveCurrent(sess)

	room := newRoom(sess.identity, s.clock.Now())
	room.mu.Lock()
	defer room.mu.Unlock()

	code := s.registry.insert(s.codes, room)
	room.addMember(sess, sess.identity, false)
	sess.setRoom(code)

	s.logger.Info().Str("room", code).Str("user", sess.identity.UserID).Msg("room created")
	sess.emit(EventRoomCreated, s.lobbyView(room))
	s.broadcastLobby(room)
	return code, nil
}

func (s *Service) JoinRoom(sess *Session, in JoinInput) error {
	code := NormalizeRoomCode(in.RoomID)
	if !ValidRoomCode(code) {
		return ErrInvalidRoomCode
	}

	if current := sess.RoomCode(); current != "" && current != code {
		// the current seat is kept when the target would refuse us
		if err := s.checkAdmission(sess, code); err != nil {
			return err
		}
		s.leaveCurrent(sess)
	}

	room, err := s.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if err := s.admit(room, sess); err != nil {
		return err
	}
	s.seat(room, sess)
	return nil
}

func (s *Service) checkAdmission(sess *Session, code string) error {
	room, err := s.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	return s.admit(room, sess)
}

// admit validates a join without changing the room.
func (s *Service) admit(room *Room, sess *Session) error {
	if _, ok := room.members[sess.id]; ok {
		return nil
	}
	userID := sess.identity.UserID
	if room.status != StatusLobby && !room.isParticipant(userID) {
		return ErrRoomUnavailable
	}
	if len(room.members) >= s.opts.MaxMembers && !room.holdsSlot(userID) {
		return ErrRoomFull
	}
	return nil
}

// seat commits an admitted join. A stale slot of the same user is evicted and
// hands its ready flag to the new one.
func (s *Service) seat(room *Room, sess *Session) {
	userID := sess.identity.UserID
	if _, ok := room.members[sess.id]; !ok {
		ready := false
		for connID, m := range room.members {
			if m.identity.UserID != userID {
				continue
			}
			ready = ready || m.ready
			delete(room.members, connID)
			m.session.clearRoom(room.code)
			m.session.emit(EventRoomLeft, roomRef{RoomID: room.code})
			s.logger.Debug().Str("room", room.code).Str("user", userID).Str("conn", connID).Msg("evicted stale slot")
		}
		room.addMember(sess, sess.identity, ready)
		if room.arena != nil {
			room.participant(userID)
		}
		sess.setRoom(room.code)
		s.logger.Info().Str("room", room.code).Str("user", userID).Str("status", string(room.status)).Msg("joined room")
	}

	sess.emit(EventRoomJoined, RoomJoinedView{RoomID: room.code, Status: room.status})
	s.broadcastLobby(room)
	if room.arena != nil {
		s.emitArena(room, sess, EventRoomResume)
		s.broadcastArena(room, EventArenaState)
	}
}

// LeaveRoom is the explicit leave action.
func (s *Service) LeaveRoom(sess *Session, in RoomInput) error {
	room, _, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	s.unseat(room, sess)
	return nil
}

// Disconnect releases whatever seat the connection holds.
func (s *Service) Disconnect(sess *Session) {
	s.leaveCurrent(sess)
}

func (s *Service) leaveCurrent(sess *Session) {
	code := sess.RoomCode()
	if code == "" {
		return
	}
	room, err := s.lockRoom(code)
	if err != nil {
		sess.clearRoom(code)
		return
	}
	defer room.mu.Unlock()
	if _, ok := room.members[sess.id]; !ok {
		sess.clearRoom(code)
		return
	}
	s.unseat(room, sess)
}

// unseat is called with room.mu held and sess seated in room.
func (s *Service) unseat(room *Room, sess *Session) {
	userID := sess.identity.UserID
	delete(room.members, sess.id)
	sess.clearRoom(room.code)
	sess.emit(EventRoomLeft, roomRef{RoomID: room.code})

	if room.status == StatusLobby && !room.holdsSlot(userID) {
		delete(room.participantIds, userID)
		delete(room.participantProfiles, userID)
	}
	s.logger.Info().Str("room", room.code).Str("user", userID).Msg("left room")

	if len(room.members) == 0 {
		if room.status == StatusLobby {
			s.deleteRoom(room, "empty-lobby")
			return
		}
		room.abandonedAt = s.clock.Now()
		return
	}

	s.broadcastLobby(room)
	if room.arena != nil {
		s.broadcastArena(room, EventArenaState)
	}
}

func (s *Service) ToggleReady(sess *Session, in ReadyInput) error {
	room, m, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if room.status != StatusLobby {
		return ErrRoomNotInLobby
	}
	m.ready = in.Ready
	s.broadcastLobby(room)
	return nil
}

// SetProblems configures the match. On a finished room it also resets the
// room to a fresh lobby for a rematch among the members present.
func (s *Service) SetProblems(sess *Session, in ProblemsInput) error {
	room, m, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if !m.identity.IsAdmin() {
		return ErrNotAdmin
	}
	if room.status != StatusLobby && room.status != StatusFinished {
		return ErrRoomNotInLobby
	}

	ps, err := s.resolveProblemSet(in, m.identity)
	if err != nil {
		return err
	}

	if room.status == StatusFinished {
		s.resetForRematch(room)
	}
	room.problemSet = ps
	for _, other := range room.members {
		other.ready = false
	}

	s.logger.Info().Str("room", room.code).Strs("problems", ps.ids).Int("duration", ps.durationSeconds).Msg("problems configured")
	s.broadcast(room, EventRoomProblemsSet, RoomProblemsSetView{RoomID: room.code, ProblemSet: buildProblemSetView(ps)})
	s.broadcastLobby(room)
	return nil
}

func (s *Service) resolveProblemSet(in ProblemsInput, by domain.Identity) (*problemSet, error) {
	seen := map[string]struct{}{}
	ids := make([]string, 0, len(in.ProblemIDs))
	for _, raw := range in.ProblemIDs {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, ErrNoProblemsSelected
	}
	if len(ids) > s.opts.MaxProblems {
		return nil, ErrTooManyProblems.withMessage("Select at most %d problems", s.opts.MaxProblems)
	}
	if in.DurationSeconds < MinDurationSeconds || in.DurationSeconds > MaxDurationSeconds {
		return nil, ErrInvalidDuration.withMessage("Duration must be between %d and %d seconds", MinDurationSeconds, MaxDurationSeconds)
	}
	if in.PenaltySeconds < 0 || in.PenaltySeconds > MaxPenaltySeconds {
		return nil, ErrInvalidPenalty.withMessage("Penalty must be between 0 and %d seconds", MaxPenaltySeconds)
	}

	ps := &problemSet{
		ids:             ids,
		configuredBy:    by.UserID,
		configuredAt:    s.clock.Now(),
		durationSeconds: in.DurationSeconds,
		penaltySeconds:  in.PenaltySeconds,
	}
	for _, id := range ids {
		p, ok := s.problems.Get(id)
		if !ok {
			return nil, ErrUnknownProblem.withMessage("Problem not found: %s", id)
		}
		ps.problems = append(ps.problems, p)
	}
	return ps, nil
}

func (s *Service) resetForRematch(room *Room) {
	s.timers.cancelRoom(room.code)
	room.status = StatusLobby
	room.arena = nil
	room.countdownEndsAt = time.Time{}
	room.abandonedAt = time.Time{}
	room.participantIds = map[string]struct{}{}
	room.participantProfiles = map[string]domain.Identity{}
	for _, m := range room.members {
		room.participantIds[m.identity.UserID] = struct{}{}
		room.participantProfiles[m.identity.UserID] = m.identity
	}
	s.logger.Info().Str("room", room.code).Msg("room reset for rematch")
}
