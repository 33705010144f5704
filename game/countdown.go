package game

import "time"

// StartRoom moves a startable lobby into the countdown.
func (s *Service) StartRoom(sess *Session, in RoomInput) error {
	room, m, err := s.memberRoom(sess, in.RoomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if !m.identity.IsAdmin() {
		return ErrNotAdmin
	}
	if room.status != StatusLobby {
		return ErrRoomNotInLobby
	}
	if room.problemSet == nil || len(room.problemSet.ids) == 0 {
		return ErrProblemsNotConfigured
	}
	if !room.canStart() {
		return ErrMembersNotReady
	}

	now := s.clock.Now()
	total := time.Duration(s.opts.CountdownSeconds) * time.Second
	endsAt := now.Add(total)
	room.status = StatusCountdown
	room.countdownEndsAt = endsAt
	room.abandonedAt = time.Time{}

	s.logger.Info().Str("room", room.code).Int("seconds", s.opts.CountdownSeconds).Msg("countdown started")
	s.broadcastLobby(room)
	s.broadcast(room, EventRoomCountdown, countdownView(room.code, endsAt, now))
	s.scheduleTick(room, endsAt)
	s.timers.schedule(room.code, countdownDone, total, func() { s.completeCountdown(room, endsAt) })
	return nil
}

func countdownView(code string, endsAt, now time.Time) CountdownView {
	left := endsAt.Sub(now)
	secs := int((left + time.Second - 1) / time.Second)
	return CountdownView{RoomID: code, SecondsLeft: max(0, secs), CountdownEndsAt: endsAt.UnixMilli()}
}

// scheduleTick arms the next one-second tick while the countdown has more
// than a second left. Called with room.mu held.
func (s *Service) scheduleTick(room *Room, endsAt time.Time) {
	if endsAt.Sub(s.clock.Now()) <= time.Second {
		return
	}
	s.timers.schedule(room.code, countdownTick, time.Second, func() { s.tick(room, endsAt) })
}

func (s *Service) tick(room *Room, endsAt time.Time) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.deleted || room.status != StatusCountdown || !room.countdownEndsAt.Equal(endsAt) {
		return
	}
	s.broadcast(room, EventRoomCountdown, countdownView(room.code, endsAt, s.clock.Now()))
	s.scheduleTick(room, endsAt)
}

func (s *Service) completeCountdown(room *Room, endsAt time.Time) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.deleted || room.status != StatusCountdown || !room.countdownEndsAt.Equal(endsAt) {
		return
	}
	s.timers.cancel(room.code, countdownTick, countdownDone)
	s.beginArena(room)
}

// beginArena seeds one participant state per known profile. Called with
// room.mu held.
func (s *Service) beginArena(room *Room) {
	now := s.clock.Now()
	duration := time.Duration(room.problemSet.durationSeconds) * time.Second
	room.status = StatusStarted
	room.countdownEndsAt = time.Time{}
	room.arena = &arena{
		startedAt:    now,
		endsAt:       now.Add(duration),
		participants: map[string]*participantState{},
	}
	for userID := range room.participantIds {
		if _, ok := room.participantProfiles[userID]; ok {
			room.participant(userID)
		}
	}

	startedAt := room.arena.startedAt
	s.timers.schedule(room.code, arenaExpiry, duration, func() { s.expireArena(room, startedAt) })

	s.logger.Info().Str("room", room.code).Int("participants", len(room.arena.participants)).Time("endsAt", room.arena.endsAt).Msg("arena started")
	s.broadcast(room, EventRoomStarted, RoomStartedView{
		RoomID:    room.code,
		StartedAt: startedAt.UnixMilli(),
		EndsAt:    room.arena.endsAt.UnixMilli(),
	})
	s.broadcastLobby(room)
	s.broadcastArena(room, EventArenaState)
}

func (s *Service) expireArena(room *Room, startedAt time.Time) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.deleted || room.status != StatusStarted || room.arena == nil || !room.arena.startedAt.Equal(startedAt) {
		return
	}
	s.finish(room, FinishTimeUp)
}
