package game

import (
	"sync"
	"sync/atomic"

	"github.com/SravanamCharan20/CodeClash/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Outbound is the write side of one client connection.
type Outbound interface {
	Send(data []byte) error
	Close(reason string)
}

// Session is the per-connection record every operation receives.
type Session struct {
	id        string
	identity  domain.Identity
	out       Outbound
	guard     *AbuseGuard
	executing atomic.Bool

	mu       sync.Mutex
	roomCode string
}

func NewSession(identity domain.Identity, out Outbound, guard *AbuseGuard) *Session {
	return &Session{
		id:       uuid.NewString(),
		identity: identity,
		out:      out,
		guard:    guard,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Identity() domain.Identity {
	return s.identity
}

func (s *Session) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode
}

func (s *Session) setRoom(code string) {
	s.mu.Lock()
	s.roomCode = code
	s.mu.Unlock()
}

// clearRoom forgets code only if it is still the session's room.
func (s *Session) clearRoom(code string) {
	s.mu.Lock()
	if s.roomCode == code {
		s.roomCode = ""
	}
	s.mu.Unlock()
}

func (s *Session) beginExecution() bool {
	return s.executing.CompareAndSwap(false, true)
}

func (s *Session) endExecution() {
	s.executing.Store(false)
}

func (s *Session) emit(event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}
	if err := s.out.Send(payload); err != nil {
		log.Debug().Err(err).Str("conn", s.id).Str("event", event).Msg("dropped event")
	}
}

func (s *Session) emitError(err error) {
	ae := asActionError(err)
	s.emit(EventSocketError, socketErrorData{Code: ae.Code, Message: ae.Message})
}
