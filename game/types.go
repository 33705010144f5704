package game

import (
	"sync"
	"time"

	"github.com/SravanamCharan20/CodeClash/catalog"
	"github.com/SravanamCharan20/CodeClash/domain"
	"github.com/SravanamCharan20/CodeClash/sandbox"
)

type RoomStatus string

const (
	StatusLobby     RoomStatus = "lobby"
	StatusCountdown RoomStatus = "countdown"
	StatusStarted   RoomStatus = "started"
	StatusFinished  RoomStatus = "finished"
)

type FinishReason string

const (
	FinishTimeUp    FinishReason = "time_up"
	FinishAllSolved FinishReason = "all_solved"
	// FinishModeration is reserved for an explicit stop by an operator.
	FinishModeration FinishReason = "moderation"
)

type member struct {
	session  *Session
	identity domain.Identity
	ready    bool
	seq      uint64
}

type problemSet struct {
	ids             []string
	problems        []catalog.Problem
	configuredBy    string
	configuredAt    time.Time
	durationSeconds int
	penaltySeconds  int
}

func (ps *problemSet) problem(id string) (catalog.Problem, bool) {
	for _, p := range ps.problems {
		if p.Id == id {
			return p, true
		}
	}
	return catalog.Problem{}, false
}

type problemState struct {
	attempts       int
	wrongAttempts  int
	solvedAt       time.Time
	lastResult     string
	lastRuntimeMs  int64
	codeByLanguage map[sandbox.Language]string
	lastLanguage   sandbox.Language
	updatedAt      time.Time
}

func (ps *problemState) solved() bool {
	return !ps.solvedAt.IsZero()
}

type participantState struct {
	userID              string
	solvedCount         int
	submissions         int
	acceptedSubmissions int
	wrongSubmissions    int
	penaltyMs           int64
	totalRuntimeMs      int64
	lastSubmissionAt    time.Time
	lastActivityAt      time.Time
	problems            map[string]*problemState
}

func newParticipantState(userID string) *participantState {
	return &participantState{userID: userID, problems: map[string]*problemState{}}
}

func (p *participantState) problem(id string) *problemState {
	ps, ok := p.problems[id]
	if !ok {
		ps = &problemState{codeByLanguage: map[sandbox.Language]string{}}
		p.problems[id] = ps
	}
	return ps
}

type arena struct {
	startedAt      time.Time
	endsAt         time.Time
	finishedAt     time.Time
	finishedReason FinishReason
	participants   map[string]*participantState
}

// Room is guarded by mu. Every field is read and written with mu held, and a
// room marked deleted is never mutated again.
type Room struct {
	mu      sync.Mutex
	deleted bool

	code      string
	status    RoomStatus
	createdBy string
	createdAt time.Time

	members             map[string]*member
	nextSeq             uint64
	participantIds      map[string]struct{}
	participantProfiles map[string]domain.Identity

	problemSet      *problemSet
	countdownEndsAt time.Time
	arena           *arena
	abandonedAt     time.Time
}

func newRoom(creator domain.Identity, now time.Time) *Room {
	return &Room{
		status:              StatusLobby,
		createdBy:           creator.UserID,
		createdAt:           now,
		members:             map[string]*member{},
		participantIds:      map[string]struct{}{creator.UserID: {}},
		participantProfiles: map[string]domain.Identity{creator.UserID: creator},
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) addMember(sess *Session, identity domain.Identity, ready bool) {
	r.nextSeq++
	r.members[sess.id] = &member{session: sess, identity: identity, ready: ready, seq: r.nextSeq}
	r.participantIds[identity.UserID] = struct{}{}
	r.participantProfiles[identity.UserID] = identity
	r.abandonedAt = time.Time{}
}

func (r *Room) isParticipant(userID string) bool {
	_, ok := r.participantIds[userID]
	return ok
}

func (r *Room) holdsSlot(userID string) bool {
	for _, m := range r.members {
		if m.identity.UserID == userID {
			return true
		}
	}
	return false
}

func (r *Room) hasAdmin() bool {
	for _, m := range r.members {
		if m.identity.IsAdmin() {
			return true
		}
	}
	return false
}

func (r *Room) allReady() bool {
	if len(r.members) == 0 {
		return false
	}
	for _, m := range r.members {
		if !m.ready {
			return false
		}
	}
	return true
}

// canStart is recomputed on every call and never cached.
func (r *Room) canStart() bool {
	return r.status == StatusLobby &&
		r.hasAdmin() &&
		r.allReady() &&
		r.problemSet != nil && len(r.problemSet.ids) > 0
}

// participant returns the arena state of userID, creating it on first use.
func (r *Room) participant(userID string) *participantState {
	p, ok := r.arena.participants[userID]
	if !ok {
		p = newParticipantState(userID)
		r.arena.participants[userID] = p
	}
	return p
}

func (r *Room) allSolved() bool {
	if r.arena == nil || r.problemSet == nil || len(r.arena.participants) == 0 {
		return false
	}
	for _, p := range r.arena.participants {
		if p.solvedCount < len(r.problemSet.ids) {
			return false
		}
	}
	return true
}
