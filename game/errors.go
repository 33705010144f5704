package game

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindAuthorization      ErrorKind = "authorization"
	KindStateConflict      ErrorKind = "state-conflict"
	KindResourceExhaustion ErrorKind = "resource-exhaustion"
	KindInfra              ErrorKind = "infra"
)

// ActionError is surfaced to the connection that issued the action.
// Two ActionErrors match under errors.Is when their codes are equal.
type ActionError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Is(target error) bool {
	t, ok := target.(*ActionError)
	return ok && t.Code == e.Code
}

func (e *ActionError) withMessage(format string, args ...any) *ActionError {
	return &ActionError{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

func newActionError(kind ErrorKind, code, message string) *ActionError {
	return &ActionError{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidPayload      = newActionError(KindValidation, "invalid-payload", "Invalid payload")
	ErrUnknownAction       = newActionError(KindValidation, "unknown-action", "Unknown action")
	ErrInvalidRoomCode     = newActionError(KindValidation, "invalid-room-code", "Invalid room ID")
	ErrUnsupportedLanguage = newActionError(KindValidation, "unsupported-language", "Unsupported language")
	ErrEmptyCode           = newActionError(KindValidation, "empty-code", "Code cannot be empty")
	ErrCodeTooLarge        = newActionError(KindValidation, "code-too-large", "Code is too large")
	ErrNoProblemsSelected  = newActionError(KindValidation, "no-problems-selected", "Select at least one problem")
	ErrUnknownProblem      = newActionError(KindValidation, "unknown-problem", "Problem not found")
	ErrProblemNotInRoom    = newActionError(KindValidation, "problem-not-in-room", "Problem is not part of this room")
	ErrInvalidDuration     = newActionError(KindValidation, "invalid-duration", "Duration is out of range")
	ErrInvalidPenalty      = newActionError(KindValidation, "invalid-penalty", "Penalty is out of range")
)

var (
	ErrNotAdmin       = newActionError(KindAuthorization, "not-admin", "Only admin can do this")
	ErrNotMember      = newActionError(KindAuthorization, "not-member", "You are not in this room")
	ErrNotParticipant = newActionError(KindAuthorization, "not-participant", "You are not a participant of this room")
)

var (
	ErrRoomNotFound          = newActionError(KindStateConflict, "room-not-found", "Room does not exist")
	ErrRoomUnavailable       = newActionError(KindStateConflict, "room-unavailable", "Room has already started")
	ErrRoomNotInLobby        = newActionError(KindStateConflict, "room-not-in-lobby", "Room is not in the lobby")
	ErrProblemsNotConfigured = newActionError(KindStateConflict, "problems-not-configured", "Configure problems before starting")
	ErrMembersNotReady       = newActionError(KindStateConflict, "members-not-ready", "All members must be ready")
	ErrArenaNotActive        = newActionError(KindStateConflict, "arena-not-active", "Arena is not active")
	ErrArenaNotFinished      = newActionError(KindStateConflict, "arena-not-finished", "Codes are visible once the arena has finished")
	ErrCodeNotFound          = newActionError(KindStateConflict, "code-not-found", "No code found for this participant")
)

var (
	ErrRoomFull            = newActionError(KindResourceExhaustion, "room-full", "Room is full")
	ErrTooManyProblems     = newActionError(KindResourceExhaustion, "too-many-problems", "Too many problems selected")
	ErrRateLimited         = newActionError(KindResourceExhaustion, "rate-limited", "Too many requests. Slow down.")
	ErrExecutionInProgress = newActionError(KindResourceExhaustion, "execution-in-progress", "Another execution is already running")
)

var ErrInfra = newActionError(KindInfra, "infra", "Something went wrong")

var ErrSendBufferFull = errors.New("send-buffer-full")

// asActionError never returns nil for a non-nil err.
func asActionError(err error) *ActionError {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae
	}
	return ErrInfra
}
