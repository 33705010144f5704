package game

import "encoding/json"

// Client actions.
const (
	ActionCreateRoom             = "create-room"
	ActionJoinRoom               = "join-room"
	ActionLeaveRoom              = "leave-room"
	ActionToggleReady            = "toggle-ready"
	ActionSetRoomProblems        = "set-room-problems"
	ActionStartRoom              = "start-room"
	ActionArenaCodeUpdate        = "arena-code-update"
	ActionRunCode                = "run-code"
	ActionSubmitSolution         = "submit-solution"
	ActionRequestParticipantCode = "request-participant-code"
	ActionGetArenaState          = "get-arena-state"
	ActionGetProblemCatalog      = "get-problem-catalog"
)

// Server events.
const (
	EventRoomCreated       = "room-created"
	EventRoomJoined        = "room-joined"
	EventRoomLeft          = "room-left"
	EventLobbyUpdate       = "lobby-update"
	EventRoomCountdown     = "room-countdown"
	EventRoomStarted       = "room-started"
	EventRoomResume        = "room-resume"
	EventRoomFinished      = "room-finished"
	EventArenaState        = "arena-state"
	EventCodeRunResult     = "code-run-result"
	EventSolutionSubmitted = "solution-submitted"
	EventParticipantCode   = "participant-code"
	EventCodePresence      = "arena-code-presence"
	EventProblemCatalog    = "problem-catalog"
	EventRoomProblemsSet   = "room-problems-set"
	EventSocketError       = "socket-error"
)

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outgoing struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func encodeEvent(event string, data any) ([]byte, error) {
	return json.Marshal(outgoing{Type: event, Data: data})
}

type socketErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type roomRef struct {
	RoomID string `json:"roomId"`
}
