package game

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limit struct {
	Window time.Duration
	Max    int
}

const MaxAbuseStrikes = 6

var GlobalLimit = Limit{Window: 8 * time.Second, Max: 45}

var ActionLimits = map[string]Limit{
	ActionCreateRoom:             {Window: 60 * time.Second, Max: 4},
	ActionJoinRoom:               {Window: 20 * time.Second, Max: 8},
	ActionLeaveRoom:              {Window: 20 * time.Second, Max: 8},
	ActionToggleReady:            {Window: 6 * time.Second, Max: 12},
	ActionStartRoom:              {Window: 10 * time.Second, Max: 4},
	ActionSetRoomProblems:        {Window: 20 * time.Second, Max: 10},
	ActionArenaCodeUpdate:        {Window: 10 * time.Second, Max: 40},
	ActionRunCode:                {Window: 20 * time.Second, Max: 6},
	ActionSubmitSolution:         {Window: 20 * time.Second, Max: 6},
	ActionRequestParticipantCode: {Window: 10 * time.Second, Max: 20},
	ActionGetArenaState:          {Window: 10 * time.Second, Max: 20},
	ActionGetProblemCatalog:      {Window: 10 * time.Second, Max: 20},
}

const abuseDisconnectMessage = "Too many abusive requests. Connection closed."

type GuardVerdict struct {
	Allowed    bool
	Message    string
	Disconnect bool
}

// AbuseGuard belongs to exactly one connection. Each limit is a token bucket
// holding Max tokens refilled evenly over Window.
type AbuseGuard struct {
	mu         sync.Mutex
	global     *rate.Limiter
	byAction   map[string]*rate.Limiter
	limits     map[string]Limit
	strikes    int
	maxStrikes int
}

func NewAbuseGuard() *AbuseGuard {
	return newAbuseGuard(GlobalLimit, ActionLimits, MaxAbuseStrikes)
}

func newAbuseGuard(global Limit, limits map[string]Limit, maxStrikes int) *AbuseGuard {
	return &AbuseGuard{
		global:     newLimiter(global),
		byAction:   map[string]*rate.Limiter{},
		limits:     limits,
		maxStrikes: maxStrikes,
	}
}

func newLimiter(l Limit) *rate.Limiter {
	return rate.NewLimiter(rate.Every(l.Window/time.Duration(l.Max)), l.Max)
}

func (g *AbuseGuard) Check(action string, now time.Time) GuardVerdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.global.AllowN(now, 1) {
		return g.strike("Too many requests. Slow down.")
	}

	limit, ok := g.limits[action]
	if !ok {
		return GuardVerdict{Allowed: true}
	}
	limiter, ok := g.byAction[action]
	if !ok {
		limiter = newLimiter(limit)
		g.byAction[action] = limiter
	}
	if !limiter.AllowN(now, 1) {
		return g.strike(fmt.Sprintf("Too many %s attempts. Please wait and try again.", action))
	}
	return GuardVerdict{Allowed: true}
}

func (g *AbuseGuard) strike(message string) GuardVerdict {
	g.strikes++
	return GuardVerdict{Message: message, Disconnect: g.strikes >= g.maxStrikes}
}

func (g *AbuseGuard) Strikes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.strikes
}
