package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/SravanamCharan20/CodeClash/catalog"
	"github.com/SravanamCharan20/CodeClash/domain"
	"github.com/SravanamCharan20/CodeClash/sandbox"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Identity{UserID: "u-alice", Username: "alice", Role: domain.RoleAdmin}
	bob   = domain.Identity{UserID: "u-bob", Username: "bob", Role: domain.RoleUser}
	carol = domain.Identity{UserID: "u-carol", Username: "carol", Role: domain.RoleUser}
)

var epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// --- manualClock ---

type manualTimer struct {
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
	clock   *manualClock
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{at: c.now.Add(d), seq: c.seq, f: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in order. Timers scheduled
// by a callback fire too when they fall inside the window.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.at.After(c.now) {
			c.now = next.at
		}
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

func (c *manualClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// --- recorder ---

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type recorder struct {
	mu     sync.Mutex
	frames []frame
	closed string
}

func (r *recorder) Send(data []byte) error {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Close(reason string) {
	r.mu.Lock()
	r.closed = reason
	r.mu.Unlock()
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Type)
	}
	return out
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.events() {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) last(event string) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].Type == event {
			return r.frames[i].Data, true
		}
	}
	return nil, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}

func lastEvent[T any](t *testing.T, r *recorder, event string) T {
	t.Helper()
	raw, ok := r.last(event)
	require.True(t, ok, "no %s event in %v", event, r.events())
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// --- fakeExecutor ---

type fakeExecutor struct {
	mu       sync.Mutex
	requests []sandbox.Request
	respond  func(req sandbox.Request) sandbox.Result
	gate     chan struct{}
	started  chan struct{}
}

func (f *fakeExecutor) Execute(ctx context.Context, req sandbox.Request) sandbox.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond, gate, started := f.respond, f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return sandbox.Failure(sandbox.ErrorInfra, "canceled")
		}
	}
	if respond == nil {
		return accepted(len(req.Tests))
	}
	return respond(req)
}

func (f *fakeExecutor) setResponse(result sandbox.Result) {
	f.mu.Lock()
	f.respond = func(sandbox.Request) sandbox.Result { return result }
	f.mu.Unlock()
}

func (f *fakeExecutor) calls() []sandbox.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sandbox.Request(nil), f.requests...)
}

func accepted(tests int) sandbox.Result {
	results := make([]sandbox.TestResult, tests)
	for i := range results {
		results[i] = sandbox.TestResult{Index: i, Passed: true, RuntimeMs: 2}
	}
	return sandbox.Result{Ok: true, PassedAll: true, PassedCount: tests, RuntimeMs: int64(2 * tests), Results: results}
}

func wrongAnswer() sandbox.Result {
	return sandbox.Result{
		Ok:          true,
		PassedCount: 1,
		FailedCount: 1,
		RuntimeMs:   5,
		Results: []sandbox.TestResult{
			{Index: 0, Passed: true, RuntimeMs: 2},
			{Index: 1, Passed: false, RuntimeMs: 3},
		},
	}
}

// --- fixtures ---

type fixture struct {
	svc   *Service
	clock *manualClock
	exec  *fakeExecutor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	problems, err := catalog.Default()
	require.NoError(t, err)
	clock := newManualClock(epoch)
	exec := &fakeExecutor{}
	svc := NewService(NewRegistry(), clock, problems, exec, zerolog.Nop(), DefaultOptions())
	return &fixture{svc: svc, clock: clock, exec: exec}
}

type client struct {
	sess *Session
	rec  *recorder
}

func (f *fixture) connect(identity domain.Identity) *client {
	rec := &recorder{}
	return &client{sess: NewSession(identity, rec, NewAbuseGuard()), rec: rec}
}

func (f *fixture) room(t *testing.T, code string) *Room {
	t.Helper()
	room, ok := f.svc.registry.Get(code)
	require.True(t, ok, "room %s not found", code)
	return room
}

// inspect runs fn with the room locked.
func (f *fixture) inspect(t *testing.T, code string, fn func(r *Room)) {
	t.Helper()
	room := f.room(t, code)
	room.mu.Lock()
	defer room.mu.Unlock()
	fn(room)
}

// lobby creates a room owned by admin, seats the others and configures
// problemIDs with a 120s duration and 20s penalty.
func (f *fixture) lobby(t *testing.T, admin *client, others []*client, problemIDs ...string) string {
	t.Helper()
	code, err := f.svc.CreateRoom(admin.sess)
	require.NoError(t, err)
	for _, c := range others {
		require.NoError(t, f.svc.JoinRoom(c.sess, JoinInput{RoomID: code}))
	}
	require.NoError(t, f.svc.SetProblems(admin.sess, ProblemsInput{
		ProblemIDs:      problemIDs,
		DurationSeconds: 120,
		PenaltySeconds:  20,
	}))
	return code
}

// arena drives a lobby through the countdown into a started arena.
func (f *fixture) arena(t *testing.T, admin *client, others []*client, problemIDs ...string) string {
	t.Helper()
	code := f.lobby(t, admin, others, problemIDs...)
	for _, c := range append([]*client{admin}, others...) {
		require.NoError(t, f.svc.ToggleReady(c.sess, ReadyInput{Ready: true}))
	}
	require.NoError(t, f.svc.StartRoom(admin.sess, RoomInput{}))
	f.clock.Advance(time.Duration(f.svc.opts.CountdownSeconds) * time.Second)
	f.inspect(t, code, func(r *Room) {
		require.Equal(t, StatusStarted, r.status)
	})
	return code
}

func (f *fixture) submit(t *testing.T, c *client, problemID string, result sandbox.Result) error {
	t.Helper()
	f.exec.setResponse(result)
	return f.svc.SubmitSolution(context.Background(), c.sess, CodeInput{
		ProblemID: problemID,
		Language:  string(sandbox.Python),
		Code:      "def solve(): pass",
	})
}
