package game

import (
	"sync"
	"time"
)

type timerKind int

const (
	countdownTick timerKind = iota
	countdownDone
	arenaExpiry
)

type timerKey struct {
	room string
	kind timerKind
}

// timerTable owns every pending callback keyed by room. Callers hold the
// room lock while scheduling or canceling so a transition and the
// cancellation of the timers it invalidates happen together.
type timerTable struct {
	clock  Clock
	mu     sync.Mutex
	timers map[timerKey]Timer
}

func newTimerTable(clock Clock) *timerTable {
	return &timerTable{clock: clock, timers: map[timerKey]Timer{}}
}

func (t *timerTable) schedule(room string, kind timerKind, d time.Duration, f func()) {
	key := timerKey{room: room, kind: kind}
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[key]; ok {
		old.Stop()
	}
	t.timers[key] = t.clock.AfterFunc(d, f)
}

func (t *timerTable) cancel(room string, kinds ...timerKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, kind := range kinds {
		key := timerKey{room: room, kind: kind}
		if timer, ok := t.timers[key]; ok {
			timer.Stop()
			delete(t.timers, key)
		}
	}
}

func (t *timerTable) cancelRoom(room string) {
	t.cancel(room, countdownTick, countdownDone, arenaExpiry)
}

func (t *timerTable) pending(room string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key := range t.timers {
		if key.room == room {
			n++
		}
	}
	return n
}
