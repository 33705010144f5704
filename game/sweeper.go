package game

import (
	"context"
	"time"
)

// Sweep reclaims rooms nobody has been connected to for longer than the
// abandoned TTL and returns how many it removed.
func (s *Service) Sweep(now time.Time) int {
	reclaimed := 0
	for _, room := range s.registry.snapshot() {
		room.mu.Lock()
		if !room.deleted && len(room.members) == 0 {
			switch {
			case room.status == StatusLobby:
				s.deleteRoom(room, "empty-lobby")
				reclaimed++
			case room.abandonedAt.IsZero():
				room.abandonedAt = now
			case now.Sub(room.abandonedAt) >= s.opts.AbandonedTTL:
				s.deleteRoom(room, "abandoned")
				reclaimed++
			}
		}
		room.mu.Unlock()
	}
	if reclaimed > 0 {
		s.logger.Info().Int("reclaimed", reclaimed).Int("remaining", s.registry.Len()).Msg("sweep finished")
	}
	return reclaimed
}

// RunSweeper sweeps on every tick until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration, tickers TickerCreator) {
	tick, stop := tickers.Create(interval)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.Sweep(s.clock.Now())
		}
	}
}
