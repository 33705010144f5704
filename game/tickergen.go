package game

import "time"

type TickerCreator interface {
	Create(d time.Duration) (<-chan time.Time, func())
}

type ticker struct{}

func (ticker) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func NewTickerGen() TickerCreator {
	return ticker{}
}
