package game

import (
	"context"
	"sync"
	"time"
)

const outboxSize = 256

// Player owns one websocket. It implements Outbound so the service can
// queue frames without ever blocking on the network.
type Player struct {
	ctx       context.Context
	cancelCtx context.CancelFunc
	outbox    chan []byte

	mu     sync.Mutex
	reason string
}

func NewPlayer(parent context.Context) *Player {
	ctx, cancel := context.WithCancel(parent)
	return &Player{
		ctx:       ctx,
		cancelCtx: cancel,
		outbox:    make(chan []byte, outboxSize),
	}
}

func (p *Player) Context() context.Context {
	return p.ctx
}

// Send queues data. A full outbox means the client is not keeping up, and the
// connection is closed.
func (p *Player) Send(data []byte) error {
	if p.ctx.Err() != nil {
		return p.ctx.Err()
	}
	select {
	case p.outbox <- data:
		return nil
	default:
		p.Close(ErrSendBufferFull.Error())
		return ErrSendBufferFull
	}
}

// Close records the first reason and stops both pumps.
func (p *Player) Close(reason string) {
	p.mu.Lock()
	if p.reason == "" {
		p.reason = reason
	}
	p.mu.Unlock()
	p.cancelCtx()
}

func (p *Player) closeReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

// ReadPump feeds frames to handle until the socket fails or the player is
// closed.
func (p *Player) ReadPump(socket WebsocketConnection, handle func(ctx context.Context, data []byte)) {
	defer p.cancelCtx()
	for {
		data, err := socket.Read()
		if err != nil {
			return
		}
		if p.ctx.Err() != nil {
			return
		}
		handle(p.ctx, data)
	}
}

// WritePump writes queued frames and pings. On close it flushes what is
// already queued, then closes the socket.
func (p *Player) WritePump(socket WebsocketConnection, pingInterval time.Duration, tickers TickerCreator) {
	ping, stop := tickers.Create(pingInterval)
	defer stop()
	defer func() {
		socket.Close(p.closeReason())
	}()

	for {
		select {
		case <-p.ctx.Done():
			p.flush(socket)
			return
		case data := <-p.outbox:
			if err := socket.Write(data); err != nil {
				p.cancelCtx()
				return
			}
		case <-ping:
			if err := socket.Ping(); err != nil {
				p.cancelCtx()
				return
			}
		}
	}
}

func (p *Player) flush(socket WebsocketConnection) {
	for {
		select {
		case data := <-p.outbox:
			if err := socket.Write(data); err != nil {
				return
			}
		default:
			return
		}
	}
}
