package game

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/SravanamCharan20/CodeClash/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service      *Service
	dispatcher   *Dispatcher
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	tickers      TickerCreator
}

func NewHandler(service *Service, allowedOrigins []string, pingInterval time.Duration, tickers TickerCreator) *Handler {
	return &Handler{
		service:    service,
		dispatcher: NewDispatcher(service),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		pingInterval: pingInterval,
		tickers:      tickers,
	}
}

// ServeWS upgrades an identified request and serves the connection until it
// closes. It must run behind auth.RequireIdentity.
func (h *Handler) ServeWS(ctx *gin.Context) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		log.Error().
			Str("ip", ctx.ClientIP()).
			Str("user_agent", ctx.Request.UserAgent()).
			Msg("identity not found, is the middleware missing?")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Debug().Err(err).Str("user", identity.UserID).Msg("websocket upgrade failed")
		return
	}

	// The request context ends with the handler; the connection outlives it.
	player := NewPlayer(context.WithoutCancel(ctx.Request.Context()))
	sess := NewSession(identity, player, NewAbuseGuard())
	socket := NewWebsocketConnection(conn)
	h.serve(player, sess, socket)
}

func (h *Handler) serve(player *Player, sess *Session, socket WebsocketConnection) {
	log.Debug().Str("conn", sess.ID()).Str("user", sess.Identity().UserID).Msg("connection opened")
	done := make(chan struct{})
	go func() {
		defer close(done)
		player.WritePump(socket, h.pingInterval, h.tickers)
	}()

	player.ReadPump(socket, func(ctx context.Context, data []byte) {
		h.dispatcher.Dispatch(ctx, sess, data)
	})
	<-done
	h.service.Disconnect(sess)
	log.Debug().Str("conn", sess.ID()).Str("reason", player.closeReason()).Msg("connection closed")
}
