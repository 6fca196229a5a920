package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/scorekeep/internal/app/live"
	"github.com/okian/scorekeep/internal/domain/types"
	"github.com/okian/scorekeep/internal/identity"
	"github.com/okian/scorekeep/pkg/logger"
)

// Websocket timing constants.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// LiveDependencies defines the interface for live score streams.
type LiveDependencies interface {
	View(ctx context.Context, owner identity.Identity) (*live.View, error)
	Release(owner identity.Identity)
	Render(snap live.Snapshot) types.ScoresView
}

// LiveHandler streams an owner's snapshots over a websocket.
type LiveHandler struct {
	deps     LiveDependencies
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewLiveHandler creates a new live handler.
func NewLiveHandler(deps LiveDependencies) *LiveHandler {
	return &LiveHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger.Get().Named("live-ws"),
	}
}

// HandleLive handles GET /scores/live. Every snapshot the view publishes is
// sent as one JSON text message; a slow client skips to the latest.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	owner := identity.FromContext(r.Context())
	view, err := h.deps.View(r.Context(), owner)
	if err != nil {
		writeFailure(w, err)
		return
	}
	defer h.deps.Release(owner)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// The client sends nothing but control frames; reading keeps pongs and
	// close frames flowing and tells us when it goes away.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	updates := view.Watch(ctx)
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "view closed"),
					time.Now().Add(writeWait))
				return
			}
			if snap.Version == 0 {
				// Nothing delivered by the store yet.
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(h.deps.Render(snap)); err != nil {
				h.logger.Debug(ctx, "websocket write failed", logger.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
