package stream

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"tipjar/internal/ledger/models"
	dErrors "tipjar/pkg/domain-errors"
	"tipjar/pkg/platform/httputil"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	replayPage = 500
)

// History is the journal the handler replays from and fills gaps with.
type History interface {
	Events(ctx context.Context, after uint64, limit int, kinds ...models.EventKind) ([]*models.Event, error)
	LastSeq(ctx context.Context) (uint64, error)
}

// Handler upgrades GET requests to a WebSocket that carries ledger events
// as JSON text frames in seq order. With ?after=N it first replays journaled
// events with seq > N; without it the stream starts at the journal head.
// Live events that arrive out of order or after a dropped delivery are
// backfilled from the journal, so the stream has no gaps or duplicates.
type Handler struct {
	hub      *Hub
	history  History
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, history History, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		hub:     hub,
		history: history,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var after uint64
	replay := false
	if raw := r.URL.Query().Get("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "after must be a non-negative integer"))
			return
		}
		after, replay = n, true
	}

	// Subscribe before replaying so nothing committed in between is lost.
	sub := h.hub.Subscribe(0)
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readPump(conn, cancel)

	lastSeq := after
	if replay {
		if lastSeq, err = h.replay(ctx, conn, after); err != nil {
			h.logger.DebugContext(ctx, "event replay stopped", "error", err)
			return
		}
	} else if lastSeq, err = h.history.LastSeq(ctx); err != nil {
		h.logger.WarnContext(ctx, "event head lookup failed", "error", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber too slow"),
					time.Now().Add(writeWait))
				return
			}
			if event.Seq <= lastSeq {
				continue
			}
			if event.Seq != lastSeq+1 {
				if lastSeq, err = h.replay(ctx, conn, lastSeq); err != nil {
					h.logger.DebugContext(ctx, "event backfill stopped", "error", err)
					return
				}
				if event.Seq <= lastSeq {
					continue
				}
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
			lastSeq = event.Seq
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) replay(ctx context.Context, conn *websocket.Conn, after uint64) (uint64, error) {
	for {
		page, err := h.history.Events(ctx, after, replayPage)
		if err != nil {
			return after, err
		}
		for _, event := range page {
			if err := writeEvent(conn, event); err != nil {
				return after, err
			}
			after = event.Seq
		}
		if len(page) < replayPage {
			return after, nil
		}
	}
}

// readPump discards client frames and cancels the stream once the peer is gone.
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, event *models.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}
