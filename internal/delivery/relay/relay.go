package relay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	errs "ardamas/internal/errors"
	"ardamas/internal/httpresponse"
	repo "ardamas/internal/repository"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const leaveTimeout = 5 * time.Second

// RelayHandler pairs two peers per room and forwards every payload one of
// them sends to the other, unchanged and in order.
type RelayHandler struct {
	log       *zap.SugaredLogger
	backplane repo.Backplane
}

type RoomResponse struct {
	Room  string   `json:"room"`
	Peers []string `json:"peers"`
}

func NewRelayHandler(log *zap.SugaredLogger, backplane repo.Backplane) *RelayHandler {
	return &RelayHandler{
		log:       log,
		backplane: backplane,
	}
}

func (h *RelayHandler) Router(r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", h.HandleHealth)
	r.Get("/ws", h.HandleConnect)
	r.Get("/rooms/{room}", h.HandleRoom)
}

func (h *RelayHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, "ok")
}

func (h *RelayHandler) HandleRoom(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	peers, err := h.backplane.Members(r.Context(), room)
	if err != nil {
		h.log.Errorw("list room members", "room", room, "error", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, RoomResponse{Room: room, Peers: peers})
}

func (h *RelayHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	peer := r.URL.Query().Get("peer")
	if room == "" || peer == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{
			ErrorDescription: "room and peer query parameters are required",
		})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	err := h.backplane.Join(ctx, room, peer)
	if errors.Is(err, errs.ErrRoomFull) {
		h.log.Warnw("room is full", "room", room, "peer", peer)
		httpresponse.WriteErrorWithStatus(w, http.StatusConflict, err)
		return
	} else if err != nil {
		h.log.Errorw("join room", "room", room, "peer", peer, "error", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	defer h.leave(room, peer)

	// subscribe before the upgrade completes so the peer sees every frame
	// published after its dial returns
	frames, err := h.backplane.Subscribe(ctx, room)
	if err != nil {
		h.log.Errorw("subscribe to room", "room", room, "error", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("upgrade error", "room", room, "peer", peer, "error", err)
		return
	}
	defer conn.Close()

	h.log.Infow("peer joined", "room", room, "peer", peer)
	go h.forward(ctx, cancel, conn, peer, frames)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				h.log.Warnw("read error", "room", room, "peer", peer, "error", err)
			}
			return
		}
		if err := h.backplane.Publish(ctx, room, repo.Frame{Peer: peer, Data: data}); err != nil {
			h.log.Errorw("publish", "room", room, "peer", peer, "error", err)
			return
		}
	}
}

// forward is the only writer of conn. It writes every frame that was not
// sent by peer itself.
func (h *RelayHandler) forward(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, peer string, frames <-chan repo.Frame) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case f := <-frames:
			if f.Peer == peer {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, f.Data); err != nil {
				h.log.Warnw("write to peer", "peer", peer, "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *RelayHandler) leave(room, peer string) {
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := h.backplane.Leave(ctx, room, peer); err != nil {
		h.log.Errorw("leave room", "room", room, "peer", peer, "error", err)
		return
	}
	h.log.Infow("peer left", "room", room, "peer", peer)
}
