package http

import (
	"net/http"
	"time"

	"github.com/Wyydra/premeet/internal/adapter/protocol"
	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// writeWait bounds a single frame write to a participant.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the client is served from a known host
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSClient struct {
	id   domain.ParticipantID
	conn *websocket.Conn
}

func (c *WSClient) ID() string {
	return c.id.String()
}

func (c *WSClient) Send(frame protocol.Frame) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(frame)
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

// HTTP handler
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomName := domain.RoomName(r.URL.Query().Get(protocol.RoomQueryParam))
	if roomName == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	clientID := domain.NewParticipantID()
	client := &WSClient{
		id:   clientID,
		conn: conn,
	}

	l := log.With().Str("client_id", clientID.String()).Str("room", roomName.String()).Logger()
	l.Info().Msg("New client connected")

	if err := h.Hub.Register(roomName, client); err != nil {
		l.Warn().Err(err).Msg("Hub refused client")
		conn.Close()
		return
	}

	defer func() {
		l.Info().Msg("Client disconnected")
		h.Hub.Unregister(client)
		conn.Close()
	}()

	limiter := rate.NewLimiter(h.MsgRate, h.MsgBurst)

	// listening for the participant
	for {
		var req protocol.Frame
		err := conn.ReadJSON(&req)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			break
		}

		if req.Type != protocol.FrameMessage {
			l.Debug().Str("type", string(req.Type)).Msg("Ignoring client frame")
			continue
		}
		if !limiter.Allow() {
			l.Warn().Msg("Message rate exceeded, dropping")
			continue
		}

		msg, err := domain.NewMessage(clientID, roomName, req.Text)
		if err != nil {
			l.Debug().Err(err).Msg("Invalid message")
			continue
		}
		if err := h.Hub.BroadcastMessage(r.Context(), *msg); err != nil {
			l.Error().Err(err).Msg("Failed to process message")
		}
	}
}
