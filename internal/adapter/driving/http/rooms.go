package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Wyydra/premeet/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

type iceResponse struct {
	ICEServers []domain.ICEServer `json:"iceServers"`
}

type intentResponse struct {
	Room    domain.RoomName       `json:"room"`
	Records []domain.IntentRecord `json:"records"`
}

type transcriberRequest struct {
	JID      string `json:"jid"`
	Joined   bool   `json:"joined"`
	Abruptly bool   `json:"abruptly"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetICEServers(w http.ResponseWriter, r *http.Request) {
	servers := h.ICEServers
	if servers == nil {
		servers = []domain.ICEServer{}
	}
	writeJSON(w, http.StatusOK, iceResponse{ICEServers: servers})
}

// ancillaryRoom maps the {room} path parameter, a meeting room name, to its
// pre-meeting signaling room.
func ancillaryRoom(r *http.Request) domain.RoomName {
	return domain.AncillaryRoomName(chi.URLParam(r, "room"))
}

func (h *Handler) GetIntent(w http.ResponseWriter, r *http.Request) {
	room := ancillaryRoom(r)
	records, err := h.Rooms.Load(r.Context(), room)
	if err != nil {
		log.Error().Err(err).Str("room", room.String()).Msg("Failed to load intent state")
		writeError(w, err)
		return
	}
	if records == nil {
		records = []domain.IntentRecord{}
	}
	writeJSON(w, http.StatusOK, intentResponse{Room: room, Records: records})
}

func (h *Handler) PostMetadata(w http.ResponseWriter, r *http.Request) {
	var md domain.ConferenceMetadata
	if !decodeJSON(w, r, &md) {
		return
	}
	if err := h.Hub.PublishMetadata(r.Context(), ancillaryRoom(r), md); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) PostProperties(w http.ResponseWriter, r *http.Request) {
	var props map[string]string
	if !decodeJSON(w, r, &props) {
		return
	}
	if err := h.Hub.PublishProperties(r.Context(), ancillaryRoom(r), props); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) PostTranscriber(w http.ResponseWriter, r *http.Request) {
	var req transcriberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.JID == "" {
		http.Error(w, "missing jid", http.StatusBadRequest)
		return
	}
	if err := h.Hub.PublishTranscriber(r.Context(), ancillaryRoom(r), req.JID, req.Joined, req.Abruptly); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPollNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyQuestion),
		errors.Is(err, domain.ErrNotEnoughAnswers),
		errors.Is(err, domain.ErrIdenticalAnswers),
		errors.Is(err, domain.ErrInvalidVote):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrVoteNotChangeable):
		status = http.StatusConflict
	case errors.Is(err, ws.ErrHubStopped):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
