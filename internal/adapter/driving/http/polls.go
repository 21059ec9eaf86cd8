package http

import (
	"net/http"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/go-chi/chi/v5"
)

type createPollRequest struct {
	domain.PollDraft
	SenderID     domain.ParticipantID `json:"senderId"`
	Participants []string             `json:"participants"`
}

type voteRequest struct {
	VoterID string `json:"voterId"`
	// null skips the poll
	Choice []bool `json:"choice"`
}

func (h *Handler) ListPolls(w http.ResponseWriter, r *http.Request) {
	entries, err := h.PollService.List(r.Context(), chi.URLParam(r, "room"))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []port.PollEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if !decodeValidated(w, r, createPollSchema, &req) {
		return
	}
	id, poll, err := h.PollService.Create(r.Context(), chi.URLParam(r, "room"), req.SenderID, req.PollDraft, req.Participants)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, port.PollEntry{ID: id, Poll: poll})
}

func (h *Handler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	var draft domain.PollDraft
	if !decodeValidated(w, r, updatePollSchema, &draft) {
		return
	}
	id := domain.PollID(chi.URLParam(r, "id"))
	poll, err := h.PollService.Update(r.Context(), chi.URLParam(r, "room"), id, draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, port.PollEntry{ID: id, Poll: poll})
}

func (h *Handler) VotePoll(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !decodeValidated(w, r, voteSchema, &req) {
		return
	}
	id := domain.PollID(chi.URLParam(r, "id"))
	poll, err := h.PollService.Vote(r.Context(), chi.URLParam(r, "room"), id, req.VoterID, req.Choice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, port.PollEntry{ID: id, Poll: poll})
}
