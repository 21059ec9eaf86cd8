package http

import (
	"net/http"

	"github.com/Wyydra/premeet/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/Wyydra/premeet/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

type Options struct {
	ICEServers []domain.ICEServer
	// inbound messages per second and burst, per connection
	MsgRate  rate.Limit
	MsgBurst int
}

type Handler struct {
	Hub         *ws.Hub
	Rooms       port.RoomStateStore
	PollService *service.PollService

	ICEServers []domain.ICEServer
	MsgRate    rate.Limit
	MsgBurst   int
}

func NewHandler(hub *ws.Hub, rooms port.RoomStateStore, pollService *service.PollService, opts Options) *Handler {
	h := &Handler{
		Hub:         hub,
		Rooms:       rooms,
		PollService: pollService,
		ICEServers:  opts.ICEServers,
		MsgRate:     opts.MsgRate,
		MsgBurst:    opts.MsgBurst,
	}
	if h.MsgRate <= 0 {
		h.MsgRate = rate.Inf
	}
	if h.MsgBurst <= 0 {
		h.MsgBurst = 1
	}
	return h
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/ws", h.ServeWS)
	r.Get("/precall/ice", h.GetICEServers)

	r.Route("/rooms/{room}", func(r chi.Router) {
		r.Get("/intent", h.GetIntent)
		r.Post("/metadata", h.PostMetadata)
		r.Post("/properties", h.PostProperties)
		r.Post("/transcriber", h.PostTranscriber)

		r.Get("/polls", h.ListPolls)
		r.Post("/polls", h.CreatePoll)
		r.Put("/polls/{id}", h.UpdatePoll)
		r.Post("/polls/{id}/votes", h.VotePoll)
	})

	return r
}
