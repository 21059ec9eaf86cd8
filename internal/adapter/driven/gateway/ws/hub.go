package ws

import (
	"context"
	"errors"
	"time"

	"github.com/Wyydra/premeet/internal/adapter/protocol"
	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/rs/zerolog/log"
)

var ErrHubStopped = errors.New("hub stopped")

const (
	broadcastBuffer = 256
	stateBuffer     = 256
	outboxSize      = 64
	storeTimeout    = 2 * time.Second
)

type member struct {
	client Client
	id     domain.ParticipantID
	role   domain.Role

	// out feeds the member's write pump; gone stops it.
	out  chan protocol.Frame
	gone chan struct{}

	// pending holds live frames back until the intent replay has arrived.
	pending bool
	held    []protocol.Frame
}

// room keeps members in admission order and the last published metadata.
type room struct {
	members  []*member
	metadata *domain.ConferenceMetadata
}

type registration struct {
	room   domain.RoomName
	client Client
}

type roomFrame struct {
	room  domain.RoomName
	frame protocol.Frame
}

type replayResult struct {
	client  Client
	records []domain.IntentRecord
}

// Hub owns every ancillary room. All room state is touched by the Run loop only.
// Writes to clients and RoomStateStore calls happen off the loop: each member
// has its own write pump and store operations run in order on one worker.
// implements port.RoomGateway
type Hub struct {
	rooms map[domain.RoomName]*room
	// client -> room, for unregister
	clients map[Client]domain.RoomName
	state   port.RoomStateStore

	register   chan registration
	unregister chan Client
	broadcast  chan domain.Message
	publish    chan roomFrame
	replayed   chan replayResult
	stateOps   chan func()
	quit       chan struct{}
	done       chan struct{}
}

func NewHub(state port.RoomStateStore) *Hub {
	return &Hub{
		rooms:      make(map[domain.RoomName]*room),
		clients:    make(map[Client]domain.RoomName),
		state:      state,
		register:   make(chan registration),
		unregister: make(chan Client),
		broadcast:  make(chan domain.Message, broadcastBuffer),
		publish:    make(chan roomFrame, broadcastBuffer),
		replayed:   make(chan replayResult),
		stateOps:   make(chan func(), stateBuffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Register(roomName domain.RoomName, c Client) error {
	select {
	case h.register <- registration{room: roomName, client: c}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// BroadcastMessage fans a text message out to the sender's room, sender included.
func (h *Hub) BroadcastMessage(ctx context.Context, msg domain.Message) error {
	select {
	case <-h.quit:
		return ErrHubStopped
	case h.broadcast <- msg:
	default:
		log.Warn().Str("room", msg.RoomName.String()).Msg("Broadcast channel full, dropping message")
	}
	return nil
}

func (h *Hub) PublishMetadata(ctx context.Context, roomName domain.RoomName, md domain.ConferenceMetadata) error {
	return h.enqueue(ctx, roomName, protocol.Frame{Type: protocol.FrameMetadataUpdated, Metadata: &md})
}

func (h *Hub) PublishProperties(ctx context.Context, roomName domain.RoomName, props map[string]string) error {
	return h.enqueue(ctx, roomName, protocol.Frame{Type: protocol.FramePropertiesChanged, Properties: props})
}

func (h *Hub) PublishTranscriber(ctx context.Context, roomName domain.RoomName, jid string, joined, abruptly bool) error {
	f := protocol.Frame{Type: protocol.FrameTranscriberLeft, TranscriberJID: jid, Abruptly: abruptly}
	if joined {
		f = protocol.Frame{Type: protocol.FrameTranscriberJoined, TranscriberJID: jid}
	}
	return h.enqueue(ctx, roomName, f)
}

func (h *Hub) enqueue(ctx context.Context, roomName domain.RoomName, f protocol.Frame) error {
	select {
	case <-h.quit:
		return ErrHubStopped
	default:
	}
	select {
	case h.publish <- roomFrame{room: roomName, frame: f}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	workerDone := make(chan struct{})
	go h.stateWorker(workerDone)

	for {
		select {
		case <-h.quit:
			for _, r := range h.rooms {
				for _, m := range r.members {
					close(m.gone)
				}
			}
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.rooms = make(map[domain.RoomName]*room)
			<-workerDone
			return

		case reg := <-h.register:
			h.admit(reg.room, reg.client)

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.fanOutMessage(msg)

		case rf := <-h.publish:
			if r, ok := h.rooms[rf.room]; ok && rf.frame.Metadata != nil {
				r.metadata = rf.frame.Metadata
			}
			h.fanOut(rf.room, rf.frame)

		case res := <-h.replayed:
			h.finishReplay(res)
		}
	}
}

// Stop closes every client and waits for the Run loop to exit.
func (h *Hub) Stop() {
	close(h.quit)
	<-h.done
}

func (h *Hub) stateWorker(done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case op := <-h.stateOps:
			op()
		case <-h.quit:
			return
		}
	}
}

// submitState queues op behind every earlier store operation.
func (h *Hub) submitState(op func()) {
	select {
	case h.stateOps <- op:
	case <-h.quit:
	}
}

// pump writes frames to one client until it is removed. A failed write
// unregisters the client.
func (h *Hub) pump(c Client, out <-chan protocol.Frame, gone <-chan struct{}) {
	for {
		select {
		case f := <-out:
			if err := c.Send(f); err != nil {
				log.Error().Err(err).Str("client_id", c.ID()).Msg("Error sending frame")
				h.Unregister(c)
				return
			}
		case <-gone:
			return
		}
	}
}

// deliver queues f for m and reports false when m's outbox is full.
func (h *Hub) deliver(m *member, f protocol.Frame) bool {
	if m.pending {
		m.held = append(m.held, f)
		return true
	}
	select {
	case m.out <- f:
		return true
	default:
		return false
	}
}

func (h *Hub) admit(roomName domain.RoomName, c Client) {
	r, ok := h.rooms[roomName]
	if !ok {
		r = &room{}
		h.rooms[roomName] = r
	}

	m := &member{
		client: c,
		id:     domain.ParticipantID(c.ID()),
		role:   domain.RoleParticipant,
		out:    make(chan protocol.Frame, outboxSize),
		gone:   make(chan struct{}),
	}
	if len(r.members) == 0 {
		m.role = domain.RoleModerator
	}
	r.members = append(r.members, m)
	h.clients[c] = roomName
	go h.pump(c, m.out, m.gone)

	l := log.With().Str("room", roomName.String()).Str("client_id", c.ID()).Logger()
	l.Info().Int("count", len(r.members)).Str("role", string(m.role)).Msg("Client joined room")

	h.deliver(m, protocol.Frame{
		Type:             protocol.FrameJoined,
		ParticipantID:    m.id.String(),
		ParticipantCount: len(r.members),
		Role:             string(m.role),
		Metadata:         r.metadata,
	})

	h.replay(roomName, m)

	h.fanOutExcept(roomName, protocol.Frame{
		Type:             protocol.FrameParticipantJoined,
		ParticipantID:    m.id.String(),
		ParticipantCount: len(r.members),
	}, c)
}

// replay loads the latest intent messages of the room for a new member. Live
// frames for the member are held until the records arrive so they are never
// overtaken by older state.
func (h *Hub) replay(roomName domain.RoomName, m *member) {
	if h.state == nil {
		return
	}
	m.pending = true
	c := m.client
	h.submitState(func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		records, err := h.state.Load(ctx, roomName)
		if err != nil {
			log.Error().Err(err).Str("room", roomName.String()).Msg("Failed to load room intent state")
		}
		// the worker must not wait on the loop
		go func() {
			select {
			case h.replayed <- replayResult{client: c, records: records}:
			case <-h.quit:
			}
		}()
	})
}

func (h *Hub) finishReplay(res replayResult) {
	m := h.member(res.client)
	if m == nil || !m.pending {
		return
	}
	m.pending = false

	frames := make([]protocol.Frame, 0, len(res.records)+len(m.held))
	for _, rec := range res.records {
		frames = append(frames, protocol.Frame{Type: protocol.FrameMessage, From: rec.SenderID.String(), Text: rec.Body})
	}
	frames = append(frames, m.held...)
	m.held = nil

	for _, f := range frames {
		if !h.deliver(m, f) {
			log.Warn().Str("client_id", m.client.ID()).Msg("Client outbox full, dropping client")
			h.remove(m.client)
			return
		}
	}
}

func (h *Hub) member(c Client) *member {
	roomName, ok := h.clients[c]
	if !ok {
		return nil
	}
	r := h.rooms[roomName]
	if r == nil {
		return nil
	}
	for _, m := range r.members {
		if m.client == c {
			return m
		}
	}
	return nil
}

func (h *Hub) remove(c Client) {
	roomName, ok := h.clients[c]
	if !ok {
		return
	}
	delete(h.clients, c)
	c.Close()

	r := h.rooms[roomName]
	if r == nil {
		return
	}
	var left *member
	for i, m := range r.members {
		if m.client == c {
			left = m
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	if left == nil {
		return
	}
	close(left.gone)

	log.Info().Str("room", roomName.String()).Str("client_id", c.ID()).Int("count", len(r.members)).Msg("Client left room")

	if len(r.members) == 0 {
		delete(h.rooms, roomName)
		h.forget(roomName)
		return
	}

	h.fanOut(roomName, protocol.Frame{
		Type:             protocol.FrameParticipantLeft,
		ParticipantID:    left.id.String(),
		ParticipantCount: len(r.members),
	})

	// the fan-out may have dropped the remaining members
	if h.rooms[roomName] != r || len(r.members) == 0 {
		return
	}
	if left.role == domain.RoleModerator {
		next := r.members[0]
		next.role = domain.RoleModerator
		log.Info().Str("room", roomName.String()).Str("client_id", next.client.ID()).Msg("Promoted to moderator")
		h.fanOut(roomName, protocol.Frame{
			Type:          protocol.FrameRoleChanged,
			ParticipantID: next.id.String(),
			Role:          string(domain.RoleModerator),
		})
	}
}

func (h *Hub) forget(roomName domain.RoomName) {
	if h.state == nil {
		return
	}
	h.submitState(func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := h.state.Forget(ctx, roomName); err != nil {
			log.Error().Err(err).Str("room", roomName.String()).Msg("Failed to forget room intent state")
		}
	})
}

func (h *Hub) fanOutMessage(msg domain.Message) {
	if _, ok := h.rooms[msg.RoomName]; !ok {
		return
	}
	log.Debug().Str("client_id", msg.SenderID.String()).Str("text", msg.Text).Msg("New message")

	intent := domain.DecodeIntent(msg.Text)
	if key := domain.IntentKey(intent); key != "" && h.state != nil {
		rec := domain.IntentRecord{Key: key, Body: intent.Body(), SenderID: msg.SenderID}
		h.submitState(func() {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			if err := h.state.Record(ctx, msg.RoomName, rec); err != nil {
				log.Error().Err(err).Str("room", msg.RoomName.String()).Msg("Failed to record room intent state")
			}
		})
	}

	h.fanOut(msg.RoomName, protocol.Frame{
		Type: protocol.FrameMessage,
		From: msg.SenderID.String(),
		Text: msg.Text,
	})
}

func (h *Hub) fanOut(roomName domain.RoomName, f protocol.Frame) {
	h.fanOutExcept(roomName, f, nil)
}

// fanOutExcept drops members whose outbox is full.
func (h *Hub) fanOutExcept(roomName domain.RoomName, f protocol.Frame, skip Client) {
	r, ok := h.rooms[roomName]
	if !ok {
		return
	}
	var slow []Client
	for _, m := range r.members {
		if m.client == skip {
			continue
		}
		if !h.deliver(m, f) {
			log.Warn().Str("client_id", m.client.ID()).Msg("Client outbox full, dropping client")
			slow = append(slow, m.client)
		}
	}
	for _, c := range slow {
		h.remove(c)
	}
}
