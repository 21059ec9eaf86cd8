package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/Wyydra/premeet/internal/core/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrNotModerator   = errors.New("only the pre-meeting moderator can change intent flags")
	ErrNotJoined      = errors.New("ancillary channel not joined")
	ErrAlreadyStarted = errors.New("intent sync channel already started")
)

// ModeratorNotifyInterval is the minimum gap between two moderator notifications.
const ModeratorNotifyInterval = 2 * time.Second

type Phase string

const (
	PhaseUnjoined Phase = "unjoined"
	PhaseJoining  Phase = "joining"
	PhaseJoined   Phase = "joined"
)

// SyncStatus is a point-in-time copy of the channel state.
type SyncStatus struct {
	Phase       Phase
	Room        domain.RoomName
	LocalID     domain.ParticipantID
	IsInitiator bool
	IsModerator bool
}

type flag int

const (
	flagRecorded flag = iota
	flagTranscribed
)

type toggleCommand struct {
	flag  flag
	reply chan error
}

// syncState is owned by the Run loop; nothing else writes it.
type syncState struct {
	phase       Phase
	room        domain.RoomName
	localID     domain.ParticipantID
	isInitiator bool
	isModerator bool
	session     port.Session
}

// IntentSyncChannel keeps the will-be-recorded and will-be-transcribed notices,
// and the pre-meeting moderator flag, consistent across the participants of a
// meeting's ancillary channel.
type IntentSyncChannel struct {
	dialer   port.SignalingDialer
	store    *store.Store
	notifier port.Notifier
	now      func() time.Time
	throttle *rate.Limiter

	toggles chan toggleCommand
	started chan struct{}
	stopped chan struct{}

	mu     sync.RWMutex
	status SyncStatus
}

type SyncOption func(*IntentSyncChannel)

// WithClock replaces time.Now for the notification throttle.
func WithClock(now func() time.Time) SyncOption {
	return func(c *IntentSyncChannel) {
		c.now = now
	}
}

func NewIntentSyncChannel(dialer port.SignalingDialer, st *store.Store, notifier port.Notifier, opts ...SyncOption) *IntentSyncChannel {
	c := &IntentSyncChannel{
		dialer:   dialer,
		store:    st,
		notifier: notifier,
		now:      time.Now,
		throttle: rate.NewLimiter(rate.Every(ModeratorNotifyInterval), 1),
		toggles:  make(chan toggleCommand),
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
		status:   SyncStatus{Phase: PhaseUnjoined},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *IntentSyncChannel) Status() SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Done is closed once Run has returned.
func (c *IntentSyncChannel) Done() <-chan struct{} {
	return c.stopped
}

// Run joins the ancillary channel of roomName and processes its events until
// ctx is cancelled or the session ends. The session is closed before Run
// returns. A channel can be run once.
func (c *IntentSyncChannel) Run(ctx context.Context, roomName string) error {
	select {
	case <-c.started:
		return ErrAlreadyStarted
	default:
		close(c.started)
	}
	defer close(c.stopped)

	st := &syncState{
		phase: PhaseJoining,
		room:  domain.AncillaryRoomName(roomName),
	}
	c.publish(st)

	l := log.With().Str("room", st.room.String()).Logger()

	session, err := c.dialer.Dial(ctx, st.room)
	if err != nil {
		l.Error().Err(err).Msg("premeeting backend connection failed")
		st.phase = PhaseUnjoined
		c.publish(st)
		return fmt.Errorf("dial ancillary channel: %w", err)
	}
	st.session = session
	defer func() {
		if err := session.Close(); err != nil {
			l.Debug().Err(err).Msg("Error closing premeeting session")
		}
		st.phase = PhaseUnjoined
		c.publish(st)
	}()

	l.Info().Msg("premeeting backend connection established")

	events := session.Events()
	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd := <-c.toggles:
			cmd.reply <- c.toggle(ctx, st, cmd.flag)

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if closed, isClosed := ev.(domain.SessionClosed); isClosed {
				if closed.Err != nil {
					l.Error().Err(closed.Err).Msg("premeeting backend connection lost")
				} else {
					l.Info().Msg("premeeting backend connection disconnected")
				}
				return nil
			}
			c.handle(ctx, st, ev)
		}
	}
}

func (c *IntentSyncChannel) ToggleRecorded(ctx context.Context) error {
	return c.submit(ctx, flagRecorded)
}

func (c *IntentSyncChannel) ToggleTranscribed(ctx context.Context) error {
	return c.submit(ctx, flagTranscribed)
}

func (c *IntentSyncChannel) submit(ctx context.Context, f flag) error {
	cmd := toggleCommand{flag: f, reply: make(chan error, 1)}
	select {
	case c.toggles <- cmd:
	case <-c.stopped:
		return ErrNotJoined
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *IntentSyncChannel) toggle(ctx context.Context, st *syncState, f flag) error {
	if st.phase != PhaseJoined {
		return ErrNotJoined
	}
	if !st.isModerator {
		return ErrNotModerator
	}
	pm := c.store.State().PreMeeting
	switch f {
	case flagRecorded:
		return c.setRecorded(ctx, st, !pm.WillBeRecorded, true)
	default:
		return c.setTranscribed(ctx, st, !pm.WillBeTranscribed, true)
	}
}

func (c *IntentSyncChannel) handle(ctx context.Context, st *syncState, ev domain.SessionEvent) {
	switch ev := ev.(type) {
	case domain.SessionAdmitted:
		c.onAdmitted(st, ev)
	case domain.RoleChanged:
		c.onRoleChanged(st, ev)
	case domain.TextReceived:
		c.onText(ctx, st, ev)
	case domain.ParticipantJoined:
		log.Debug().Str("participant_id", ev.ParticipantID.String()).Int("count", ev.ParticipantCount).Msg("Participant joined premeeting")
	case domain.ParticipantLeft:
		log.Debug().Str("participant_id", ev.ParticipantID.String()).Int("count", ev.ParticipantCount).Msg("Participant left premeeting")
	case domain.MetadataUpdated:
		c.store.Dispatch(store.UpdateConferenceMetadata{Metadata: ev.Metadata})
	case domain.PropertiesChanged:
		c.store.Dispatch(store.ConferencePropertiesChanged{Properties: ev.Properties})
	case domain.TranscriberJoined:
		c.store.Dispatch(store.TranscriberJoined{JID: ev.JID})
	case domain.TranscriberLeft:
		c.store.Dispatch(store.TranscriberLeft{JID: ev.JID, Abruptly: ev.Abruptly})
	}
}

func (c *IntentSyncChannel) onAdmitted(st *syncState, ev domain.SessionAdmitted) {
	st.phase = PhaseJoined
	st.localID = ev.LocalID
	st.isInitiator = ev.ParticipantCount == 1
	st.isModerator = st.isInitiator
	c.publish(st)

	log.Info().
		Str("participant_id", st.localID.String()).
		Int("count", ev.ParticipantCount).
		Bool("initiator", st.isInitiator).
		Msg("Joined premeeting room")

	c.store.Dispatch(store.ConferenceJoined{Metadata: ev.Metadata})

	if st.isInitiator {
		c.setModerator(true)
		return
	}
	c.store.Dispatch(store.SetPremeetingModerator{IsModerator: false})
}

func (c *IntentSyncChannel) onRoleChanged(st *syncState, ev domain.RoleChanged) {
	if st.phase != PhaseJoined || ev.ParticipantID != st.localID {
		return
	}
	isModerator := ev.Role.IsModerator()
	if isModerator == st.isModerator {
		return
	}
	st.isModerator = isModerator
	c.publish(st)
	c.setModerator(isModerator)
}

func (c *IntentSyncChannel) onText(ctx context.Context, st *syncState, ev domain.TextReceived) {
	if ev.From == st.localID {
		return
	}
	switch m := domain.DecodeIntent(ev.Text).(type) {
	case domain.SetRecorded:
		_ = c.setRecorded(ctx, st, m.Value, false)
	case domain.SetTranscribed:
		_ = c.setTranscribed(ctx, st, m.Value, false)
	case domain.UnknownIntent:
		log.Debug().Str("from", ev.From.String()).Str("text", m.Raw).Msg("Ignoring unknown premeeting message")
	}
}

// setModerator stores the flag and tells the user, at most once per
// ModeratorNotifyInterval.
func (c *IntentSyncChannel) setModerator(isModerator bool) {
	c.store.Dispatch(store.SetPremeetingModerator{IsModerator: isModerator})

	if !c.throttle.AllowN(c.now(), 1) {
		return
	}
	key := "notify.notModerator"
	if isModerator {
		key = "notify.moderator"
	}
	c.notifier.Notify(port.Notification{
		TitleKey: key,
		Kind:     port.NotificationNormal,
		Timeout:  port.TimeoutShort,
	})
}

func (c *IntentSyncChannel) setRecorded(ctx context.Context, st *syncState, value, broadcast bool) error {
	c.store.Dispatch(store.SetWillBeRecorded{Record: value})
	if !broadcast {
		return nil
	}
	return c.send(ctx, st, domain.SetRecorded{Value: value})
}

func (c *IntentSyncChannel) setTranscribed(ctx context.Context, st *syncState, value, broadcast bool) error {
	c.store.Dispatch(store.SetWillBeTranscribed{Transcribe: value})
	if !broadcast {
		return nil
	}
	return c.send(ctx, st, domain.SetTranscribed{Value: value})
}

func (c *IntentSyncChannel) send(ctx context.Context, st *syncState, m domain.IntentMessage) error {
	if st.session == nil {
		return ErrNotJoined
	}
	if err := st.session.SendText(ctx, m.Body()); err != nil {
		log.Error().Err(err).Str("text", m.Body()).Msg("Failed to send premeeting message")
		return fmt.Errorf("send %q: %w", m.Body(), err)
	}
	return nil
}

func (c *IntentSyncChannel) publish(st *syncState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = SyncStatus{
		Phase:       st.phase,
		Room:        st.room,
		LocalID:     st.localID,
		IsInitiator: st.isInitiator,
		IsModerator: st.isModerator,
	}
}
