package pion

import (
	"cmp"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const headerSize = 16 // seq + send time

type ProberOptions struct {
	// RelayOnly restricts candidates to TURN relays, which is what a meeting
	// behind a restrictive network would end up using.
	RelayOnly      bool
	Pings          int
	Interval       time.Duration
	PayloadSize    int
	ConnectTimeout time.Duration
	// Grace is how long to wait for late echoes after the last ping.
	Grace time.Duration
}

func DefaultProberOptions() ProberOptions {
	return ProberOptions{
		RelayOnly:      true,
		Pings:          50,
		Interval:       20 * time.Millisecond,
		PayloadSize:    1000,
		ConnectTimeout: 10 * time.Second,
		Grace:          time.Second,
	}
}

// Prober measures a loopback data channel between two local peer connections
// routed through the configured ICE servers.
// implements port.Prober
type Prober struct {
	api  *webrtc.API
	opts ProberOptions
}

func NewProber(opts ProberOptions) *Prober {
	if opts.PayloadSize < headerSize {
		opts.PayloadSize = headerSize
	}
	if opts.Pings <= 0 {
		opts.Pings = 1
	}
	se := webrtc.SettingEngine{}
	if !opts.RelayOnly {
		se.SetIncludeLoopbackCandidate(true)
	}
	return &Prober{
		api:  webrtc.NewAPI(webrtc.WithSettingEngine(se)),
		opts: opts,
	}
}

type sample struct {
	seq uint64
	rtt time.Duration
}

func (p *Prober) Probe(ctx context.Context, servers []domain.ICEServer) (domain.PreCallResult, error) {
	config := webrtc.Configuration{ICEServers: toICEServers(servers)}
	if p.opts.RelayOnly {
		if len(servers) == 0 {
			return domain.PreCallResult{}, errors.New("relay-only probe needs ice servers")
		}
		config.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	}

	offerer, err := p.api.NewPeerConnection(config)
	if err != nil {
		return domain.PreCallResult{}, fmt.Errorf("new peer connection: %w", err)
	}
	defer offerer.Close()

	answerer, err := p.api.NewPeerConnection(config)
	if err != nil {
		return domain.PreCallResult{}, fmt.Errorf("new peer connection: %w", err)
	}
	defer answerer.Close()

	// echo side
	answerer.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if err := dc.Send(msg.Data); err != nil {
				log.Debug().Err(err).Msg("Pre-call echo failed")
			}
		})
	})

	ordered := false
	var maxRetransmits uint16
	dc, err := offerer.CreateDataChannel("precall", &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
	if err != nil {
		return domain.PreCallResult{}, fmt.Errorf("create data channel: %w", err)
	}

	opened := make(chan struct{})
	dc.OnOpen(func() { close(opened) })

	var (
		mu      sync.Mutex
		samples []sample
		bytes   int
	)
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if len(msg.Data) < headerSize {
			return
		}
		seq := binary.BigEndian.Uint64(msg.Data[0:8])
		sent := int64(binary.BigEndian.Uint64(msg.Data[8:16]))
		rtt := time.Since(time.Unix(0, sent))
		mu.Lock()
		samples = append(samples, sample{seq: seq, rtt: rtt})
		bytes += len(msg.Data)
		mu.Unlock()
	})

	if err := negotiate(ctx, offerer, answerer); err != nil {
		return domain.PreCallResult{}, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	defer cancel()
	select {
	case <-opened:
	case <-connectCtx.Done():
		if ctx.Err() != nil {
			return domain.PreCallResult{}, ctx.Err()
		}
		log.Warn().Msg("Pre-call data channel did not open")
		return domain.PreCallResult{FractionalLoss: 1}, nil
	}

	start := time.Now()
	sent, err := p.ping(ctx, dc)
	if err != nil {
		return domain.PreCallResult{}, err
	}

	select {
	case <-time.After(p.opts.Grace):
	case <-ctx.Done():
		return domain.PreCallResult{}, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return summarize(samples, sent, bytes, time.Since(start)), nil
}

func (p *Prober) ping(ctx context.Context, dc *webrtc.DataChannel) (int, error) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	sent := 0
	for i := 0; i < p.opts.Pings; i++ {
		buf := make([]byte, p.opts.PayloadSize)
		binary.BigEndian.PutUint64(buf[0:8], uint64(i))
		binary.BigEndian.PutUint64(buf[8:16], uint64(time.Now().UnixNano()))
		if err := dc.Send(buf); err != nil {
			return sent, fmt.Errorf("send ping: %w", err)
		}
		sent++

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
	return sent, nil
}

// negotiate runs a non-trickle offer/answer between two local peers.
func negotiate(ctx context.Context, offerer, answerer *webrtc.PeerConnection) error {
	offer, err := offerer.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(offerer)
	if err := offerer.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local offer: %w", err)
	}
	if err := wait(ctx, gathered); err != nil {
		return err
	}
	if err := answerer.SetRemoteDescription(*offerer.LocalDescription()); err != nil {
		return fmt.Errorf("set remote offer: %w", err)
	}

	answer, err := answerer.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	gathered = webrtc.GatheringCompletePromise(answerer)
	if err := answerer.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local answer: %w", err)
	}
	if err := wait(ctx, gathered); err != nil {
		return err
	}
	if err := offerer.SetRemoteDescription(*answerer.LocalDescription()); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	return nil
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toICEServers(servers []domain.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		srv := webrtc.ICEServer{URLs: []string(s.URLs), Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

// summarize turns echo samples into a result. RTT and jitter are in ms, jitter
// being the mean absolute difference between consecutive RTTs in send order.
// Throughput is the echoed payload rate in kbit/s.
func summarize(samples []sample, sent, bytes int, elapsed time.Duration) domain.PreCallResult {
	res := domain.PreCallResult{MediaConnectivity: len(samples) > 0}
	if sent > 0 {
		received := min(len(samples), sent)
		res.FractionalLoss = 1 - float64(received)/float64(sent)
	}
	if len(samples) == 0 {
		res.FractionalLoss = 1
		return res
	}

	ordered := slices.Clone(samples)
	slices.SortFunc(ordered, func(a, b sample) int { return cmp.Compare(a.seq, b.seq) })

	var total, diffs float64
	for i, s := range ordered {
		ms := float64(s.rtt) / float64(time.Millisecond)
		total += ms
		if i > 0 {
			prev := float64(ordered[i-1].rtt) / float64(time.Millisecond)
			d := ms - prev
			if d < 0 {
				d = -d
			}
			diffs += d
		}
	}
	res.RTT = total / float64(len(ordered))
	if len(ordered) > 1 {
		res.Jitter = diffs / float64(len(ordered)-1)
	}
	if elapsed > 0 {
		res.Throughput = float64(bytes*8) / elapsed.Seconds() / 1000
	}
	return res
}
