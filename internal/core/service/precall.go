package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/Wyydra/premeet/internal/core/store"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoICEURL        = errors.New("no TURN credentials URL provided in config")
	ErrPreCallInFlight = errors.New("pre-call test already running")
)

// PreCallService runs the one-shot network probe and records its outcome.
type PreCallService struct {
	iceURL  string
	fetcher port.ICECredentialFetcher
	prober  port.Prober
	store   *store.Store

	running atomic.Bool
}

func NewPreCallService(iceURL string, fetcher port.ICECredentialFetcher, prober port.Prober, st *store.Store) *PreCallService {
	return &PreCallService{
		iceURL:  iceURL,
		fetcher: fetcher,
		prober:  prober,
		store:   st,
	}
}

// Run executes one probe. Failures end in PreCallFailed and are returned;
// nothing is retried.
func (s *PreCallService) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrPreCallInFlight
	}
	defer s.running.Store(false)

	s.store.Dispatch(store.SetPreCallTestResults{Value: domain.PreCallTestState{Status: domain.PreCallRunning}})

	result, err := s.probe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to run pre-call test")
		s.store.Dispatch(store.SetPreCallTestResults{Value: domain.PreCallTestState{Status: domain.PreCallFailed}})
		return err
	}

	log.Info().
		Float64("rtt", result.RTT).
		Float64("jitter", result.Jitter).
		Float64("fractional_loss", result.FractionalLoss).
		Bool("media_connectivity", result.MediaConnectivity).
		Float64("throughput", result.Throughput).
		Msg("Pre-call test finished")
	s.store.Dispatch(store.SetPreCallTestResults{Value: domain.PreCallTestState{
		Status: domain.PreCallFinished,
		Result: &result,
	}})
	return nil
}

func (s *PreCallService) probe(ctx context.Context) (domain.PreCallResult, error) {
	if s.iceURL == "" {
		return domain.PreCallResult{}, ErrNoICEURL
	}
	servers, err := s.fetcher.FetchICEServers(ctx, s.iceURL)
	if err != nil {
		return domain.PreCallResult{}, fmt.Errorf("fetch ice servers: %w", err)
	}
	result, err := s.prober.Probe(ctx, servers)
	if err != nil {
		return domain.PreCallResult{}, fmt.Errorf("probe: %w", err)
	}
	return result, nil
}
