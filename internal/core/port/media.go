package port

import (
	"context"

	"github.com/Wyydra/premeet/internal/core/domain"
)

type ICECredentialFetcher interface {
	FetchICEServers(ctx context.Context, url string) ([]domain.ICEServer, error)
}

// Prober runs one network quality measurement through the given relay servers.
type Prober interface {
	Probe(ctx context.Context, servers []domain.ICEServer) (domain.PreCallResult, error)
}
