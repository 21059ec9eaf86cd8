// Package ice fetches TURN/STUN credentials for the pre-call probe.
package ice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Wyydra/premeet/internal/core/domain"
)

const maxResponseBytes = 1 << 20

type credentialsResponse struct {
	ICEServers []domain.ICEServer `json:"iceServers"`
}

// HTTPFetcher implements port.ICECredentialFetcher.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) FetchICEServers(ctx context.Context, url string) ([]domain.ICEServer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	var body credentialsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode ice servers: %w", err)
	}
	if len(body.ICEServers) == 0 {
		return nil, fmt.Errorf("no ice servers at %s", url)
	}
	return body.ICEServers, nil
}
