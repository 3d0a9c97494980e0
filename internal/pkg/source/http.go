package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yigit/substitutions/internal/pkg/apperrors"
)

const defaultMaxBodyBytes = 5 << 20

// HTTPSource performs a single GET of the rules document per Fetch.
type HTTPSource struct {
	url      string
	client   *http.Client
	maxBytes int64
}

// NewHTTPSource creates an HTTPSource. A zero timeout leaves the request bound
// only by the caller's context.
func NewHTTPSource(url string, timeout time.Duration, maxBytes int64) *HTTPSource {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return &HTTPSource{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Describe implements Source
func (s *HTTPSource) Describe() string {
	return s.url
}

// Fetch implements Source
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request for %s: %v", apperrors.ErrSourceUnavailable, s.url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", apperrors.ErrSourceUnavailable, s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: GET %s returned %s", apperrors.ErrSourceUnavailable, s.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of %s: %w", apperrors.ErrSourceUnavailable, s.url, err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("%w: document at %s exceeds %d bytes", apperrors.ErrInvalidPayload, s.url, s.maxBytes)
	}

	return body, nil
}
