package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"fieldtrack/internal/errors"
)

const positionsPath = "/v1/positions"

// HTTPSender delivers samples to the ingestion endpoint over HTTP. The
// bearer token is swappable at runtime so the owner can refresh credentials
// without rebuilding the queue.
type HTTPSender struct {
	client  *http.Client
	baseURL string

	mu    sync.RWMutex
	token string
}

// NewHTTPSender creates a sender for the given server base URL.
func NewHTTPSender(baseURL string, client *http.Client) *HTTPSender {
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPSender{
		client:  client,
		baseURL: baseURL,
	}
}

// SetToken installs the access token used on subsequent sends.
func (s *HTTPSender) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

type decisionEnvelope struct {
	Data struct {
		Accepted      bool       `json:"accepted"`
		Reason        string     `json:"reason"`
		NextAllowedAt *time.Time `json:"next_allowed_at,omitempty"`
	} `json:"data"`
}

// Send implements Sender. Transport failures and server 5xx responses are
// returned as errors so the queue retries them; everything else maps to a
// definitive outcome.
func (s *HTTPSender) Send(ctx context.Context, sample Sample) (*SendResult, error) {
	body, err := json.Marshal(sample)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode sample")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+positionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "delivery request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &SendResult{Outcome: OutcomeAccepted}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		result := &SendResult{Outcome: OutcomeTooFrequent}
		var envelope decisionEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil {
			result.NextAllowedAt = envelope.Data.NextAllowedAt
		}

		return result, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &SendResult{Outcome: OutcomeUnauthorized}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &SendResult{Outcome: OutcomeRejected}, nil
	default:
		return nil, errors.Errorf("server error: %s", resp.Status)
	}
}
