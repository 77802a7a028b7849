package queue

import (
	"context"
	"time"
)

// SendOutcome classifies the server's verdict for one delivery attempt.
// Transport failures are not outcomes; Sender reports those as errors and
// the queue retries them with backoff.
type SendOutcome int

const (
	// OutcomeAccepted means the server persisted the sample (or recognized
	// it as an already-persisted duplicate).
	OutcomeAccepted SendOutcome = iota

	// OutcomeTooFrequent is the server-side rate limit verdict. It is an
	// expected policy outcome, not a failure; the item is discarded and
	// draining defers until NextAllowedAt when the server provides one.
	OutcomeTooFrequent

	// OutcomeRejected means the server refused the payload permanently.
	// The item is dropped and logged; later items still drain.
	OutcomeRejected

	// OutcomeUnauthorized means the credential was refused. Draining pauses
	// until the owner installs a fresh token and calls Resume.
	OutcomeUnauthorized
)

// SendResult carries the server's verdict for one sample.
type SendResult struct {
	Outcome       SendOutcome
	NextAllowedAt *time.Time // Present on OutcomeTooFrequent when the server supplied it.
}

// Sender delivers one sample to the ingestion endpoint. Implementations
// return an error only for retryable transport failures (network error,
// timeout, server 5xx); server verdicts are reported in the result.
type Sender interface {
	Send(ctx context.Context, sample Sample) (*SendResult, error)
}
