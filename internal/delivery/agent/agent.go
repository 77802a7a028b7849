// Package agent is the device-side delivery surface: it reads position
// samples from stdin as JSON lines and feeds them through the durable queue
// to the ingestion endpoint.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"

	"fieldtrack/config"
	"fieldtrack/internal/delivery"
	"fieldtrack/internal/errors"
	"fieldtrack/internal/queue"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"gocloud.dev/blob"

	_ "gocloud.dev/blob/fileblob" // file:// queue snapshots
)

const stateKey = "queue-state.json"

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

type agent struct {
	cfg    *config.AgentConfig
	logger *slog.Logger
	client *http.Client

	bucket *blob.Bucket
	sender *queue.HTTPSender
	queue  *queue.Queue
}

// New creates the agent delivery surface.
func New(params Params) (delivery.Delivery, error) {
	if params.Config.Agent == nil {
		return nil, errors.New("agent configuration is required")
	}

	a := &agent{
		cfg:    params.Config.Agent,
		logger: params.Logger,
		client: &http.Client{Timeout: params.Config.Agent.SendTimeout},
	}

	params.Append(fx.Hook{
		OnStop: a.stop,
	})

	return a, nil
}

// Serve authenticates, restores the queue, and pumps stdin samples into it
// until the context ends.
func (a *agent) Serve(ctx context.Context) error {
	trackerID, err := uuid.Parse(a.cfg.TrackerID)
	if err != nil {
		return errors.Wrap(err, "invalid tracker ID")
	}

	bucket, err := blob.OpenBucket(ctx, a.cfg.StoreURL)
	if err != nil {
		return errors.Wrap(err, "failed to open queue store")
	}
	a.bucket = bucket

	a.sender = queue.NewHTTPSender(a.cfg.ServerURL, a.client)
	token, err := a.exchangeToken(ctx, trackerID)
	if err != nil {
		return errors.Wrap(err, "initial authentication failed")
	}
	a.sender.SetToken(token)

	q, err := queue.New(ctx, queue.Config{
		MinInterval:    a.cfg.MinInterval,
		MaxAge:         a.cfg.MaxAge,
		SendTimeout:    a.cfg.SendTimeout,
		BackoffInitial: a.cfg.BackoffInitial,
		BackoffMax:     a.cfg.BackoffMax,
	}, a.sender, queue.NewBlobStore(bucket, stateKey), a.logger,
		queue.WithReauthSignal(func() {
			a.reauthenticate(ctx, trackerID)
		}),
	)
	if err != nil {
		return err
	}
	a.queue = q

	go func() {
		if err := q.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("queue loop stopped", slog.Any("error", err))
		}
	}()

	a.logger.Info("agent started",
		slog.String("server", a.cfg.ServerURL),
		slog.String("trackerId", trackerID.String()),
		slog.Int("restoredPending", q.Stats().PendingCount),
	)

	return a.pumpSamples(ctx, os.Stdin)
}

// pumpSamples enqueues one sample per JSON line until EOF or cancellation.
func (a *agent) pumpSamples(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var sample queue.Sample
		if err := json.Unmarshal(line, &sample); err != nil {
			a.logger.Warn("skipping malformed sample line", slog.Any("error", err))

			continue
		}

		if err := a.queue.Enqueue(ctx, sample); err != nil {
			a.logger.Warn("sample rejected", slog.Any("error", err))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to read samples")
	}

	// Stdin closed; keep draining until shutdown.
	a.logger.Info("input closed, draining until shutdown")
	<-ctx.Done()

	return ctx.Err()
}

// reauthenticate refreshes the access token after the server refused the
// current one, then resumes draining. The queue re-signals on every flush
// while paused, so a failed exchange here is retried at the flush cadence.
func (a *agent) reauthenticate(ctx context.Context, trackerID uuid.UUID) {
	token, err := a.exchangeToken(ctx, trackerID)
	if err != nil {
		a.logger.Warn("reauthentication failed, retrying on next flush", slog.Any("error", err))

		return
	}

	a.sender.SetToken(token)
	a.queue.Resume(ctx)
}

type tokenResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// exchangeToken trades the enrollment API key for an access token.
func (a *agent) exchangeToken(ctx context.Context, trackerID uuid.UUID) (string, error) {
	body, err := json.Marshal(map[string]string{
		"tracker_id": trackerID.String(),
		"api_key":    a.cfg.APIKey,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode token request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.ServerURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("token exchange refused: %s", resp.Status)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "failed to decode token response")
	}
	if parsed.Data.AccessToken == "" {
		return "", errors.New("token response missing access token")
	}

	return parsed.Data.AccessToken, nil
}

func (a *agent) stop(_ context.Context) error {
	if a.queue != nil {
		stats := a.queue.Stats()
		a.logger.Info("agent stopping",
			slog.Int("pending", stats.PendingCount),
			slog.Int("delivered", stats.DeliveredCount),
			slog.Int("dropped", stats.DroppedCount),
		)
	}

	if a.bucket != nil {
		return errors.WithStack(a.bucket.Close())
	}

	return nil
}
