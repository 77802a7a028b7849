package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSender_Send_MapsServerVerdicts(t *testing.T) {
	nextAllowed := time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)

	cases := []struct {
		name        string
		status      int
		body        string
		wantOutcome SendOutcome
		wantNext    *time.Time
	}{
		{"accepted", http.StatusAccepted, `{"success":true,"data":{"accepted":true,"reason":"ok"}}`, OutcomeAccepted, nil},
		{"duplicate retry", http.StatusAccepted, `{"success":true,"data":{"accepted":true,"reason":"ok"}}`, OutcomeAccepted, nil},
		{
			"too frequent",
			http.StatusTooManyRequests,
			`{"success":false,"data":{"accepted":false,"reason":"too_frequent","next_allowed_at":"2026-08-01T12:05:00Z"}}`,
			OutcomeTooFrequent,
			&nextAllowed,
		},
		{"unauthorized", http.StatusUnauthorized, `{"success":false}`, OutcomeUnauthorized, nil},
		{"forbidden", http.StatusForbidden, `{"success":false}`, OutcomeUnauthorized, nil},
		{"bad request", http.StatusBadRequest, `{"success":false}`, OutcomeRejected, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, positionsPath, r.URL.Path)
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			sender := NewHTTPSender(server.URL, server.Client())
			sender.SetToken("test-token")

			result, err := sender.Send(context.Background(), sampleAt(time.Now()))

			require.NoError(t, err)
			assert.Equal(t, tc.wantOutcome, result.Outcome)
			if tc.wantNext == nil {
				assert.Nil(t, result.NextAllowedAt)
			} else {
				require.NotNil(t, result.NextAllowedAt)
				assert.True(t, tc.wantNext.Equal(*result.NextAllowedAt))
			}
		})
	}
}

func TestHTTPSender_Send_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL, server.Client())

	_, err := sender.Send(context.Background(), sampleAt(time.Now()))

	assert.Error(t, err)
}

func TestHTTPSender_Send_NetworkErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // Refuses connections from here on.

	sender := NewHTTPSender(server.URL, nil)

	_, err := sender.Send(context.Background(), sampleAt(time.Now()))

	assert.Error(t, err)
}

func TestHTTPSender_Send_EncodesSamplePayload(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"success":true,"data":{"accepted":true,"reason":"ok"}}`))
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL, server.Client())

	accuracy := 12.5
	capturedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err := sender.Send(context.Background(), Sample{
		Latitude:   25.04,
		Longitude:  121.56,
		Accuracy:   &accuracy,
		CapturedAt: capturedAt,
		Source:     "agent-test",
	})

	require.NoError(t, err)
	assert.InDelta(t, 25.04, got["lat"], 1e-9)
	assert.InDelta(t, 121.56, got["lng"], 1e-9)
	assert.InDelta(t, 12.5, got["accuracy"], 1e-9)
	assert.Equal(t, "agent-test", got["source"])
}
