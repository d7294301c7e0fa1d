// Package api implements the JSON-over-HTTP sync transport: the concrete
// push and pull collaborators injected into the sync engine.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/habitsync/internal/client/mapper"
	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/logging"
	"github.com/dmitrijs2005/habitsync/pkg/api"
)

// UserIDHeaderName carries the authenticated user id on sync requests. The
// session layer owning real credentials lives outside this core.
const UserIDHeaderName = "X-User-ID"

// Client talks to the sync endpoints of the backend. Transient failures
// (network errors, 5xx) are retried with fibonacci backoff before the error
// is surfaced to the engine.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userID     string
	maxRetries uint64
	log        logging.Logger
}

func NewClient(baseURL, userID string, log logging.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		log:        log,
	}
}

// Push sends one outbox batch. Each record's payload is mapped through the
// domain mapper into remote shape, with the user id stamped as an override.
// The whole batch is one request: it succeeds or fails atomically.
func (c *Client) Push(ctx context.Context, records []models.OutboxRecord) error {
	rows := make([]api.PushRow, 0, len(records))
	for _, rec := range records {
		var payload map[string]any
		if err := json.Unmarshal([]byte(rec.PayloadJSON), &payload); err != nil {
			return fmt.Errorf("failed to decode payload of outbox record %s: %w", rec.ID, err)
		}

		mapped := mapper.MapPayloadToRemote(rec.TableName, payload, map[string]any{"user_id": c.userID})
		rows = append(rows, api.PushRow{
			Table:     rec.TableName,
			RowID:     rec.RowID,
			Operation: string(rec.Operation),
			Version:   rec.Version,
			Payload:   mapper.NormalizePayload(mapped),
		})
	}

	req := api.PushRequest{Rows: rows}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/push", req, nil); err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	return nil
}

// PullSince fetches rows changed after the given cursor. An empty cursor
// requests the full history.
func (c *Client) PullSince(ctx context.Context, since string) (*api.PullResponse, error) {
	path := "/api/v1/sync/pull"
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}

	var resp api.PullResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set(UserIDHeaderName, c.userID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read response body: %w", err))
		}

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody)))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}
