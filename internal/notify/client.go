// Package notify delivers run events to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/harrison/researchflow/internal/config"
	"github.com/harrison/researchflow/internal/models"
)

// Event types
const (
	EventRunStarted   = "run_started"
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
	EventTaskFailed   = "task_failed"
)

// Event is the JSON body posted for every notification.
type Event struct {
	Type       string                 `json:"event"`
	RunID      string                 `json:"run_id"`
	Subject    string                 `json:"subject,omitempty"`
	Phase      models.Phase           `json:"phase,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Message    string                 `json:"message"`
	TaskID     string                 `json:"task_id,omitempty"`
	Capability models.Capability      `json:"capability,omitempty"`
	ErrorKind  models.ErrorKind       `json:"error_kind,omitempty"`
	Stats      *models.SynthesisStats `json:"stats,omitempty"`
	Time       time.Time              `json:"time"`
}

// Client posts events to one webhook URL.
type Client struct {
	url        string
	events     map[string]bool
	httpClient *http.Client
	maxRetries uint64
	backoff    time.Duration
}

// NewClient creates a client from cfg. The client is disabled when cfg has
// no URL.
func NewClient(cfg config.NotifyConfig) *Client {
	events := make(map[string]bool, len(cfg.Events))
	for _, e := range cfg.Events {
		events[e] = true
	}
	return &Client{
		url:        cfg.URL,
		events:     events,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: 3,
		backoff:    200 * time.Millisecond,
	}
}

// Enabled reports whether a webhook is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Wants reports whether the client is subscribed to eventType.
func (c *Client) Wants(eventType string) bool {
	return c.Enabled() && c.events[eventType]
}

// Send posts ev, retrying connection errors and 5xx responses with
// exponential backoff. 4xx responses are not retried.
func (c *Client) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Researchflow-Event", ev.Type)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("deliver %s event: %w", ev.Type, err))
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("deliver %s event: webhook returned %s", ev.Type, resp.Status))
		case resp.StatusCode >= 300:
			return fmt.Errorf("deliver %s event: webhook returned %s", ev.Type, resp.Status)
		}
		return nil
	})
}
