// ABOUTME: Webhook dispatcher delivering terminal job notifications
// ABOUTME: At-least-once delivery with the bounded retry schedule 10s/30s/60s

package jobs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/loferris/artificer/internal/logging"
	"github.com/loferris/artificer/pkg/types"
)

// defaultRetryDelays is the canonical webhook retry schedule
var defaultRetryDelays = []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}

// webhookPayload is the wire format delivered on terminal transitions.
// result and error are mutually exclusive.
type webhookPayload struct {
	JobID      string          `json:"jobId"`
	WorkflowID string          `json:"workflowId"`
	Status     types.JobStatus `json:"status"`
	Result     map[string]any  `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Metadata   webhookMetadata `json:"metadata"`
}

type webhookMetadata struct {
	CreatedAt     string `json:"createdAt"`
	StartedAt     string `json:"startedAt,omitempty"`
	CompletedAt   string `json:"completedAt,omitempty"`
	ExecutionTime int64  `json:"executionTime"`
}

// Dispatcher delivers webhook notifications. Delivery is fire and
// forget from the job manager's perspective; it never changes job
// status.
type Dispatcher struct {
	client *http.Client
	delays []time.Duration
	logger zerolog.Logger
}

// DispatcherConfig holds dispatcher configuration
type DispatcherConfig struct {
	Client *http.Client
	Delays []time.Duration
	Logger *zerolog.Logger
}

// NewDispatcher creates a webhook dispatcher
func NewDispatcher(config *DispatcherConfig) *Dispatcher {
	if config == nil {
		config = &DispatcherConfig{}
	}

	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	delays := config.Delays
	if delays == nil {
		delays = defaultRetryDelays
	}
	logger := logging.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Dispatcher{client: client, delays: delays, logger: logger}
}

// Deliver sends the terminal notification for a job, retrying on the
// configured schedule. A 2xx response ends delivery; a 4xx other than
// 408/429 is a permanent failure and is logged without retry.
func (d *Dispatcher) Deliver(job *types.Job) {
	payload := buildPayload(job)

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to encode webhook payload")
		return
	}

	method := job.Webhook.Method
	if method != http.MethodPut {
		method = http.MethodPost
	}

	attempts := len(d.delays) + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(d.delays[attempt-1])
		}

		status, err := d.send(method, job.Webhook, body)
		if err == nil && status >= 200 && status < 300 {
			d.logger.Info().
				Str("job_id", job.ID).
				Str("url", job.Webhook.URL).
				Int("attempt", attempt+1).
				Msg("Webhook delivered")
			return
		}

		if err == nil && status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
			d.logger.Error().
				Str("job_id", job.ID).
				Str("url", job.Webhook.URL).
				Int("status", status).
				Msg("Webhook rejected permanently")
			return
		}

		event := d.logger.Warn().
			Str("job_id", job.ID).
			Str("url", job.Webhook.URL).
			Int("attempt", attempt+1)
		if err != nil {
			event = event.Err(err)
		} else {
			event = event.Int("status", status)
		}
		event.Msg("Webhook delivery failed")
	}

	d.logger.Error().
		Str("job_id", job.ID).
		Str("url", job.Webhook.URL).
		Int("attempts", attempts).
		Msg("Webhook delivery exhausted retries")
}

func (d *Dispatcher) send(method string, webhook *types.WebhookConfig, body []byte) (int, error) {
	request, err := http.NewRequest(method, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	request.Header.Set("Content-Type", "application/json")
	for key, value := range webhook.Headers {
		request.Header.Set(key, value)
	}

	response, err := d.client.Do(request)
	if err != nil {
		return 0, err
	}
	defer func() { _ = response.Body.Close() }()
	return response.StatusCode, nil
}

func buildPayload(job *types.Job) webhookPayload {
	payload := webhookPayload{
		JobID:      job.ID,
		WorkflowID: job.WorkflowID,
		Status:     job.Status,
		Metadata: webhookMetadata{
			CreatedAt:     job.CreatedAt.UTC().Format(time.RFC3339),
			ExecutionTime: job.ExecutionTimeMS,
		},
	}
	if job.StartedAt != nil {
		payload.Metadata.StartedAt = job.StartedAt.UTC().Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		payload.Metadata.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}

	if job.Status == types.JobCompleted {
		payload.Result = job.Result
	} else {
		payload.Error = job.Error
	}
	return payload
}
