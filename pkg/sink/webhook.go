package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/metrics"
	"github.com/dbtuneai/autoinc-agent/pkg/version"
	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
)

const defaultWebhookTimeout = 5 * time.Second

// WebhookPayload is the JSON body posted for every report.
type WebhookPayload struct {
	RunID       string              `json:"run_id"`
	CapturedAt  time.Time           `json:"captured_at"`
	Requested   int                 `json:"requested_hosts"`
	Reported    int                 `json:"reported_hosts"`
	Unreachable []string            `json:"unreachable_hosts"`
	Datapoints  []metrics.Datapoint `json:"datapoints"`
}

// WebhookSink posts each report as JSON to an HTTP endpoint.
type WebhookSink struct {
	client  *retryablehttp.Client
	url     string
	token   string
	timeout time.Duration
	logger  *log.Logger
	options []metrics.Option
}

func NewWebhookSink(
	client *retryablehttp.Client,
	config WebhookConfig,
	logger *log.Logger,
	options ...metrics.Option,
) *WebhookSink {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSink{
		client:  client,
		url:     config.URL,
		token:   config.Token,
		timeout: timeout,
		logger:  logger,
		options: options,
	}
}

func (s *WebhookSink) Name() string {
	return "webhook"
}

func (s *WebhookSink) Publish(ctx context.Context, report *fleet.Report) error {
	payload := WebhookPayload{
		RunID:       report.RunID,
		CapturedAt:  report.CapturedAt,
		Requested:   report.Requested,
		Reported:    len(report.Hosts),
		Unreachable: report.Unreachable,
		Datapoints:  metrics.Flatten(report, s.options...),
	}
	if payload.Unreachable == nil {
		payload.Unreachable = []string{}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// Add a timeout context to avoid hanging
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, "POST", s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warnf("Failed to send report. Response body: %s", string(body))
		return fmt.Errorf("failed to send report, code: %d", resp.StatusCode)
	}

	return nil
}

func (s *WebhookSink) Close() error {
	s.client.HTTPClient.CloseIdleConnections()
	return nil
}
