package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookSink posts messages as JSON to a generic HTTP endpoint. The
// config's extras are merged into every payload alongside the text.
type WebhookSink struct {
	name   string
	url    string
	extras map[string]interface{}
	client *http.Client
}

// NewWebhookSink builds a webhook sink from a config blob of the form
// {"url": ..., "extras": {...}}; only url is required.
func NewWebhookSink(name string, config json.RawMessage) (Sink, error) {
	var cfg struct {
		URL    string                 `json:"url"`
		Extras map[string]interface{} `json:"extras"`
	}
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, fmt.Errorf("notify: webhook config for %s: %w", name, err)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("notify: webhook notifier %s: url must be defined", name)
	}
	return &WebhookSink{
		name:   name,
		url:    cfg.URL,
		extras: cfg.Extras,
		client: &http.Client{},
	}, nil
}

func (s *WebhookSink) Name() string { return s.name }

func (s *WebhookSink) Notify(ctx context.Context, message string) error {
	payload := map[string]interface{}{"text": message}
	for k, v := range s.extras {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: webhook marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: webhook build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook post: unexpected status %d", resp.StatusCode)
	}
	return nil
}
