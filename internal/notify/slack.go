package notify

import (
	"context"
	"encoding/json"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// SlackSink posts messages to a Slack incoming webhook.
type SlackSink struct {
	name  string
	url   string
	from  string
	emoji string
}

// NewSlackSink builds a Slack sink from a config blob of the form
// {"url": ..., "from": ..., "emoji": ...}; only url is required.
func NewSlackSink(name string, config json.RawMessage) (Sink, error) {
	var cfg struct {
		URL   string `json:"url"`
		From  string `json:"from"`
		Emoji string `json:"emoji"`
	}
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, fmt.Errorf("notify: slack config for %s: %w", name, err)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("notify: slack notifier %s: url must be defined", name)
	}
	return &SlackSink{name: name, url: cfg.URL, from: cfg.From, emoji: cfg.Emoji}, nil
}

func (s *SlackSink) Name() string { return s.name }

func (s *SlackSink) Notify(ctx context.Context, message string) error {
	msg := &slackapi.WebhookMessage{
		Text:      message,
		Username:  s.from,
		IconEmoji: s.emoji,
	}
	if err := slackapi.PostWebhookContext(ctx, s.url, msg); err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}
