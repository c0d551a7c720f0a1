package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordSink posts messages through a Discord webhook.
type DiscordSink struct {
	name     string
	session  *discordgo.Session
	id       string
	token    string
	username string
}

// NewDiscordSink builds a Discord sink from a config blob of the form
// {"webhook_id": ..., "webhook_token": ..., "username": ...}.
func NewDiscordSink(name string, config json.RawMessage) (Sink, error) {
	var cfg struct {
		WebhookID    string `json:"webhook_id"`
		WebhookToken string `json:"webhook_token"`
		Username     string `json:"username"`
	}
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, fmt.Errorf("notify: discord config for %s: %w", name, err)
	}
	if cfg.WebhookID == "" || cfg.WebhookToken == "" {
		return nil, fmt.Errorf("notify: discord notifier %s: webhook_id and webhook_token must be defined", name)
	}
	// Webhook execution needs no bot token; the session is only a client.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("notify: discord session for %s: %w", name, err)
	}
	return &DiscordSink{
		name:     name,
		session:  session,
		id:       cfg.WebhookID,
		token:    cfg.WebhookToken,
		username: cfg.Username,
	}, nil
}

func (s *DiscordSink) Name() string { return s.name }

func (s *DiscordSink) Notify(ctx context.Context, message string) error {
	params := &discordgo.WebhookParams{
		Content:  message,
		Username: s.username,
	}
	_, err := s.session.WebhookExecute(s.id, s.token, false, params, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("notify: discord post: %w", err)
	}
	return nil
}
