// Package notify tells the trainer about newly captured leads.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/domain"
)

// ErrInvalidWebhookURL is returned for a URL that is not a Discord webhook.
var ErrInvalidWebhookURL = errors.New("invalid discord webhook url")

// Notifier delivers a new-lead notification.
type Notifier interface {
	NotifyLead(ctx context.Context, lead *domain.Lead) error
}

// Noop discards notifications.
type Noop struct{}

// NotifyLead does nothing.
func (Noop) NotifyLead(context.Context, *domain.Lead) error { return nil }

// DiscordNotifier posts leads to a Discord channel webhook.
type DiscordNotifier struct {
	session   *discordgo.Session
	webhookID string
	token     string
	logger    *zap.Logger
}

// Option configures a DiscordNotifier.
type Option func(*DiscordNotifier)

// WithHTTPClient sets the client used for webhook calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *DiscordNotifier) {
		d.session.Client = hc
	}
}

// NewDiscordNotifier creates a notifier for a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewDiscordNotifier(webhookURL string, logger *zap.Logger, opts ...Option) (*DiscordNotifier, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// Webhook execution is authorized by the token in the path.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.MaxRestRetries = 1

	d := &DiscordNotifier{
		session:   session,
		webhookID: id,
		token:     token,
		logger:    logger.Named("notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ParseWebhookURL extracts the webhook ID and token.
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return "", "", ErrInvalidWebhookURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", ErrInvalidWebhookURL
}

// NotifyLead posts one embed describing the lead.
func (d *DiscordNotifier) NotifyLead(ctx context.Context, lead *domain.Lead) error {
	params := &discordgo.WebhookParams{
		Username: "FitAI",
		Embeds:   []*discordgo.MessageEmbed{LeadEmbed(lead)},
	}
	if _, err := d.session.WebhookExecute(d.webhookID, d.token, false, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	d.logger.Debug("lead notification sent", zap.String("lead_id", lead.ID.String()))
	return nil
}

// LeadEmbed renders a lead as a Discord embed. Empty fields are omitted.
func LeadEmbed(lead *domain.Lead) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "New lead: " + lead.Name,
		Color:     0x2ecc71,
		Timestamp: lead.CreatedAt.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "source: " + string(lead.Source)},
	}
	for _, f := range []struct{ name, value string }{
		{"Email", lead.Email},
		{"Goal", lead.Goal},
		{"Experience", lead.Experience},
		{"Frequency", lead.Frequency},
		{"Timeline", lead.Timeline},
	} {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.name, Value: f.value, Inline: true})
	}
	return embed
}
