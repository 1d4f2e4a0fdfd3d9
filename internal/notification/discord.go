package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

const (
	colorPaid   = 0x2ecc71
	colorFailed = 0xe74c3c

	// Discord rejects embed descriptions longer than 4096 characters.
	maxDescription = 4000
)

// DiscordService posts ticket events to a Discord webhook.
type DiscordService struct {
	log        zerolog.Logger
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

func NewDiscordService(log zerolog.Logger, webhookURL string) *DiscordService {
	return &DiscordService{
		log:        log.With().Str("module", "notification").Str("type", "discord").Logger(),
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

func (s *DiscordService) PaymentCompleted(ctx context.Context, p *domain.Payment) error {
	if s.webhookURL == "" {
		return nil
	}

	fields := []discordField{
		{Name: "Reference", Value: p.ReferenceNo, Inline: true},
		{Name: "Amount", Value: fmt.Sprintf("%.2f THB", p.Amount), Inline: true},
	}
	if p.BookingID != "" {
		fields = append(fields, discordField{Name: "Booking", Value: p.BookingID})
	}
	if p.CustomerName != "" {
		fields = append(fields, discordField{Name: "Customer", Value: customer(p)})
	}

	return s.send(ctx, discordEmbed{
		Title:     "Payment received",
		Color:     colorPaid,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Fields:    fields,
	})
}

func (s *DiscordService) MigrationFailed(ctx context.Context, err error) error {
	if s.webhookURL == "" {
		return nil
	}

	msg := err.Error()
	if len(msg) > maxDescription {
		msg = msg[:maxDescription]
	}

	return s.send(ctx, discordEmbed{
		Title:       "Database migration failed",
		Description: fmt.Sprintf("The ticket service did not start:\n```%s```", msg),
		Color:       colorFailed,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *DiscordService) send(ctx context.Context, embed discordEmbed) error {
	data, err := json.Marshal(discordWebhook{Embeds: []discordEmbed{embed}})
	if err != nil {
		return errors.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	s.log.Debug().Str("title", embed.Title).Msg("Discord notification sent")
	return nil
}

func customer(p *domain.Payment) string {
	if p.CustomerEmail == "" {
		return p.CustomerName
	}
	return fmt.Sprintf("%s <%s>", p.CustomerName, p.CustomerEmail)
}

type discordWebhook struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}
