package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/livetemplate/blockdraft"
)

// slackWebhookURLPrefix is the required prefix for Slack webhook URLs.
// This prevents data exfiltration to non-Slack endpoints.
const slackWebhookURLPrefix = "https://hooks.slack.com/"

// validateSlackWebhookURL ensures the webhook URL is a valid Slack webhook.
func validateSlackWebhookURL(url string) error {
	if !strings.HasPrefix(url, slackWebhookURLPrefix) {
		return fmt.Errorf("invalid Slack webhook URL: must start with %s", slackWebhookURLPrefix)
	}
	return nil
}

// SlackSink announces template deliveries in a Slack channel. Unlike the
// file and webhook sinks it does not carry the rendered document; it
// posts a short summary so a quoting team hears when a template ships.
type SlackSink struct {
	channel    string
	webhookURL string
	client     *http.Client
}

// slackPayload represents the Slack webhook request body.
type slackPayload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// NewSlackSink creates a new Slack sink.
// The webhook URL is read from the SLACK_WEBHOOK_URL environment variable.
// Channel should be in the format "#channel-name".
func NewSlackSink(channel string) (*SlackSink, error) {
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if webhookURL == "" {
		return nil, fmt.Errorf("SLACK_WEBHOOK_URL environment variable not set")
	}
	if err := validateSlackWebhookURL(webhookURL); err != nil {
		return nil, err
	}

	if channel == "" {
		return nil, fmt.Errorf("slack channel is required")
	}

	return &SlackSink{
		channel:    channel,
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// NewSlackSinkWithURL creates a Slack sink with an explicit webhook URL.
// The URL must be a valid Slack webhook URL (starting with https://hooks.slack.com/).
// For testing, use NewSlackSinkForTesting instead.
func NewSlackSinkWithURL(channel, webhookURL string) (*SlackSink, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if err := validateSlackWebhookURL(webhookURL); err != nil {
		return nil, err
	}

	if channel == "" {
		return nil, fmt.Errorf("slack channel is required")
	}

	return &SlackSink{
		channel:    channel,
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// NewSlackSinkForTesting creates a Slack sink for testing purposes.
// This bypasses webhook URL validation to allow mock servers.
// Do not use in production code.
func NewSlackSinkForTesting(channel, webhookURL string) (*SlackSink, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}

	if channel == "" {
		return nil, fmt.Errorf("slack channel is required")
	}

	return &SlackSink{
		channel:    channel,
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Name returns "slack".
func (s *SlackSink) Name() string {
	return "slack"
}

// Send posts a delivery summary to the Slack channel.
func (s *SlackSink) Send(ctx context.Context, tpl blockdraft.Template) error {
	payload := slackPayload{
		Channel: s.channel,
		Text:    summaryMessage(tpl),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack API error: status %d", resp.StatusCode)
	}

	return nil
}

// summaryMessage builds the channel announcement for a template. Variable
// names appear once each even when the document uses them repeatedly.
func summaryMessage(tpl blockdraft.Template) string {
	msg := fmt.Sprintf("📨 Template %q delivered — %d block(s)", tpl.Name, len(tpl.Blocks))

	seen := make(map[string]bool)
	var unique []string
	for _, name := range blockdraft.TemplateVariables(tpl) {
		if !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}
	if len(unique) > 0 {
		msg += ", variables: " + strings.Join(unique, ", ")
	}
	return msg
}

// Close is a no-op for Slack sinks.
func (s *SlackSink) Close() error {
	return nil
}

// Channel returns the configured channel name.
func (s *SlackSink) Channel() string {
	return s.channel
}
