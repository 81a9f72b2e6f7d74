package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/livetemplate/blockdraft"
	"github.com/livetemplate/blockdraft/internal/security"
)

// WebhookSink POSTs exported templates to an HTTP endpoint, so a CRM
// or delivery pipeline can pick them up. Destinations are screened
// against internal network targets when the sink is created.
type WebhookSink struct {
	url    string
	secret string
	format Format
	client *http.Client
}

// NewWebhookSink creates a webhook sink for the given URL. secret, if
// non-empty, is sent as the X-Blockdraft-Secret header so receivers
// can authenticate the caller. allowLoopback permits localhost targets
// for testing against a local receiver.
func NewWebhookSink(url, secret string, format Format, allowLoopback bool) (*WebhookSink, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook sink: url is required")
	}
	if err := security.ValidateWebhookURL(url, allowLoopback); err != nil {
		return nil, fmt.Errorf("webhook sink: %w", err)
	}

	return &WebhookSink{
		url:    url,
		secret: secret,
		format: format,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Name returns "webhook".
func (w *WebhookSink) Name() string {
	return "webhook"
}

// Send renders the template and POSTs it. Non-2xx responses are
// errors; the delivery can be retried without side effects on the
// document.
func (w *WebhookSink) Send(ctx context.Context, tpl blockdraft.Template) error {
	data, err := Bytes(tpl, w.format)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("webhook sink: %w", err)
	}
	req.Header.Set("Content-Type", w.format.ContentType())
	req.Header.Set("X-Blockdraft-Template", tpl.ID)
	if w.secret != "" {
		req.Header.Set("X-Blockdraft-Secret", w.secret)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook sink: delivery failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook sink: endpoint returned %s", resp.Status)
	}
	return nil
}

// Close is a no-op for webhook sinks.
func (w *WebhookSink) Close() error {
	return nil
}
