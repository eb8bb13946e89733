package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultResendAPIURL is Resend's send-email endpoint.
const DefaultResendAPIURL = "https://api.resend.com/emails"

// ResendMailer sends email through the Resend HTTP API.
type ResendMailer struct {
	apiKey string
	apiURL string
	from   string
	client *http.Client
}

// NewResendMailer creates a ResendMailer. An empty apiURL uses DefaultResendAPIURL.
func NewResendMailer(apiKey, apiURL, from string) *ResendMailer {
	if apiURL == "" {
		apiURL = DefaultResendAPIURL
	}
	return &ResendMailer{
		apiKey: apiKey,
		apiURL: apiURL,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send posts the message to Resend.
func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if m.apiKey == "" {
		return fmt.Errorf("resend api key not configured")
	}

	body, err := json.Marshal(resendEmail{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
