package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"csrgive.com/app/internal/config"
)

// MailtrapMailer posts to the Mailtrap send API
// (e.g. https://sandbox.api.mailtrap.io/api/send/<inbox>).
type MailtrapMailer struct {
	apiURL   string
	apiToken string
	client   *http.Client
}

type mailtrapAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapPayload struct {
	From     mailtrapAddress   `json:"from"`
	To       []mailtrapAddress `json:"to"`
	Cc       []mailtrapAddress `json:"cc,omitempty"`
	Bcc      []mailtrapAddress `json:"bcc,omitempty"`
	Subject  string            `json:"subject"`
	Text     string            `json:"text,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Category string            `json:"category,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

func NewMailtrapMailer(cfg config.MailtrapConfig) (*MailtrapMailer, error) {
	if cfg.APIURL == "" || cfg.APIToken == "" {
		return nil, errors.New("mailtrap: api_url and api_token are required")
	}
	return &MailtrapMailer{
		apiURL:   cfg.APIURL,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func addresses(in []string) []mailtrapAddress {
	out := make([]mailtrapAddress, 0, len(in))
	for _, a := range in {
		out = append(out, mailtrapAddress{Email: a})
	}
	return out
}

func (m *MailtrapMailer) Send(ctx context.Context, e Email) error {
	if err := e.validate(); err != nil {
		return err
	}

	category := e.Category
	if category == "" {
		category = "Transactional"
	}
	body, err := json.Marshal(mailtrapPayload{
		From:     mailtrapAddress{Email: e.From, Name: e.FromName},
		To:       addresses(e.To),
		Cc:       addresses(e.Cc),
		Bcc:      addresses(e.Bcc),
		Subject:  e.Subject,
		Text:     e.TextBody,
		HTML:     e.HTMLBody,
		Category: category,
		Headers:  e.Headers,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailtrap: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("mailtrap: status %d: %s", res.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
