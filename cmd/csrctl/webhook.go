package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"csrgive.com/app/internal/modules/payments"
)

type webhookOpts struct {
	url        string
	secret     string
	eventID    string
	eventType  string
	paymentRef string
	refundRef  string
	amount     int64
	currency   string
	dryRun     bool
	timeout    time.Duration
}

func webhookCmd() *cobra.Command {
	var o webhookOpts
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Send a signed mock provider webhook",
		Long: `Builds a mock gateway event, signs it with the mock webhook secret and
POSTs it to the server.

Examples:
  csrctl webhook --payment-ref mock_20260101120000_abcdef012345
  csrctl webhook --type refund.succeeded --payment-ref ... --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWebhook(cmd.Context(), cmd.OutOrStdout(), o, time.Now())
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.url, "url", "http://localhost:8080/webhooks/mock", "webhook URL")
	f.StringVar(&o.secret, "secret", os.Getenv("PAYMENT_MOCK_WEBHOOK_SECRET"), "signing secret (default $PAYMENT_MOCK_WEBHOOK_SECRET)")
	f.StringVar(&o.eventID, "event-id", "", "event id (default: random evt_...)")
	f.StringVar(&o.eventType, "type", "payment.succeeded", "payment.succeeded|payment.failed|refund.succeeded")
	f.StringVar(&o.paymentRef, "payment-ref", "", "transaction id the event refers to")
	f.StringVar(&o.refundRef, "refund-ref", "", "refund id for refund events")
	f.Int64Var(&o.amount, "amount", 5000, "amount in cents")
	f.StringVar(&o.currency, "currency", "USD", "currency code")
	f.BoolVar(&o.dryRun, "dry-run", false, "print the signed request without sending it")
	f.DurationVar(&o.timeout, "timeout", 10*time.Second, "HTTP timeout")
	_ = cmd.MarkFlagRequired("payment-ref")
	return cmd
}

func buildWebhook(o webhookOpts) ([]byte, error) {
	ev := payments.MockWebhookEvent{ID: o.eventID, Type: o.eventType}
	if ev.ID == "" {
		ev.ID = "evt_" + uuid.NewString()[:12]
	}
	ev.Data.PaymentRef = o.paymentRef
	ev.Data.RefundRef = o.refundRef
	ev.Data.AmountCents = o.amount
	ev.Data.Currency = o.currency
	return json.Marshal(ev)
}

func sendWebhook(ctx context.Context, out io.Writer, o webhookOpts, now time.Time) error {
	if o.secret == "" {
		return fmt.Errorf("--secret not provided and PAYMENT_MOCK_WEBHOOK_SECRET not set")
	}
	body, err := buildWebhook(o)
	if err != nil {
		return err
	}
	sig := payments.SignatureHeaderValue([]byte(o.secret), now.Unix(), body)

	fmt.Fprintf(out, "%s: %s\n", payments.SignatureHeader, sig)
	fmt.Fprintf(out, "Body: %s\n", body)
	if o.dryRun {
		fmt.Fprintln(out, "[dry run] not sent")
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(payments.SignatureHeader, sig)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	fmt.Fprintf(out, "Status: %d\nResponse: %s\n", resp.StatusCode, respBody)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected with status %d", resp.StatusCode)
	}
	return nil
}
