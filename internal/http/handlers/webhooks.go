package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"csrgive.com/app/internal/http/middleware"
	"csrgive.com/app/internal/modules/payments"
	"csrgive.com/app/internal/shared/apperr"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Logger    *slog.Logger
	Payments  *payments.Service
	Events    *payments.WebhookService
	Secret    func(provider string) string
	Tolerance time.Duration
	Now       func() time.Time
}

func NewWebhookHandler(logger *slog.Logger, p *payments.Service, events *payments.WebhookService, secret func(string) string, tolerance time.Duration) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Payments: p, Events: events, Secret: secret, Tolerance: tolerance, Now: time.Now}
}

// POST /webhooks/:provider
// The signature is checked only when a secret is configured for the provider.
// Recognized events are recorded against the ledger; donation state is left
// untouched.
func (h *WebhookHandler) Handle(c *gin.Context) {
	provider := c.Param("provider")
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid body.", nil))
		return
	}

	if secret := h.Secret(provider); secret != "" {
		if err := payments.VerifySignature(secret, c.GetHeader(payments.SignatureHeader), body, h.Now(), h.Tolerance); err != nil {
			h.Logger.WarnContext(ctx, "webhook signature rejected", "provider", provider, "err", err)
			middleware.Fail(c, apperr.UnauthorizedErr("Invalid webhook signature."))
			return
		}
	}

	res, ok, err := h.Payments.HandleWebhook(provider, body)
	if errors.Is(err, payments.ErrProviderNotFound) {
		middleware.Fail(c, apperr.NotFoundErr("Unknown payment provider."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if !ok {
		h.Logger.InfoContext(ctx, "webhook payload not recognized", "provider", provider, "bytes", len(body))
		c.JSON(http.StatusAccepted, gin.H{"ok": true, "recognized": false})
		return
	}

	out, err := h.Events.Record(ctx, provider, res, body)
	if errors.Is(err, payments.ErrMissingEventID) {
		middleware.Fail(c, apperr.InvalidErr("Webhook event id missing.", nil))
		return
	}
	if err != nil {
		// 500 so the provider retries
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"recognized": true,
		"success":    res.Success,
		"event":      out,
	})
}
