package admin

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"csrgive.com/app/internal/http/handlers"
	"csrgive.com/app/internal/http/middleware"
	"csrgive.com/app/internal/http/validation"
	"csrgive.com/app/internal/modules/audit"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/giving"
	"csrgive.com/app/internal/shared/apperr"
	"csrgive.com/app/internal/storage"
)

type DonationsHandler struct {
	Logger   *slog.Logger
	Giving   *giving.Service
	Archiver *donations.ReceiptArchiver
	Audit    *audit.Service
}

func NewDonationsHandler(logger *slog.Logger, g *giving.Service, a *donations.ReceiptArchiver, au *audit.Service) *DonationsHandler {
	return &DonationsHandler{Logger: logger, Giving: g, Archiver: a, Audit: au}
}

type refundRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// POST /api/admin/donations/:id/refund
func (h *DonationsHandler) Refund(c *gin.Context) {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	// body is optional
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.Fail(c, apperr.InvalidErr("Please check the highlighted fields.", validation.FromBindError(err, &req)))
		return
	}

	actor, _ := middleware.CurrentUser(c)
	res, err := h.Giving.RefundDonation(c.Request.Context(), id, actor, strings.TrimSpace(req.Reason))
	if errors.Is(err, giving.ErrRefundDeclined) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":    err.Error(),
			"donation": res.Donation,
			"payment":  res.Payment,
		})
		return
	}
	if err != nil {
		middleware.Fail(c, handlers.AppError(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/admin/donations/:id/receipt/archive
func (h *DonationsHandler) ArchiveReceipt(c *gin.Context) {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	res, err := h.Archiver.Archive(ctx, id)
	if err != nil {
		middleware.Fail(c, handlers.AppError(err))
		return
	}

	actor, _ := middleware.CurrentUser(c)
	if _, err := h.Audit.Record(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionReceiptArchived,
		EntityType: "donation",
		EntityID:   id,
		After:      res,
	}); err != nil {
		h.Logger.WarnContext(ctx, "audit write failed", "action", audit.ActionReceiptArchived, "donation_id", id, "err", err)
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/admin/receipts/*key
func (h *DonationsHandler) DownloadReceipt(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	rc, err := h.Archiver.Open(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
		middleware.Fail(c, apperr.NotFoundErr("Receipt not found."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	c.DataFromReader(http.StatusOK, -1, "application/json", rc, nil)
}
