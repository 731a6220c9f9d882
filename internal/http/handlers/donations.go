package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"csrgive.com/app/internal/http/middleware"
	"csrgive.com/app/internal/http/validation"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/giving"
	"csrgive.com/app/internal/modules/users"
	"csrgive.com/app/internal/shared/apperr"
)

type DonationsHandler struct {
	Giving    *giving.Service
	Donations *donations.Repo
}

func NewDonationsHandler(g *giving.Service, d *donations.Repo) *DonationsHandler {
	return &DonationsHandler{Giving: g, Donations: d}
}

type createDonationRequest struct {
	CampaignID    uint             `json:"campaign_id" binding:"required"`
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string           `json:"payment_method" binding:"required,oneof=credit_card debit_card paypal bank_transfer"`
	PaymentToken  string           `json:"payment_token" binding:"max=255"`
	Provider      string           `json:"provider" binding:"max=32"`
	Anonymous     bool             `json:"anonymous"`
	Message       *string          `json:"message" binding:"omitempty,max=500"`
}

// POST /api/donations
// 201 when the payment succeeded, 402 with the failed donation otherwise.
func (h *DonationsHandler) Create(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	var req createDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Please check the highlighted fields.", validation.FromBindError(err, &req)))
		return
	}
	if !req.Amount.IsPositive() {
		middleware.Fail(c, apperr.InvalidErr("Please check the highlighted fields.", map[string]string{"amount": "Must be greater than 0."}))
		return
	}
	if req.Message != nil {
		m := strings.TrimSpace(*req.Message)
		if m == "" {
			req.Message = nil
		} else {
			req.Message = &m
		}
	}

	res, err := h.Giving.CreateDonation(c.Request.Context(), giving.CreateDonationInput{
		CampaignID:    req.CampaignID,
		Amount:        *req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentToken:  req.PaymentToken,
		Provider:      strings.ToLower(strings.TrimSpace(req.Provider)),
		Anonymous:     req.Anonymous,
		Message:       req.Message,
	}, u)
	if err != nil {
		middleware.Fail(c, AppError(err))
		return
	}

	if !res.Payment.Success {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":    res.Payment.ErrorMessage,
			"donation": res.Donation,
			"payment":  res.Payment,
		})
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/donations?status=&page=&page_size=
func (h *DonationsHandler) List(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	page := QueryInt(c, "page", 1)

	res, err := h.Donations.ListByUser(c.Request.Context(), donations.ListByUserParams{
		UserID:   u.ID,
		Status:   c.Query("status"),
		Page:     page,
		PageSize: QueryInt(c, "page_size", 20),
	})
	if err != nil {
		middleware.Fail(c, AppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res.Items, "total": res.Total, "page": max(page, 1)})
}

// GET /api/donations/stats
func (h *DonationsHandler) Stats(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	st, err := h.Donations.UserStats(c.Request.Context(), u.ID)
	if err != nil {
		middleware.Fail(c, AppError(err))
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /api/donations/:id
func (h *DonationsHandler) Get(c *gin.Context) {
	d, ok := h.visible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/donations/:id/receipt
func (h *DonationsHandler) Receipt(c *gin.Context) {
	d, ok := h.visible(c)
	if !ok {
		return
	}
	rc, err := h.Donations.Receipt(c.Request.Context(), d.ID)
	if err != nil {
		middleware.Fail(c, AppError(err))
		return
	}
	c.JSON(http.StatusOK, rc)
}

// visible loads the :id donation if the current user owns it or is an
// admin. Other users get the same 404 as a missing donation.
func (h *DonationsHandler) visible(c *gin.Context) (donations.Donation, bool) {
	id, err := ParseID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return donations.Donation{}, false
	}
	d, err := h.Donations.Get(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, AppError(err))
		return donations.Donation{}, false
	}
	u, _ := middleware.CurrentUser(c)
	if !canView(u, d) {
		middleware.Fail(c, AppError(donations.ErrNotFound))
		return donations.Donation{}, false
	}
	return d, true
}

func canView(u users.User, d donations.Donation) bool {
	return u.IsAdmin() || d.UserID == u.ID
}
