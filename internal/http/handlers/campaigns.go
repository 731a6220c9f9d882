package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"csrgive.com/app/internal/http/middleware"
	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
)

type CampaignsHandler struct {
	Campaigns *campaigns.Repo
	Donations *donations.Repo
}

func NewCampaignsHandler(c *campaigns.Repo, d *donations.Repo) *CampaignsHandler {
	return &CampaignsHandler{Campaigns: c, Donations: d}
}

type campaignView struct {
	campaigns.Campaign
	Progress float64 `json:"progress_percentage"`
}

func viewOf(c campaigns.Campaign) campaignView {
	return campaignView{Campaign: c, Progress: c.ProgressPercentage()}
}

// GET /api/campaigns?status=&page=&page_size=
func (h *CampaignsHandler) List(c *gin.Context) {
	page := QueryInt(c, "page", 1)
	res, err := h.Campaigns.List(c.Request.Context(), campaigns.ListParams{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: QueryInt(c, "page_size", 20),
	})
	if err != nil {
		middleware.Fail(c, AppError(err))
		return
	}

	items := make([]campaignView, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, viewOf(it))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": res.Total, "page": max(page, 1)})
}

// GET /api/campaigns/:id
func (h *CampaignsHandler) Get(c *gin.Context) {
	id, err := ParseID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	cp, err := h.Campaigns.Get(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, AppError(err))
		return
	}
	c.JSON(http.StatusOK, viewOf(cp))
}

// GET /api/campaigns/:id/stats
func (h *CampaignsHandler) Stats(c *gin.Context) {
	id, err := ParseID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	cp, err := h.Campaigns.Get(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, AppError(err))
		return
	}
	st, err := h.Donations.CampaignStats(c.Request.Context(), cp.ID)
	if err != nil {
		middleware.Fail(c, AppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"campaign_id":         cp.ID,
		"target_amount":       cp.TargetAmount,
		"current_amount":      cp.CurrentAmount,
		"progress_percentage": cp.ProgressPercentage(),
		"stats":               st,
	})
}
