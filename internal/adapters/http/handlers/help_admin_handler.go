package handlers

import (
	"peerhelp/internal/core/domain"
	"peerhelp/internal/core/services"
	"peerhelp/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// HelpAdminHandler handles the admin help endpoints
type HelpAdminHandler struct {
	helpService     *services.HelpService
	deadlineService *services.DeadlineService
	statsService    *services.StatsService
}

// NewHelpAdminHandler creates a new help admin handler
func NewHelpAdminHandler(
	helpService *services.HelpService,
	deadlineService *services.DeadlineService,
	statsService *services.StatsService,
) *HelpAdminHandler {
	return &HelpAdminHandler{
		helpService:     helpService,
		deadlineService: deadlineService,
		statsService:    statsService,
	}
}

// GetPair returns both views of a transaction
// @Summary Get transaction pair
// @Description Get the sender and receiver views of one transaction
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param tx_id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Router /admin/help/{tx_id} [get]
func (h *HelpAdminHandler) GetPair(c *fiber.Ctx) error {
	send, recv, err := h.helpService.GetPair(c.Context(), c.Params("tx_id"))
	if err != nil {
		return renderHelpError(c, err, "Failed to get transaction")
	}

	return response.Success(c, "Transaction retrieved", fiber.Map{
		"send":    send,
		"receive": recv,
	})
}

// Cancel voids an open transaction
// @Summary Cancel transaction
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param tx_id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Router /admin/help/{tx_id}/cancel [post]
func (h *HelpAdminHandler) Cancel(c *fiber.Ctx) error {
	adminID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	record, err := h.helpService.Cancel(c.Context(), c.Params("tx_id"), adminID)
	if err != nil {
		return renderHelpError(c, err, "Failed to cancel transaction")
	}

	return response.Success(c, "Transaction cancelled", record)
}

// ForceConfirm settles a stuck transaction administratively
// @Summary Force-confirm transaction
// @Description Settle a transaction regardless of the receiver's block state
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param tx_id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Router /admin/help/{tx_id}/force-confirm [post]
func (h *HelpAdminHandler) ForceConfirm(c *fiber.Ctx) error {
	adminID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	record, err := h.helpService.ForceConfirm(c.Context(), c.Params("tx_id"), adminID)
	if err != nil {
		return renderHelpError(c, err, "Failed to force-confirm transaction")
	}

	return response.Success(c, "Transaction force-confirmed", record)
}

// Sweep runs one deadline sweep immediately
// @Summary Run deadline sweep
// @Description Expire overdue transactions now instead of waiting for the schedule
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/help/sweep [post]
func (h *HelpAdminHandler) Sweep(c *fiber.Ctx) error {
	expired, err := h.deadlineService.SweepOnce(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Sweep failed")
	}

	return response.Success(c, "Sweep completed", fiber.Map{
		"timed_out": expired,
	})
}

// Stats returns the platform overview
// @Summary Platform stats
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/stats [get]
func (h *HelpAdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.statsService.GetPlatformStats(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get stats")
	}

	return response.Success(c, "Stats retrieved", stats)
}

// Levels returns the level policy table
// @Summary Level table
// @Description The fixed amounts, quotas, limits and checkpoints per level
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Response
// @Router /levels [get]
func (h *HelpAdminHandler) Levels(c *fiber.Ctx) error {
	levels := make([]fiber.Map, 0, len(domain.Levels()))
	for _, l := range domain.Levels() {
		cfg, _ := domain.Config(l)
		levels = append(levels, fiber.Map{
			"level":        string(l),
			"fixed_amount": cfg.FixedAmount,
			"help_quota":   cfg.HelpQuota,
			"help_limit":   cfg.HelpLimit,
			"checkpoints":  cfg.Checkpoints,
			"next_level":   string(cfg.Next),
		})
	}
	return response.Success(c, "Levels retrieved", levels)
}
