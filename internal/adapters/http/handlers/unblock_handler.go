package handlers

import (
	"context"
	"errors"
	"strconv"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/core/domain"
	"peerhelp/internal/core/services"
	"peerhelp/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UnblockHandler handles unblock payment endpoints
type UnblockHandler struct {
	unblockService *services.UnblockService
}

// NewUnblockHandler creates a new unblock handler
func NewUnblockHandler(unblockService *services.UnblockService) *UnblockHandler {
	return &UnblockHandler{unblockService: unblockService}
}

// SubmitUnblockRequest represents an unblock payment submission body
type SubmitUnblockRequest struct {
	Type     string `json:"type"`
	ProofRef string `json:"proof_ref"`
}

// Submit records an unblock payment for the caller's current checkpoint
// @Summary Submit unblock payment
// @Description Submit proof of the upgrade or sponsor payment that lifts the caller's income block
// @Tags Unblock
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SubmitUnblockRequest true "Payment details"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /unblock [post]
func (h *UnblockHandler) Submit(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req SubmitUnblockRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	payment, err := h.unblockService.Submit(c.Context(), userID, &services.SubmitInput{
		Type:     req.Type,
		ProofRef: req.ProofRef,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotIncomeBlocked):
			return response.UnprocessableEntity(c, "Your account is not income-blocked")
		case errors.Is(err, services.ErrWrongUnblockType):
			return response.BadRequest(c, "Payment type does not match your checkpoint")
		case errors.Is(err, services.ErrUnblockPending):
			return response.Conflict(c, "An unblock payment is already pending review")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to submit unblock payment")
		}
	}

	return response.Created(c, "Unblock payment submitted", payment)
}

// ListMine lists the caller's unblock payments
// @Summary List my unblock payments
// @Tags Unblock
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /unblock [get]
func (h *UnblockHandler) ListMine(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	payments, err := h.unblockService.ListMine(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list unblock payments")
	}

	return response.Success(c, "Unblock payments retrieved", payments)
}

// ListPending lists pending submissions for review
// @Summary List pending unblock payments
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Router /admin/unblock/pending [get]
func (h *UnblockHandler) ListPending(c *fiber.Ctx) error {
	payments, total, err := h.unblockService.ListPending(c.Context(), c.QueryInt("page", 1), c.QueryInt("limit", 10))
	if err != nil {
		return response.InternalServerError(c, "Failed to list pending payments")
	}

	return response.Success(c, "Pending payments retrieved", fiber.Map{
		"payments": payments,
		"total":    total,
	})
}

// Confirm approves a pending unblock payment
// @Summary Confirm unblock payment
// @Description Approve the payment, lift the block and apply an upgrade if due
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Router /admin/unblock/{id}/confirm [post]
func (h *UnblockHandler) Confirm(c *fiber.Ctx) error {
	return h.review(c, h.unblockService.Confirm, "Unblock payment confirmed", "Failed to confirm payment")
}

// Reject declines a pending unblock payment
// @Summary Reject unblock payment
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Router /admin/unblock/{id}/reject [post]
func (h *UnblockHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, h.unblockService.Reject, "Unblock payment rejected", "Failed to reject payment")
}

type reviewFn func(ctx context.Context, paymentID, adminID uint) (*models.UnblockPayment, error)

func (h *UnblockHandler) review(c *fiber.Ctx, action reviewFn, okMsg, failMsg string) error {
	adminID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	paymentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	payment, err := action(c.Context(), uint(paymentID), adminID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "Payment not found")
		case errors.Is(err, services.ErrUnblockNotPending):
			return response.UnprocessableEntity(c, "Payment is not pending")
		default:
			return response.InternalServerError(c, failMsg)
		}
	}

	return response.Success(c, okMsg, payment)
}
