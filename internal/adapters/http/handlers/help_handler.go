package handlers

import (
	"context"
	"errors"

	"peerhelp/internal/core/domain"
	"peerhelp/internal/core/services"
	"peerhelp/internal/pkg/pagination"
	"peerhelp/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// HelpHandler handles the user-facing help transaction endpoints
type HelpHandler struct {
	helpService *services.HelpService
}

// NewHelpHandler creates a new help handler
func NewHelpHandler(helpService *services.HelpService) *HelpHandler {
	return &HelpHandler{helpService: helpService}
}

// SubmitProofRequest represents the sender's payment proof body
type SubmitProofRequest struct {
	PaymentUTR        string `json:"payment_utr"`
	PaymentScreenshot string `json:"payment_screenshot"`
	PaymentMethod     string `json:"payment_method"`
}

// DisputeRequest represents the receiver's dispute body
type DisputeRequest struct {
	Reason string `json:"reason"`
}

// Assign opens a new help transaction for the caller
// @Summary Send help
// @Description Assign a receiver and open a help transaction at the caller's level amount
// @Tags Help
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /help/send [post]
func (h *HelpHandler) Assign(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.helpService.Assign(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateActiveTransaction):
			return response.Conflict(c, "You already have an active help transaction")
		case errors.Is(err, domain.ErrIneligibleSender):
			return response.UnprocessableEntity(c, "Your account is not eligible to send help")
		case errors.Is(err, domain.ErrNoEligibleReceiver):
			return response.NotFound(c, "No eligible receiver available, try again later")
		case errors.Is(err, domain.ErrConcurrencyConflict):
			return response.Conflict(c, "Receiver slots changed, please retry")
		default:
			return response.InternalServerError(c, "Failed to assign help")
		}
	}

	return response.Created(c, "Help assigned", result)
}

// RequestPayment lets the receiver nudge the sender
// @Summary Request payment
// @Description Ask the sender to pay; repeatable after the cooldown
// @Tags Help
// @Produce json
// @Security BearerAuth
// @Param tx_id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /help/{tx_id}/request-payment [post]
func (h *HelpHandler) RequestPayment(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	record, err := h.helpService.RequestPayment(c.Context(), c.Params("tx_id"), userID)
	if err != nil {
		return renderHelpError(c, err, "Failed to request payment")
	}

	return response.Success(c, "Payment requested", record)
}

// SubmitProof records the sender's payment evidence
// @Summary Submit payment proof
// @Description Mark the payment as done with UTR and method
// @Tags Help
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tx_id path string true "Transaction ID"
// @Param body body SubmitProofRequest true "Payment proof"
// @Success 200 {object} response.Response
// @Router /help/{tx_id}/proof [post]
func (h *HelpHandler) SubmitProof(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req SubmitProofRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.SubmitProofInput{
		PaymentUTR:        req.PaymentUTR,
		PaymentScreenshot: req.PaymentScreenshot,
		PaymentMethod:     req.PaymentMethod,
	}
	record, err := h.helpService.SubmitProof(c.Context(), c.Params("tx_id"), userID, input)
	if err != nil {
		return renderHelpError(c, err, "Failed to submit payment proof")
	}

	return response.Success(c, "Payment proof submitted", record)
}

// Confirm acknowledges receipt of the payment
// @Summary Confirm help received
// @Description Confirm the payment landed; counts toward the receiver's quota
// @Tags Help
// @Produce json
// @Security BearerAuth
// @Param tx_id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Router /help/{tx_id}/confirm [post]
func (h *HelpHandler) Confirm(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	record, err := h.helpService.Confirm(c.Context(), c.Params("tx_id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrReceiverIncomeBlocked) {
			return response.UnprocessableEntity(c, "Your income is blocked, settle the pending unblock payment first")
		}
		return renderHelpError(c, err, "Failed to confirm help")
	}

	return response.Success(c, "Help confirmed", record)
}

// Dispute flags a submitted payment as not received
// @Summary Dispute payment
// @Description Flag the submitted payment as not received
// @Tags Help
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tx_id path string true "Transaction ID"
// @Param body body DisputeRequest true "Dispute reason"
// @Success 200 {object} response.Response
// @Router /help/{tx_id}/dispute [post]
func (h *HelpHandler) Dispute(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req DisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	record, err := h.helpService.Dispute(c.Context(), c.Params("tx_id"), userID, &services.DisputeInput{Reason: req.Reason})
	if err != nil {
		return renderHelpError(c, err, "Failed to dispute payment")
	}

	return response.Success(c, "Payment disputed", record)
}

// Get returns the caller's view of a transaction
// @Summary Get help transaction
// @Tags Help
// @Produce json
// @Security BearerAuth
// @Param tx_id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Router /help/{tx_id} [get]
func (h *HelpHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	record, err := h.helpService.GetForUser(c.Context(), c.Params("tx_id"), userID)
	if err != nil {
		return renderHelpError(c, err, "Failed to get transaction")
	}

	return response.Success(c, "Transaction retrieved", record)
}

// ListSent returns the caller's sent help history
// @Summary List sent help
// @Tags Help
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Response
// @Router /help/sent [get]
func (h *HelpHandler) ListSent(c *fiber.Ctx) error {
	return h.listHistory(c, h.helpService.ListSent)
}

// ListReceived returns the caller's received help history
// @Summary List received help
// @Tags Help
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Response
// @Router /help/received [get]
func (h *HelpHandler) ListReceived(c *fiber.Ctx) error {
	return h.listHistory(c, h.helpService.ListReceived)
}

type historyFn func(ctx context.Context, userID uint, input *services.HistoryInput) (*services.HistoryOutput, error)

func (h *HelpHandler) listHistory(c *fiber.Ctx, list historyFn) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	input := &services.HistoryInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Status: c.Query("status"),
	}

	result, err := list(c.Context(), userID, input)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to list transactions")
	}

	return response.Success(c, "Transactions retrieved", result)
}

// renderHelpError maps domain errors from the help lifecycle onto HTTP
// status codes
func renderHelpError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrTxNotFound):
		return response.NotFound(c, "Transaction not found")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You are not a party to this transaction")
	case errors.Is(err, domain.ErrTerminalState):
		return response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return response.UnprocessableEntity(c, "Action not allowed in the current status")
	case errors.Is(err, domain.ErrCooldownActive):
		return response.TooManyRequests(c, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return response.Conflict(c, "Transaction changed concurrently, please retry")
	case errors.Is(err, domain.ErrPairDiverged):
		return response.InternalServerError(c, "Transaction records are inconsistent")
	default:
		return response.InternalServerError(c, fallback)
	}
}
