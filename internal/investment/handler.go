package investment

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/terravest/terravest/internal/catalog"
	"github.com/terravest/terravest/internal/ledger"
)

// Handler exposes investment lifecycle endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an investment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type investRequest struct {
	PlanID     string          `json:"plan_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reinvest   bool            `json:"reinvest"`
	ClientTxID string          `json:"client_tx_id"`
}

type matureRequest struct {
	// ActualReturn overrides the frozen expected return when present.
	ActualReturn *decimal.Decimal `json:"actual_return"`
}

type investmentResponse struct {
	ID               string    `json:"id"`
	PlanID           string    `json:"plan_id"`
	Type             string    `json:"type"`
	Amount           string    `json:"amount"`
	ExpectedReturn   string    `json:"expected_return"`
	ActualReturn     *string   `json:"actual_return,omitempty"`
	Status           string    `json:"status"`
	Reinvest         bool      `json:"reinvest"`
	CommissionAmount string    `json:"commission_amount,omitempty"`
	CommissionPaid   bool      `json:"commission_paid"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
}

func toResponse(inv Investment) investmentResponse {
	resp := investmentResponse{
		ID:             inv.ID,
		PlanID:         inv.PlanID,
		Type:           inv.Type,
		Amount:         inv.Amount.String(),
		ExpectedReturn: inv.ExpectedReturn.String(),
		Status:         inv.Status,
		Reinvest:       inv.Reinvest,
		CommissionPaid: inv.CommissionPaid,
		StartDate:      inv.StartDate,
		EndDate:        inv.EndDate,
	}
	if inv.ActualReturn != nil {
		actual := inv.ActualReturn.String()
		resp.ActualReturn = &actual
	}
	if inv.ReferrerID != "" {
		resp.CommissionAmount = inv.CommissionAmount.String()
	}
	return resp
}

// Invest creates an investment for the authenticated caller.
func (h *Handler) Invest(c *fiber.Ctx) error {
	var req investRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	inv, err := h.service.Invest(c.UserContext(), InvestInput{
		UserID:     uid,
		PlanID:     req.PlanID,
		Amount:     req.Amount,
		Reinvest:   req.Reinvest,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(inv))
}

// List returns the caller's investments.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	investments, err := h.service.ListByUser(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]investmentResponse, 0, len(investments))
	for _, inv := range investments {
		resp = append(resp, toResponse(inv))
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Mature closes an active investment (admin only).
func (h *Handler) Mature(c *fiber.Ctx) error {
	var req matureRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	inv, err := h.service.Mature(c.UserContext(), c.Params("investmentId"), req.ActualReturn)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(inv))
}

// Cancel closes an active investment refunding principal (admin only).
func (h *Handler) Cancel(c *fiber.Ctx) error {
	inv, err := h.service.Cancel(c.UserContext(), c.Params("investmentId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(inv))
}

// MatureDue matures all active investments past their end date (admin only).
func (h *Handler) MatureDue(c *fiber.Ctx) error {
	matured, err := h.service.MatureDue(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"matured": matured})
}

// PayCommission pays out the referral commission on an investment (admin only).
func (h *Handler) PayCommission(c *fiber.Ctx) error {
	inv, err := h.service.PayCommission(c.UserContext(), c.Params("investmentId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(inv))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrPlanNotFound), errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAmountOutOfRange), errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrKYCRequired):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotActive), errors.Is(err, ErrCommissionAlreadyPaid), errors.Is(err, ErrNoCommission):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
