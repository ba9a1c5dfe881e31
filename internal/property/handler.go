package property

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/terravest/terravest/internal/catalog"
	"github.com/terravest/terravest/internal/investment"
	"github.com/terravest/terravest/internal/ledger"
)

// Handler exposes purchase endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a purchase handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type purchaseRequest struct {
	PropertyID   string `json:"property_id"`
	PaymentType  string `json:"payment_option"`
	Installments int    `json:"installments"`
	ClientTxID   string `json:"client_tx_id"`
}

type purchaseResponse struct {
	ID                string     `json:"id"`
	PropertyID        string     `json:"property_id"`
	Amount            string     `json:"amount"`
	PaymentType       string     `json:"payment_option"`
	Status            string     `json:"status"`
	Installments      int        `json:"installments"`
	InstallmentAmount string     `json:"installment_amount"`
	PaidInstallments  int        `json:"paid_installments"`
	NextPaymentDue    *time.Time `json:"next_payment_due,omitempty"`
}

func toResponse(p Purchase) purchaseResponse {
	return purchaseResponse{
		ID:                p.ID,
		PropertyID:        p.PropertyID,
		Amount:            p.Amount.String(),
		PaymentType:       p.PaymentType,
		Status:            p.Status,
		Installments:      p.Installments,
		InstallmentAmount: p.InstallmentAmount.String(),
		PaidInstallments:  p.PaidInstallments,
		NextPaymentDue:    p.NextPaymentDue,
	}
}

// Purchase buys a property for the authenticated caller.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	p, err := h.service.Purchase(c.UserContext(), PurchaseInput{
		UserID:       uid,
		PropertyID:   req.PropertyID,
		PaymentType:  req.PaymentType,
		Installments: req.Installments,
		ClientTxID:   req.ClientTxID,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(p))
}

// PayInstallment pays the next installment on the caller's purchase.
func (h *Handler) PayInstallment(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	p, err := h.service.PayInstallment(c.UserContext(), uid, c.Params("purchaseId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(p))
}

// List returns the caller's purchases.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	purchases, err := h.service.ListByUser(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		resp = append(resp, toResponse(p))
	}
	return c.Status(http.StatusOK).JSON(resp)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrPropertyNotFound), errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidInstallments):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, investment.ErrKYCRequired):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrAlreadyPaid):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
