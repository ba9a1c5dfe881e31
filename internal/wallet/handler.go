package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/ledger"
)

// Handler exposes wallet endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type adjustRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	ClientTxID string          `json:"client_tx_id"`
}

type walletResponse struct {
	ID       string `json:"id"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTransactionResponse(tx ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Type:        tx.Type,
		Amount:      tx.Amount.String(),
		Status:      tx.Status,
		Description: tx.Description,
		Reference:   tx.Reference,
		CreatedAt:   tx.CreatedAt,
	}
}

// Mine returns the authenticated caller's wallet.
func (h *Handler) Mine(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.Mine(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(walletResponse{
		ID:       w.ID,
		Balance:  w.Balance.String(),
		Currency: w.Currency,
		Status:   w.Status,
	})
}

// Transactions lists the caller's ledger entries, newest first. Supports
// type and status filters plus limit/offset paging via query parameters.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	filter := ledger.TxFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	page := ledger.Page{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if page.Limit < 1 || page.Limit > 100 {
		page.Limit = 20
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	txs, total, err := h.service.Transactions(c.UserContext(), uid, filter, page)
	if err != nil {
		return mapError(err)
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, toTransactionResponse(tx))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transactions": resp,
		"total":        total,
		"limit":        page.Limit,
		"offset":       page.Offset,
	})
}

// Fund credits a user's wallet (admin only).
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.service.Fund(c.UserContext(), c.Params("userId"), req.Amount, req.Reason, req.ClientTxID)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(tx))
}

// Deduct debits a user's wallet (admin only).
func (h *Handler) Deduct(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.service.Deduct(c.UserContext(), c.Params("userId"), req.Amount, req.Reason, req.ClientTxID)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(tx))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, identity.ErrUserNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
