package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terravest/terravest/internal/wallet"
)

// RegisterWalletRoutes wires the caller's wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Mine)
	r.Get("/wallet/transactions", h.Transactions)
}
