package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terravest/terravest/internal/investment"
)

// RegisterInvestmentRoutes wires the caller's investment endpoints. Writes
// require an approved KYC status on top of authentication.
func RegisterInvestmentRoutes(r fiber.Router, h *investment.Handler, kyc fiber.Handler) {
	r.Post("/investments", kyc, h.Invest)
	r.Get("/investments", h.List)
}
