package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terravest/terravest/internal/property"
)

// RegisterPurchaseRoutes wires property purchase endpoints. Writes require
// an approved KYC status on top of authentication.
func RegisterPurchaseRoutes(r fiber.Router, h *property.Handler, kyc fiber.Handler) {
	r.Post("/purchases", kyc, h.Purchase)
	r.Get("/purchases", h.List)
	r.Post("/purchases/:purchaseId/installments", kyc, h.PayInstallment)
}
