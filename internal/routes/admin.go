package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/investment"
	"github.com/terravest/terravest/internal/wallet"
)

// RegisterAdminRoutes wires back-office endpoints: lifecycle transitions,
// commission payout, KYC decisions and manual wallet adjustments.
func RegisterAdminRoutes(r fiber.Router, ids *identity.Handler, wallets *wallet.Handler, investments *investment.Handler) {
	r.Post("/investments/mature-due", investments.MatureDue)
	r.Post("/investments/:investmentId/mature", investments.Mature)
	r.Post("/investments/:investmentId/cancel", investments.Cancel)
	r.Post("/investments/:investmentId/commission/pay", investments.PayCommission)

	r.Post("/users/:userId/kyc", ids.SetKYC)
	r.Post("/wallets/:userId/fund", wallets.Fund)
	r.Post("/wallets/:userId/deduct", wallets.Deduct)
}
