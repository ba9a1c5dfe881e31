package catalog

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes read-only catalog endpoints.
type Handler struct {
	repo Repository
}

// NewHandler constructs a catalog handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

type planResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	MinAmount      string `json:"min_amount"`
	MaxAmount      string `json:"max_amount"`
	ReturnRate     string `json:"return_rate"`
	DurationMonths int    `json:"duration_months"`
}

type propertyResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	MaxInstallments int    `json:"max_installments"`
}

// Plans lists the investment plans on offer.
func (h *Handler) Plans(c *fiber.Ctx) error {
	plans, err := h.repo.ListPlans(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		resp = append(resp, planResponse{
			ID:             p.ID,
			Name:           p.Name,
			Type:           p.Type,
			MinAmount:      p.MinAmount.String(),
			MaxAmount:      p.MaxAmount.String(),
			ReturnRate:     p.ReturnRate.String(),
			DurationMonths: p.DurationMonths,
		})
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Properties lists the properties available for purchase.
func (h *Handler) Properties(c *fiber.Ctx) error {
	properties, err := h.repo.ListProperties(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]propertyResponse, 0, len(properties))
	for _, p := range properties {
		resp = append(resp, propertyResponse{
			ID:              p.ID,
			Name:            p.Name,
			Price:           p.Price.String(),
			MaxInstallments: p.MaxInstallments,
		})
	}
	return c.Status(http.StatusOK).JSON(resp)
}
