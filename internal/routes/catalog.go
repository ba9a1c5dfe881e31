package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terravest/terravest/internal/catalog"
)

// RegisterCatalogRoutes wires read-only plan and property listings.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler) {
	r.Get("/plans", h.Plans)
	r.Get("/properties", h.Properties)
}
