package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fu2re/jati/internal/wallet"
)

// RegisterWalletRoutes wires wallet provisioning and read endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallet", h.Create)
	r.Get("/wallet/:walletId", h.Get)
	r.Get("/wallet/:walletId/history", h.History)
}
