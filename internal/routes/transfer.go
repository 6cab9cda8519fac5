package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fu2re/jati/internal/transfer"
)

// RegisterTransferRoutes wires money movement endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/wallet/:walletId/deposit", h.Deposit)
	r.Post("/wallet/:walletId/send", h.Send)
}
