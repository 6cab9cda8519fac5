package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fu2re/jati/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserID string `json:"user_id"`
}

type walletResponse struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Balance     decimal.Decimal `json:"balance"`
	DateCreated time.Time       `json:"date_created"`
	DateUpdated time.Time       `json:"date_updated"`
}

type entryResponse struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	DateCreated time.Time       `json:"date_created"`
}

// Create provisions a wallet for the given user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, "user_id must be a uuid")
	}

	w, err := h.service.Create(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrWalletExists) {
			return fiber.NewError(http.StatusConflict, "wallet already exists")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toWalletResponse(w))
}

// Get returns wallet details.
func (h *Handler) Get(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, "wallet id must be a uuid")
	}

	w, err := h.service.Get(c.UserContext(), walletID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toWalletResponse(w))
}

// History lists every ledger entry across the accounts of the wallet's owner.
func (h *Handler) History(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, "wallet id must be a uuid")
	}

	entries, err := h.service.History(c.UserContext(), walletID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEntryResponse(e))
	}
	return c.Status(http.StatusOK).JSON(resp)
}

func toWalletResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:          w.ID,
		AccountID:   w.AccountID,
		Balance:     w.Balance,
		DateCreated: w.CreatedAt,
		DateUpdated: w.UpdatedAt,
	}
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		AccountID:   e.AccountID,
		Amount:      e.Amount,
		Kind:        string(e.Kind),
		Status:      string(e.Status),
		DateCreated: e.CreatedAt,
	}
}
