package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fu2re/jati/internal/config"
	"github.com/fu2re/jati/internal/ledger"
	"github.com/fu2re/jati/internal/wallet"
)

// Handler exposes deposit and send HTTP endpoints. It validates request
// amounts against the deployment constraints before the engine runs and maps
// the engine's typed errors to status codes; it never decides the taxonomy
// itself.
type Handler struct {
	service *Service
}

// NewHandler builds a transfer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	BankAccountID string          `json:"bank_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

type sendRequest struct {
	TargetWalletID string          `json:"target_wallet_id"`
	Amount         decimal.Decimal `json:"amount"`
}

// Deposit funds a wallet from a bank account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, "wallet id must be a uuid")
	}

	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	bankAccountID, err := uuid.Parse(req.BankAccountID)
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, "bank_account_id must be a uuid")
	}
	if err := validateAmount(req.Amount); err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.service.Deposit(c.UserContext(), walletID, bankAccountID, req.Amount); err != nil {
		return mapTransferError(err)
	}
	return c.SendStatus(http.StatusCreated)
}

// Send moves funds between two wallets. Self-transfers are rejected here,
// before the engine runs.
func (h *Handler) Send(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, "wallet id must be a uuid")
	}

	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	targetWalletID, err := uuid.Parse(req.TargetWalletID)
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, "target_wallet_id must be a uuid")
	}
	if err := validateAmount(req.Amount); err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	if walletID == targetWalletID {
		return fiber.NewError(http.StatusConflict, "cannot send money to yourself")
	}

	if err := h.service.Send(c.UserContext(), walletID, targetWalletID, req.Amount); err != nil {
		return mapTransferError(err)
	}
	return c.SendStatus(http.StatusCreated)
}

func validateAmount(amount decimal.Decimal) error {
	if -amount.Exponent() > config.AmountPrecision {
		return errors.New("amount has too many decimal places")
	}
	if amount.LessThan(config.TransactionMinAmount) || amount.GreaterThan(config.TransactionMaxAmount) {
		return errors.New("amount out of bounds")
	}
	return nil
}

func mapTransferError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, wallet.ErrBankAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "bank account not found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusConflict, "insufficient funds")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
