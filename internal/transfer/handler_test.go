package transfer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fu2re/jati/internal/wallet"
)

func setupTestApp(t *testing.T) (*fiber.App, *wallet.Service, *Service) {
	t.Helper()
	svc, wallets, _ := newTestStack()
	h := NewHandler(svc)

	app := fiber.New()
	app.Post("/wallet/:walletId/deposit", h.Deposit)
	app.Post("/wallet/:walletId/send", h.Send)
	return app, wallets, svc
}

func postJSON(t *testing.T, app *fiber.App, url, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, url, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func TestDepositEndpoint(t *testing.T) {
	app, wallets, _ := setupTestApp(t)
	ctx := context.Background()

	w, _ := wallets.Create(ctx, uuid.New())
	body := fmt.Sprintf(`{"bank_account_id": %q, "amount": "1000"}`, uuid.NewString())

	resp := postJSON(t, app, "/wallet/"+w.ID.String()+"/deposit", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	w, _ = wallets.Get(ctx, w.ID)
	if !w.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected balance 1000, got %s", w.Balance)
	}
}

func TestDepositAmountEdgeCases(t *testing.T) {
	app, wallets, _ := setupTestApp(t)
	ctx := context.Background()
	w, _ := wallets.Create(ctx, uuid.New())

	for _, amount := range []string{"0.01", "1.00001", "1000000000000000.01", "10000.01"} {
		body := fmt.Sprintf(`{"bank_account_id": %q, "amount": %q}`, uuid.NewString(), amount)
		resp := postJSON(t, app, "/wallet/"+w.ID.String()+"/deposit", body)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("amount %s: expected 422, got %d", amount, resp.StatusCode)
		}
	}

	w, _ = wallets.Get(ctx, w.ID)
	if !w.Balance.IsZero() {
		t.Fatalf("rejected amounts must not move money, balance %s", w.Balance)
	}
}

func TestSendSelfTransferConflict(t *testing.T) {
	app, wallets, svc := setupTestApp(t)
	ctx := context.Background()

	w, _ := wallets.Create(ctx, uuid.New())
	if err := svc.Deposit(ctx, w.ID, uuid.New(), decimal.NewFromInt(5000)); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	body := fmt.Sprintf(`{"target_wallet_id": %q, "amount": "1000"}`, w.ID)
	resp := postJSON(t, app, "/wallet/"+w.ID.String()+"/send", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	w, _ = wallets.Get(ctx, w.ID)
	if !w.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("balance must be unchanged, got %s", w.Balance)
	}
}

func TestSendInsufficientFundsConflict(t *testing.T) {
	app, wallets, _ := setupTestApp(t)
	ctx := context.Background()

	from, _ := wallets.Create(ctx, uuid.New())
	to, _ := wallets.Create(ctx, uuid.New())

	body := fmt.Sprintf(`{"target_wallet_id": %q, "amount": "1000"}`, to.ID)
	resp := postJSON(t, app, "/wallet/"+from.ID.String()+"/send", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestSendTargetNotFound(t *testing.T) {
	app, wallets, svc := setupTestApp(t)
	ctx := context.Background()

	w, _ := wallets.Create(ctx, uuid.New())
	if err := svc.Deposit(ctx, w.ID, uuid.New(), decimal.NewFromInt(5000)); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	body := fmt.Sprintf(`{"target_wallet_id": %q, "amount": "1000"}`, uuid.NewString())
	resp := postJSON(t, app, "/wallet/"+w.ID.String()+"/send", body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSendBadWalletID(t *testing.T) {
	app, _, _ := setupTestApp(t)

	body := fmt.Sprintf(`{"target_wallet_id": %q, "amount": "1000"}`, uuid.NewString())
	resp := postJSON(t, app, "/wallet/abcd/send", body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}
