package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fu2re/jati/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))

	calls := 0
	app.Post("/wallet", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, cleanup
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	req := httptest.NewRequest(fiber.MethodPost, "/wallet", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected %d, got %d", fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	post := func() (int, string) {
		req := httptest.NewRequest(fiber.MethodPost, "/wallet", strings.NewReader("{}"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(idempotencyKeyHeader, "abc123")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode, string(payload)
	}

	status1, body1 := post()
	if status1 != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status1)
	}

	// The second request must replay the stored response without invoking
	// the handler again.
	status2, body2 := post()
	if status2 != fiber.StatusCreated {
		t.Fatalf("expected cached 201, got %d", status2)
	}
	if body1 != body2 {
		t.Fatalf("expected identical payloads, got %s and %s", body1, body2)
	}

	// A fresh key reaches the handler.
	req := httptest.NewRequest(fiber.MethodPost, "/wallet", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(idempotencyKeyHeader, "other")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	fresh, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(fresh) == body1 {
		t.Fatalf("a fresh key must not replay the old response")
	}
}

func TestIdempotencySkipsReads(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	app.Get("/wallet/abc", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/wallet/abc", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("reads must bypass idempotency, got %d", resp.StatusCode)
	}
}
