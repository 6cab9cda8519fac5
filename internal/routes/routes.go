package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fu2re/jati/internal/config"
	"github.com/fu2re/jati/internal/ledger"
	"github.com/fu2re/jati/internal/middleware"
	"github.com/fu2re/jati/internal/notification"
	"github.com/fu2re/jati/internal/transfer"
	"github.com/fu2re/jati/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database
// the storage backends fall back to their in-memory implementations, which is
// only meant for local runs and tests.
func Setup(app *fiber.App, d Deps) (*transfer.Service, error) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var (
		repo          wallet.Repository
		ledgerBackend ledger.Ledger
	)
	if d.DB != nil {
		repo = wallet.NewPostgresRepository(d.DB)
		ledgerBackend = ledger.NewPostgres(d.DB)
	} else {
		memRepo := wallet.NewMemoryRepository()
		repo = memRepo
		ledgerBackend = ledger.NewInMemory(memRepo)
	}

	walletSvc := wallet.NewService(repo, ledgerBackend)
	notifier := notification.NewLoggerNotifier(d.Logger)
	transferSvc := transfer.NewService(walletSvc, ledgerBackend, notifier, d.Logger)

	RegisterWalletRoutes(app, wallet.NewHandler(walletSvc))
	RegisterTransferRoutes(app, transfer.NewHandler(transferSvc))

	return transferSvc, nil
}
