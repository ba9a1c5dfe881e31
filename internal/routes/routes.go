package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/terravest/terravest/internal/auth"
	"github.com/terravest/terravest/internal/catalog"
	"github.com/terravest/terravest/internal/config"
	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/investment"
	"github.com/terravest/terravest/internal/ledger"
	"github.com/terravest/terravest/internal/middleware"
	"github.com/terravest/terravest/internal/notification"
	"github.com/terravest/terravest/internal/property"
	"github.com/terravest/terravest/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Backends: Postgres when a pool is present, in-memory otherwise.
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	var catalogRepo catalog.Repository
	if d.DB != nil {
		catalogRepo = catalog.NewPostgresRepository(d.DB)
	} else {
		catalogRepo = catalog.NewMemoryRepository()
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	var investmentStore investment.Store
	if d.DB != nil {
		investmentStore = investment.NewPostgresStore(d.DB)
	} else {
		investmentStore = investment.NewMemoryStore(ledgerBackend)
	}

	var purchaseStore property.Store
	if d.DB != nil {
		purchaseStore = property.NewPostgresStore(d.DB)
	} else {
		purchaseStore = property.NewMemoryStore(ledgerBackend)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	issuer := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.JWTTTL)

	identitySvc := identity.NewService(identityRepo)
	walletSvc := wallet.NewService(ledgerBackend, identityRepo, notifier, d.Logger)
	investmentSvc := investment.NewService(investmentStore, catalogRepo, identityRepo, notifier, d.Cfg.CommissionRate, d.Logger)
	purchaseSvc := property.NewService(purchaseStore, catalogRepo, identityRepo, notifier, d.Logger)

	authHandler := auth.NewHandler(identitySvc, issuer, ledgerBackend, d.Cfg.JWTTTL)
	identityHandler := identity.NewHandler(identitySvc)
	catalogHandler := catalog.NewHandler(catalogRepo)
	walletHandler := wallet.NewHandler(walletSvc)
	investmentHandler := investment.NewHandler(investmentSvc)
	purchaseHandler := property.NewHandler(purchaseSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, authHandler)
	RegisterCatalogRoutes(api, catalogHandler)

	// Protected routes
	protected := api.Group("", middleware.Protect(issuer))
	kyc := middleware.RequireKYC(identityRepo)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterInvestmentRoutes(protected, investmentHandler, kyc)
	RegisterPurchaseRoutes(protected, purchaseHandler, kyc)

	// Admin routes
	admin := api.Group("/admin", middleware.Protect(issuer), middleware.RequireRole(identity.RoleAdmin))
	RegisterAdminRoutes(admin, identityHandler, walletHandler, investmentHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
