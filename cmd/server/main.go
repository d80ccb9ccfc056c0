package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-gatekeeper"
)

// Config is loaded from the environment; defaults match the development
// setup, JWT_SECRET is the only value without one.
type Config struct {
	Address        string        `env:"ADDRESS" envDefault:":8080"`
	DSN            string        `env:"DATABASE_DSN" envDefault:"file:gatekeeper.db?cache=shared&_fk=1"`
	SigningKey     string        `env:"JWT_SECRET,required"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"gatekeeper"`
	AccessTTL      time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"4h"`
	RefreshTTL     time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"2880h"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL" envDefault:"5m"`
	ResetCodeTTL   time.Duration `env:"RESET_CODE_TTL" envDefault:"10m"`
	APIKeyGuard    bool          `env:"API_KEY_GUARD_ENABLED" envDefault:"true"`
	BlacklistGuard bool          `env:"BLACKLIST_GUARD_ENABLED" envDefault:"true"`
	BearerGuard    bool          `env:"BEARER_GUARD_ENABLED" envDefault:"true"`
	APIKeyHeader   string        `env:"API_KEY_HEADER" envDefault:"X-API-KEY"`
	DeviceIDHeader string        `env:"DEVICE_ID_HEADER" envDefault:"X-DEVICE-ID"`
	Debug          bool          `env:"DEBUG" envDefault:"false"`
}

func (c Config) GetSigningKey() string             { return c.SigningKey }
func (c Config) GetIssuer() string                 { return c.Issuer }
func (c Config) GetAccessTokenTTL() time.Duration  { return c.AccessTTL }
func (c Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTTL }
func (c Config) GetResetTokenTTL() time.Duration   { return c.ResetTokenTTL }
func (c Config) GetResetCodeTTL() time.Duration    { return c.ResetCodeTTL }
func (c Config) GetAPIKeyEnabled() bool            { return c.APIKeyGuard }
func (c Config) GetBlacklistEnabled() bool         { return c.BlacklistGuard }
func (c Config) GetBearerEnabled() bool            { return c.BearerGuard }
func (c Config) GetAPIKeyHeader() string           { return c.APIKeyHeader }
func (c Config) GetDeviceIDHeader() string         { return c.DeviceIDHeader }

func main() {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer sqldb.Close()

	if err := gatekeeper.RunMigrations(ctx, sqldb, "sqlite3"); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	repo := gatekeeper.NewRepositoryManager(db)
	repo.MustValidate()

	keys := gatekeeper.NewAPIKeyCache(repo.APIKeys())
	if err := keys.Prime(ctx); err != nil {
		log.Fatalf("prime api key cache: %v", err)
	}

	blacklist := gatekeeper.NewBlacklistCache(repo.Blacklist())
	if err := blacklist.Prime(ctx); err != nil {
		log.Fatalf("prime blacklist cache: %v", err)
	}

	service := gatekeeper.NewTokenService(cfg)
	chain := gatekeeper.NewGuardChain(cfg, keys, blacklist, repo.Tokens(), repo.Users(), service)

	controller := gatekeeper.NewAuthController(
		gatekeeper.WithControllerRepo(repo),
		gatekeeper.WithControllerConfig(cfg),
		gatekeeper.WithControllerDebug(cfg.Debug),
	)

	security := gatekeeper.NewSecurityController(repo, keys, blacklist)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		})

		// the blacklist guard reads the client address from headers, stamp
		// direct connections with the socket address
		app.Use(func(c *fiber.Ctx) error {
			if c.Get(gatekeeper.HeaderRealIP) == "" {
				c.Request().Header.Set(gatekeeper.HeaderRealIP, c.IP())
			}
			return c.Next()
		})

		return router.DefaultFiberOptions(app)
	})

	gatekeeper.RegisterAuthRoutes(srv.Router(), controller, chain)
	gatekeeper.RegisterSecurityRoutes(srv.Router(), security, chain)

	srv.Serve(cfg.Address)
	fmt.Printf("listening on %s\n", cfg.Address)

	waitExitSignal()
}

func waitExitSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
