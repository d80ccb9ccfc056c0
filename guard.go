package gatekeeper

import (
	"context"
	"strings"

	"github.com/goliatone/go-router"
)

// GuardRequest is the transport-independent view of an inbound request, so
// guards stay testable without a router in play.
type GuardRequest struct {
	APIKey        string
	ClientIP      string
	DeviceID      string
	Authorization string
}

// RouteOverrides is resolved once at route registration. Each flag disables
// one guard for that route; there is no way to re-enable a globally
// disabled guard.
type RouteOverrides struct {
	APIKeyDisabled    bool
	BlacklistDisabled bool
	BearerDisabled    bool
}

// Guard is a single admission check. Check may derive a new context (the
// bearer guard attaches the resolved principal); returning an error stops
// the chain.
type Guard interface {
	Name() string
	Skip(ov RouteOverrides) bool
	Check(ctx context.Context, req GuardRequest) (context.Context, error)
}

// GuardChain evaluates guards in fixed order with strict short-circuiting:
// the first rejection wins and later guards never run.
type GuardChain struct {
	guards []Guard
	cfg    Config
	logger Logger
}

// NewGuardChain wires the canonical api-key, blacklist, bearer order
func NewGuardChain(cfg Config, keys *APIKeyCache, blacklist *BlacklistCache, tokens Tokens, users Users, ts *TokenService) *GuardChain {
	return &GuardChain{
		cfg:    cfg,
		logger: defLogger{},
		guards: []Guard{
			&APIKeyGuard{cfg: cfg, keys: keys},
			&BlacklistGuard{cfg: cfg, blacklist: blacklist},
			&BearerTokenGuard{cfg: cfg, tokens: tokens, users: users, service: ts},
		},
	}
}

func (c *GuardChain) WithLogger(logger Logger) *GuardChain {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Admit runs every non-skipped guard in order and returns the (possibly
// enriched) context of the last one.
func (c *GuardChain) Admit(ctx context.Context, req GuardRequest, ov RouteOverrides) (context.Context, error) {
	for _, g := range c.guards {
		if g.Skip(ov) {
			c.logger.Debug("guard %s skipped", g.Name())
			continue
		}

		next, err := g.Check(ctx, req)
		if err != nil {
			c.logger.Debug("guard %s rejected request: %v", g.Name(), err)
			return ctx, err
		}
		ctx = next
	}

	return ctx, nil
}

// Middleware adapts the chain to the router with a static per-route
// override, resolved here once rather than per request.
func (c *GuardChain) Middleware(ov RouteOverrides) router.MiddlewareFunc {
	apiKeyHeader := c.cfg.GetAPIKeyHeader()
	if apiKeyHeader == "" {
		apiKeyHeader = DefaultAPIKeyHeader
	}
	deviceHeader := c.cfg.GetDeviceIDHeader()
	if deviceHeader == "" {
		deviceHeader = DefaultDeviceIDHeader
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			req := GuardRequest{
				APIKey:        ctx.Header(apiKeyHeader),
				ClientIP:      clientIP(ctx),
				DeviceID:      ctx.Header(deviceHeader),
				Authorization: ctx.Header(router.HeaderAuthorization),
			}

			admitted, err := c.Admit(ctx.Context(), req, ov)
			if err != nil {
				return RenderError(ctx, err, c.logger)
			}

			ctx.SetContext(admitted)
			return next(ctx)
		}
	}
}

// clientIP resolves the originating address from proxy headers. Direct
// connections rely on the server stamping HeaderRealIP from the socket
// address, the way cmd/server does it.
func clientIP(ctx router.Context) string {
	if fwd := ctx.Header(HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return ctx.Header(HeaderRealIP)
}
