package gatekeeper

import "context"

// APIKeyGuard admits requests that present a known API key. A missing key
// and an unknown key are distinct failures so clients can tell
// misconfiguration apart from revocation.
type APIKeyGuard struct {
	cfg  Config
	keys *APIKeyCache
}

func (g *APIKeyGuard) Name() string { return "api-key" }

func (g *APIKeyGuard) Skip(ov RouteOverrides) bool {
	return !g.cfg.GetAPIKeyEnabled() || ov.APIKeyDisabled
}

func (g *APIKeyGuard) Check(ctx context.Context, req GuardRequest) (context.Context, error) {
	if req.APIKey == "" {
		return ctx, ErrAPIKeyRequired
	}

	if _, ok := g.keys.Lookup(req.APIKey); !ok {
		return ctx, ErrInvalidAPIKey
	}

	return ctx, nil
}
