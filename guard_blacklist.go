package gatekeeper

import "context"

// BlacklistGuard rejects requests from blocked client IPs or device IDs.
// The IP check always runs; the device check only runs when the request
// carries a device header.
type BlacklistGuard struct {
	cfg       Config
	blacklist *BlacklistCache
}

func (g *BlacklistGuard) Name() string { return "blacklist" }

func (g *BlacklistGuard) Skip(ov RouteOverrides) bool {
	return !g.cfg.GetBlacklistEnabled() || ov.BlacklistDisabled
}

func (g *BlacklistGuard) Check(ctx context.Context, req GuardRequest) (context.Context, error) {
	if g.blacklist.HasIP(req.ClientIP) {
		return ctx, ErrBlacklistedIP
	}

	if g.blacklist.HasDevice(req.DeviceID) {
		return ctx, ErrBlacklistedDevice
	}

	return ctx, nil
}
