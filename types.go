package gatekeeper

import (
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the knobs the guards and token service read. The concrete
// implementation lives with the host application; cmd/server loads one from
// the environment.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetResetCodeTTL() time.Duration
	GetAPIKeyEnabled() bool
	GetBlacklistEnabled() bool
	GetBearerEnabled() bool
	GetAPIKeyHeader() string
	GetDeviceIDHeader() string
}

const (
	// DefaultAPIKeyHeader is consulted when Config returns an empty header name
	DefaultAPIKeyHeader = "X-API-KEY"
	// DefaultDeviceIDHeader is consulted when Config returns an empty header name
	DefaultDeviceIDHeader = "X-DEVICE-ID"
	// HeaderForwardedFor carries the proxied client address chain
	HeaderForwardedFor = "X-Forwarded-For"
	// HeaderRealIP carries the socket address, stamped by the server
	HeaderRealIP = "X-Real-IP"
)

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GATE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] GATE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GATE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GATE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
