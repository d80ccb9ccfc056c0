package gatekeeper

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced as the "error" member of the JSON error body. Clients
// branch on these, so they are part of the public contract.
const (
	TextCodeValidationError     = "ValidationError"
	TextCodeAuthFailure         = "AuthenticationFailure"
	TextCodeAPIKeyRequired      = "APIKeyRequired"
	TextCodeInvalidAPIKey       = "InvalidAPIKey"
	TextCodeAuthTokenMissing    = "AuthorizationTokenMissing"
	TextCodeInvalidToken        = "InvalidToken"
	TextCodeTokenRevoked        = "TokenRevoked"
	TextCodeTokenExpired        = "TokenExpired"
	TextCodeInvalidTokenType    = "InvalidTokenType"
	TextCodeAccountDeleted      = "AccountDeleted"
	TextCodeBlacklistedIP       = "BlacklistedIP"
	TextCodeBlacklistedDevice   = "BlacklistedDevice"
	TextCodePermissionDenied    = "PermissionDenied"
	TextCodeAccountNotFound     = "AccountNotFound"
	TextCodeItemNotFound        = "ItemNotFound"
	TextCodeInvalidCode         = "InvalidCode"
	TextCodeCodeUsed            = "CodeUsed"
	TextCodeTokenUsed           = "TokenUsed"
)

// Sign-in deliberately collapses unknown identity and wrong password into
// this single error so callers cannot enumerate accounts.
var ErrAuthenticationFailure = goerrors.New("Authentication failure", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthFailure).
	WithCode(goerrors.CodeUnauthorized)

var ErrAPIKeyRequired = goerrors.New("API key required", goerrors.CategoryAuth).
	WithTextCode(TextCodeAPIKeyRequired).
	WithCode(goerrors.CodeUnauthorized)

var ErrInvalidAPIKey = goerrors.New("Invalid API key", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidAPIKey).
	WithCode(goerrors.CodeUnauthorized)

var ErrAuthorizationTokenMissing = goerrors.New("No Authorization Bearer token provided", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthTokenMissing).
	WithCode(goerrors.CodeUnauthorized)

var ErrInvalidToken = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenRevoked = goerrors.New("Token revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenExpired = goerrors.New("Token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

var ErrInvalidTokenType = goerrors.New("Invalid token type", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidTokenType).
	WithCode(goerrors.CodeUnauthorized)

var ErrAccountDeleted = goerrors.New("Your account has been deleted", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDeleted).
	WithCode(goerrors.CodeUnauthorized)

var ErrBlacklistedIP = goerrors.New("IP is blacklisted", goerrors.CategoryAuthz).
	WithTextCode(TextCodeBlacklistedIP).
	WithCode(goerrors.CodeForbidden)

var ErrBlacklistedDevice = goerrors.New("Device is blacklisted", goerrors.CategoryAuthz).
	WithTextCode(TextCodeBlacklistedDevice).
	WithCode(goerrors.CodeForbidden)

var ErrPermissionDenied = goerrors.New("Permission denied", goerrors.CategoryAuthz).
	WithTextCode(TextCodePermissionDenied).
	WithCode(goerrors.CodeForbidden)

var ErrAccountNotFound = goerrors.New("Account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

var ErrItemNotFound = goerrors.New("Item not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeItemNotFound).
	WithCode(goerrors.CodeNotFound)

var ErrInvalidCode = goerrors.New("Invalid code", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeBadRequest)

var ErrCodeUsed = goerrors.New("Code is used", goerrors.CategoryConflict).
	WithTextCode(TextCodeCodeUsed).
	WithCode(goerrors.CodeConflict)

var ErrTokenUsed = goerrors.New("Token is used", goerrors.CategoryConflict).
	WithTextCode(TextCodeTokenUsed).
	WithCode(goerrors.CodeConflict)

// ErrNoEmptyString guards the password hasher
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ValidationError builds the 400 payload used for field-level failures,
// mirroring the errorItems shape older API clients already parse.
func ValidationError(message string, items []FieldError) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode(TextCodeValidationError).
		WithCode(goerrors.CodeBadRequest)
	if len(items) > 0 {
		err = err.WithMetadata(map[string]any{"error_items": items})
	}
	return err
}

// FieldError names one invalid request property
type FieldError struct {
	Property    string            `json:"property"`
	Constraints map[string]string `json:"constraints"`
}
