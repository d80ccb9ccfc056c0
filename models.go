package gatekeeper

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenKind discriminates the two halves of a session pair
type TokenKind = string

const (
	// TokenKindAccess is the short-lived credential presented on every request
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the long-lived credential used to rotate access tokens
	TokenKindRefresh TokenKind = "refresh"
)

// UserGender optional gender attribute
type UserGender = string

const (
	GenderMale   UserGender = "male"
	GenderFemale UserGender = "female"
)

// User is the principal model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	IsAdmin       bool       `bun:"is_admin,notnull" json:"is_admin"`
	Gender        UserGender `bun:"gender,nullzero" json:"gender,omitempty"`
	FullName      string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PhotoProfile  string     `bun:"photo_profile" json:"photo_profile,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AuthToken is one persisted half of a session pair. Rows are never hard
// deleted; revocation is the only removal and it is one-way.
type AuthToken struct {
	bun.BaseModel `bun:"table:auth_tokens,alias:tok"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Kind          TokenKind  `bun:"kind,notnull" json:"kind,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	Revoked       bool       `bun:"is_revoked,notnull" json:"is_revoked"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsExpired reports whether the row is stale at the given instant
func (t *AuthToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// VerifyPurposeRecovery tags VerifyRecords minted by the forgot-password flow
const VerifyPurposeRecovery = "password_recovery"

// AuthVerify tracks a password-recovery code/token pair and its consumption
// state. Rows are kept as an audit trail; both used flags are monotonic and
// the token column stays empty until the code step succeeds.
type AuthVerify struct {
	bun.BaseModel `bun:"table:auth_verify,alias:vfy"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Code          string     `bun:"code,notnull" json:"code,omitempty"`
	Token         string     `bun:"token" json:"token,omitempty"`
	Purpose       string     `bun:"purpose,notnull" json:"purpose,omitempty"`
	CodeIsUsed    bool       `bun:"code_is_used,notnull" json:"code_is_used"`
	TokenIsUsed   bool       `bun:"token_is_used,notnull" json:"token_is_used"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsExpired reports whether the record is past its redemption window
func (v *AuthVerify) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// ConsumeCode moves the record from Created to CodeConsumed, storing the
// minted reset token as the handle for the token step. Replays are rejected.
func (v *AuthVerify) ConsumeCode(resetToken string) error {
	if v.CodeIsUsed {
		return ErrCodeUsed
	}
	v.CodeIsUsed = true
	v.Token = resetToken
	return nil
}

// ConsumeToken moves the record to its terminal TokenConsumed state
func (v *AuthVerify) ConsumeToken() error {
	if v.TokenIsUsed {
		return ErrTokenUsed
	}
	v.TokenIsUsed = true
	return nil
}

// APIKey is an admission credential checked by the api-key guard
type APIKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:key"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Key           string     `bun:"key,notnull,unique" json:"key,omitempty"`
	Label         string     `bun:"label,notnull" json:"label,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// BlacklistKind discriminates blacklist entries
type BlacklistKind = string

const (
	// BlacklistIP denies by client address
	BlacklistIP BlacklistKind = "IP"
	// BlacklistDeviceID denies by the configured device-id header
	BlacklistDeviceID BlacklistKind = "DeviceID"
)

// BlacklistEntry denies a single IP address or device identifier
type BlacklistEntry struct {
	bun.BaseModel `bun:"table:blacklist,alias:bl"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Kind          BlacklistKind `bun:"kind,notnull" json:"kind,omitempty"`
	Value         string        `bun:"value,notnull" json:"value,omitempty"`
	Description   string        `bun:"description" json:"description,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
