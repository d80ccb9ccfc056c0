package gatekeeper

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ResetCredential carries exactly one proof of recovery: a numeric code or
// a reset token. NewResetCredential is the only way to build one, so
// handlers never see the both-or-neither case.
type ResetCredential struct {
	code  string
	token string
}

func NewResetCredential(code, token string) (ResetCredential, error) {
	if code == "" && token == "" {
		return ResetCredential{}, ValidationError("reset requires a code or a token", []FieldError{
			{Property: "code", Constraints: map[string]string{"required": "either code or token must be provided"}},
		})
	}
	if code != "" && token != "" {
		return ResetCredential{}, ValidationError("reset accepts a code or a token, not both", []FieldError{
			{Property: "code", Constraints: map[string]string{"exclusive": "code and token are mutually exclusive"}},
		})
	}
	return ResetCredential{code: code, token: token}, nil
}

func (c ResetCredential) IsCode() bool  { return c.code != "" }
func (c ResetCredential) Code() string  { return c.code }
func (c ResetCredential) Token() string { return c.token }

type RedeemRecoveryCodeMessage struct {
	Code       string `json:"code"`
	OnResponse func(resp *RedeemRecoveryCodeResponse)
}

func (e RedeemRecoveryCodeMessage) Type() string { return "user.password_recovery_redeem_code" }

type RedeemRecoveryCodeResponse struct {
	Token string
}

// RedeemRecoveryCodeHandler exchanges a live recovery code for a reset
// token. The code is burned in the same transaction that stores the token,
// so a replayed code can never mint a second one.
type RedeemRecoveryCodeHandler struct {
	repo    RepositoryManager
	service *TokenService
}

func NewRedeemRecoveryCodeHandler(repo RepositoryManager, service *TokenService) *RedeemRecoveryCodeHandler {
	return &RedeemRecoveryCodeHandler{repo: repo, service: service}
}

func (h *RedeemRecoveryCodeHandler) Execute(ctx context.Context, event RedeemRecoveryCodeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during recovery code redemption",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RedeemRecoveryCodeHandler) execute(ctx context.Context, event RedeemRecoveryCodeMessage) error {
	resp := &RedeemRecoveryCodeResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	record, err := h.repo.Verifications().GetByCode(ctx, event.Code)
	if err != nil {
		return ErrInvalidCode
	}

	// a burned code reports CodeUsed even when it has also expired
	if record.CodeIsUsed {
		return ErrCodeUsed
	}

	if record.IsExpired(time.Now()) {
		return ErrInvalidCode
	}

	reset, _, err := h.service.IssueResetToken(record.UserID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset token")
	}

	if err := record.ConsumeCode(reset); err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := h.repo.Verifications().UpdateTx(ctx, tx, record)
		return err
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist code redemption")
	}

	resp.Token = reset

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

type ResetPasswordMessage struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
	OnResponse  func(resp *ResetPasswordResponse)
}

func (e ResetPasswordMessage) Type() string { return "user.password_reset" }

type ResetPasswordResponse struct {
	Success bool
	User    *User
}

// ResetPasswordHandler finalizes recovery: it verifies the reset token
// against both its signature and the stored verification row, then swaps
// the password hash and burns the token atomically.
type ResetPasswordHandler struct {
	repo    RepositoryManager
	service *TokenService
}

func NewResetPasswordHandler(repo RepositoryManager, service *TokenService) *ResetPasswordHandler {
	return &ResetPasswordHandler{repo: repo, service: service}
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResetPasswordHandler) execute(ctx context.Context, event ResetPasswordMessage) error {
	resp := &ResetPasswordResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	check := h.service.Verify(event.Token)
	if check.State != TokenStateValid || check.Claims.Kind != TokenKindReset {
		return ErrInvalidToken
	}

	userID, err := check.Claims.UserUUID()
	if err != nil {
		return ErrInvalidToken
	}

	record, err := h.repo.Verifications().GetByTokenAndUser(ctx, event.Token, userID)
	if err != nil {
		return ErrInvalidToken
	}

	if err := record.ConsumeToken(); err != nil {
		return err
	}

	user, err := h.repo.Users().GetByID(ctx, userID)
	if err != nil {
		return ErrAccountNotFound
	}

	hash, err := HashPassword(event.NewPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Users().ResetPasswordTx(ctx, tx, user.ID, hash); err != nil {
			return err
		}

		_, err := h.repo.Verifications().UpdateTx(ctx, tx, record)
		return err
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	resp.User = user
	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
