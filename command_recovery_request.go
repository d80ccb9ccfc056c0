package gatekeeper

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

const (
	RecoveryMethodEmail = "email"
	RecoveryMethodSMS   = "sms"
)

type RequestPasswordRecoveryMessage struct {
	Identity       string `json:"identity"`
	RecoveryMethod string `json:"recovery_method"`
	OnResponse     func(resp *RequestPasswordRecoveryResponse)
}

func (e RequestPasswordRecoveryMessage) Type() string { return "user.password_recovery_request" }

type RequestPasswordRecoveryResponse struct {
	CodeSent bool
	User     *User
}

// RequestPasswordRecoveryHandler mints a short lived numeric recovery code
// for an account. Without a delivery method there is nothing to send, so no
// code is generated or persisted and the response reports code_sent false.
type RequestPasswordRecoveryHandler struct {
	repo   RepositoryManager
	cfg    Config
	logger Logger
}

func NewRequestPasswordRecoveryHandler(repo RepositoryManager, cfg Config) *RequestPasswordRecoveryHandler {
	return &RequestPasswordRecoveryHandler{repo: repo, cfg: cfg, logger: defLogger{}}
}

func (h *RequestPasswordRecoveryHandler) WithLogger(logger Logger) *RequestPasswordRecoveryHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestPasswordRecoveryHandler) Execute(ctx context.Context, event RequestPasswordRecoveryMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password recovery request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordRecoveryHandler) execute(ctx context.Context, event RequestPasswordRecoveryMessage) error {
	resp := &RequestPasswordRecoveryResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Identity)
	if err != nil {
		return ErrAccountNotFound
	}

	resp.User = user

	switch event.RecoveryMethod {
	case RecoveryMethodEmail, RecoveryMethodSMS:
	default:
		h.logger.Debug("recovery request for %s carried no delivery method, nothing sent", user.ID)
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	destination := user.Email
	if event.RecoveryMethod == RecoveryMethodSMS {
		if err := validateRecoveryPhone(user.Phone); err != nil {
			return err
		}
		destination = user.Phone
	}

	code, err := randomCode(6)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate recovery code")
	}

	record := &AuthVerify{
		Code:      code,
		Purpose:   VerifyPurposeRecovery,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(h.cfg.GetResetCodeTTL()),
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := h.repo.Verifications().CreateTx(ctx, tx, record)
		return err
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist recovery code")
	}

	go printRecoveryNotification(event.RecoveryMethod, destination, code)
	resp.CodeSent = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func validateRecoveryPhone(phone string) error {
	if phone == "" {
		return ValidationError("account has no phone number on file", []FieldError{
			{Property: "recovery_method", Constraints: map[string]string{"phone": "sms recovery requires a phone number"}},
		})
	}

	parsed, err := phonenumbers.Parse(phone, "US")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ValidationError("account phone number is not usable for sms", []FieldError{
			{Property: "recovery_method", Constraints: map[string]string{"phone": "sms recovery requires a valid phone number"}},
		})
	}

	return nil
}

func randomCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

func printRecoveryNotification(method, destination, code string) {
	fmt.Println("====== SENDING RECOVERY NOTIFICATION =======")
	fmt.Printf("via: %s\n", method)
	fmt.Printf("to: %s\n", destination)
	fmt.Printf("code: %s\n", code)
}
