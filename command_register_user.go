package gatekeeper

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Password   string `json:"password"`
	Gender     string `json:"gender"`
	Phone      string `json:"phone"`
	IsAdmin    bool   `json:"is_admin"`
	UseHashid  bool
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User *User
	Pair *TokenPair
}

// RegisterUserHandler creates the account and signs it in atomically: the
// user row and its first token pair land in the same transaction.
type RegisterUserHandler struct {
	repo    RepositoryManager
	service *TokenService
}

func NewRegisterUserHandler(repo RepositoryManager, service *TokenService) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo, service: service}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	resp := &RegisterUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.checkIdentityAvailable(ctx, event); err != nil {
		return err
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FullName = event.FullName
		user.Gender = UserGender(event.Gender)
		user.IsAdmin = event.IsAdmin
		user.Username = getUsername(event.Username, event.Email)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		pair, err := h.service.IssuePair(user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue token pair")
		}

		access := &AuthToken{
			Kind:      TokenKindAccess,
			Token:     pair.Access,
			UserID:    user.ID,
			ExpiresAt: pair.AccessExpiresAt,
		}
		refresh := &AuthToken{
			Kind:      TokenKindRefresh,
			Token:     pair.Refresh,
			UserID:    user.ID,
			ExpiresAt: pair.RefreshExpiresAt,
		}

		if err := h.repo.Tokens().CreatePairTx(ctx, tx, access, refresh); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not persist token pair")
		}

		resp.User = user
		resp.Pair = pair
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RegisterUserHandler) checkIdentityAvailable(ctx context.Context, event RegisterUserMessage) error {
	var items []FieldError

	if taken, err := h.repo.Users().IsEmailRegistered(ctx, event.Email, uuid.Nil); err == nil && taken {
		items = append(items, FieldError{
			Property:    "email",
			Constraints: map[string]string{"unique": "email already registered"},
		})
	}

	username := getUsername(event.Username, event.Email)
	if taken, err := h.repo.Users().IsUsernameRegistered(ctx, username, uuid.Nil); err == nil && taken {
		items = append(items, FieldError{
			Property:    "username",
			Constraints: map[string]string{"unique": "username already registered"},
		})
	}

	if len(items) > 0 {
		return ValidationError("identity already registered", items)
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
