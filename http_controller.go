package gatekeeper

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the credential endpoints. Guard overrides are
// resolved here, once: everything under /auth skips the bearer guard except
// sign-out, which is only meaningful with a live access token.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController, chain *GuardChain) {
	open := chain.Middleware(RouteOverrides{BearerDisabled: true})
	protected := chain.Middleware(RouteOverrides{})

	app.Post("/auth/sign-up", controller.SignUp, open).SetName("auth.sign-up")
	app.Post("/auth/sign-in", controller.SignIn, open).SetName("auth.sign-in")
	app.Post("/auth/refresh-token", controller.RefreshToken, open).SetName("auth.refresh-token")
	app.Get("/auth/sign-out", controller.SignOut, protected).SetName("auth.sign-out")
	app.Post("/auth/forgot-password", controller.ForgotPassword, open).SetName("auth.forgot-password")
	app.Post("/auth/reset-password", controller.ResetPassword, open).SetName("auth.reset-password")
}

type AuthController struct {
	Debug   bool
	Logger  Logger
	Repo    RepositoryManager
	Config  Config
	Service *TokenService
	Auther  *Authenticator
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Service == nil {
		c.Service = NewTokenService(c.Config)
	}

	if c.Auther == nil {
		c.Auther = NewAuthenticator(c.Repo, c.Service).WithLogger(c.Logger)
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// SignUpRequest payload
type SignUpRequest struct {
	Email          string `json:"email"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	Password       string `json:"password"`
	RepeatPassword string `json:"repeat_password"`
	Gender         string `json:"gender"`
	Phone          string `json:"phone"`
}

// Validate will run validation rules
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Username, validation.Length(3, 20)),
		validation.Field(&r.FullName, validation.Required, validation.Length(3, 30)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.RepeatPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.Gender, validation.In(string(GenderMale), string(GenderFemale))),
	)
}

type sessionPayload struct {
	User    *User  `json:"user"`
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

func (a *AuthController) SignUp(ctx router.Context) error {
	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), a.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), a.Logger)
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGN UP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	var res *RegisterUserResponse

	req := RegisterUserMessage{
		Email:    payload.Email,
		Username: payload.Username,
		FullName: payload.FullName,
		Password: payload.Password,
		Gender:   payload.Gender,
		Phone:    payload.Phone,
		OnResponse: func(resp *RegisterUserResponse) {
			res = resp
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo, a.Service)
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("sign up error: %v", err)
		return RenderError(ctx, err, a.Logger)
	}

	return ctx.JSON(fiber.StatusCreated, sessionPayload{
		User:    res.User,
		Token:   res.Pair.Access,
		Refresh: res.Pair.Refresh,
	})
}

// SignInRequest payload
type SignInRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identity, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) SignIn(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), a.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), a.Logger)
	}

	user, pair, err := a.Auther.SignIn(ctx.Context(), payload.Identity, payload.Password)
	if err != nil {
		return RenderError(ctx, err, a.Logger)
	}

	return ctx.JSON(fiber.StatusOK, sessionPayload{
		User:    user,
		Token:   pair.Access,
		Refresh: pair.Refresh,
	})
}

// RefreshTokenRequest payload
type RefreshTokenRequest struct {
	Token string `json:"token"`
}

// Validate will run validation rules
func (r RefreshTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

// RefreshToken exchanges an expired access token plus its refresh token for
// a fresh access token. The access token rides the Authorization header; it
// is looked up as a stored row here, never signature-checked, since it is
// expected to be expired.
func (a *AuthController) RefreshToken(ctx router.Context) error {
	payload := new(RefreshTokenRequest)

	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), a.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), a.Logger)
	}

	rawAccess, ok := bearerToken(ctx)
	if !ok {
		return RenderError(ctx, ErrAuthorizationTokenMissing, a.Logger)
	}

	token, err := a.Auther.Refresh(ctx.Context(), rawAccess, payload.Token)
	if err != nil {
		return RenderError(ctx, err, a.Logger)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"token": token})
}

func (a *AuthController) SignOut(ctx router.Context) error {
	rawAccess, ok := bearerToken(ctx)
	if !ok {
		return RenderError(ctx, ErrAuthorizationTokenMissing, a.Logger)
	}

	if err := a.Auther.SignOut(ctx.Context(), rawAccess); err != nil {
		return RenderError(ctx, err, a.Logger)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Identity       string `json:"identity"`
	RecoveryMethod string `json:"recovery_method"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identity, validation.Required),
		validation.Field(
			&r.RecoveryMethod,
			validation.In(RecoveryMethodEmail, RecoveryMethodSMS),
		),
	)
}

func (a *AuthController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), a.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), a.Logger)
	}

	var res *RequestPasswordRecoveryResponse

	req := RequestPasswordRecoveryMessage{
		Identity:       payload.Identity,
		RecoveryMethod: payload.RecoveryMethod,
		OnResponse: func(resp *RequestPasswordRecoveryResponse) {
			res = resp
		},
	}

	recovery := NewRequestPasswordRecoveryHandler(a.Repo, a.Config).WithLogger(a.Logger)
	if err := recovery.Execute(ctx.Context(), req); err != nil {
		return RenderError(ctx, err, a.Logger)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"code_sent": res.CodeSent,
		"user":      res.User,
	})
}

// ResetPasswordRequest payload: exactly one of code or token
type ResetPasswordRequest struct {
	Code              string `json:"code"`
	Token             string `json:"token"`
	NewPassword       string `json:"new_password"`
	RepeatNewPassword string `json:"repeat_new_password"`
}

// Validate will run validation rules. The code path only redeems the code,
// so password fields are required on the token path alone.
func (r ResetPasswordRequest) Validate() error {
	if r.Code != "" {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Code, validation.Length(6, 6), is.Digit),
		)
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.RepeatNewPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *AuthController) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), a.Logger)
	}

	credential, err := NewResetCredential(payload.Code, payload.Token)
	if err != nil {
		return RenderError(ctx, err, a.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), a.Logger)
	}

	if credential.IsCode() {
		var res *RedeemRecoveryCodeResponse

		req := RedeemRecoveryCodeMessage{
			Code: credential.Code(),
			OnResponse: func(resp *RedeemRecoveryCodeResponse) {
				res = resp
			},
		}

		redeem := NewRedeemRecoveryCodeHandler(a.Repo, a.Service)
		if err := redeem.Execute(ctx.Context(), req); err != nil {
			return RenderError(ctx, err, a.Logger)
		}

		return ctx.JSON(fiber.StatusOK, map[string]any{"token": res.Token})
	}

	req := ResetPasswordMessage{
		Token:       credential.Token(),
		NewPassword: payload.NewPassword,
	}

	reset := NewResetPasswordHandler(a.Repo, a.Service)
	if err := reset.Execute(ctx.Context(), req); err != nil {
		return RenderError(ctx, err, a.Logger)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}

func bearerToken(ctx router.Context) (string, bool) {
	raw, ok := strings.CutPrefix(ctx.Header(router.HeaderAuthorization), bearerScheme)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return fmt.Errorf("values must match")
		}
		return nil
	}
}

// formatValidationError converts ozzo field errors into the error_items
// shape clients expect.
func formatValidationError(err error) error {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return ValidationError(err.Error(), nil)
	}

	items := make([]FieldError, 0, len(verrs))
	for field, ferr := range verrs {
		items = append(items, FieldError{
			Property:    field,
			Constraints: map[string]string{"invalid": ferr.Error()},
		})
	}

	return ValidationError("request validation failed", items)
}
