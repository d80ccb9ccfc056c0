package gatekeeper

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterSecurityRoutes mounts the admin surface for API keys and
// blacklist entries. Every route runs the full guard chain; the admin check
// happens per handler on the resolved principal.
func RegisterSecurityRoutes[T any](app router.Router[T], controller *SecurityController, chain *GuardChain) {
	protected := chain.Middleware(RouteOverrides{})

	app.Get("/admin/api-keys", controller.ListAPIKeys, protected).SetName("admin.api-keys.list")
	app.Get("/admin/api-keys/:id", controller.GetAPIKey, protected).SetName("admin.api-keys.get")
	app.Post("/admin/api-keys", controller.CreateAPIKey, protected).SetName("admin.api-keys.create")
	app.Put("/admin/api-keys/:id", controller.UpdateAPIKey, protected).SetName("admin.api-keys.update")
	app.Delete("/admin/api-keys/:id", controller.DeleteAPIKey, protected).SetName("admin.api-keys.delete")

	app.Get("/admin/blacklist", controller.ListBlacklist, protected).SetName("admin.blacklist.list")
	app.Get("/admin/blacklist/:id", controller.GetBlacklistEntry, protected).SetName("admin.blacklist.get")
	app.Post("/admin/blacklist", controller.CreateBlacklistEntry, protected).SetName("admin.blacklist.create")
	app.Put("/admin/blacklist/:id", controller.UpdateBlacklistEntry, protected).SetName("admin.blacklist.update")
	app.Delete("/admin/blacklist/:id", controller.DeleteBlacklistEntry, protected).SetName("admin.blacklist.delete")
}

// SecurityController persists through the repositories and keeps the guard
// caches in sync on every write, so changes take effect on the next request
// without a restart.
type SecurityController struct {
	Logger    Logger
	Repo      RepositoryManager
	Keys      *APIKeyCache
	Blacklist *BlacklistCache
}

func NewSecurityController(repo RepositoryManager, keys *APIKeyCache, blacklist *BlacklistCache) *SecurityController {
	if repo == nil {
		panic("Missing RepositoryManager in security controller...")
	}

	return &SecurityController{
		Logger:    defLogger{},
		Repo:      repo,
		Keys:      keys,
		Blacklist: blacklist,
	}
}

func (s *SecurityController) WithLogger(logger Logger) *SecurityController {
	if logger != nil {
		s.Logger = logger
	}
	return s
}

func (s *SecurityController) requireAdmin(ctx router.Context) error {
	user, ok := CurrentUser(ctx.Context())
	if !ok {
		return ErrAuthorizationTokenMissing
	}

	if !user.IsAdmin {
		return ErrPermissionDenied
	}

	return nil
}

func pathID(ctx router.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return uuid.Nil, ValidationError("invalid id", []FieldError{
			{Property: "id", Constraints: map[string]string{"uuid": "id must be a valid UUID"}},
		})
	}
	return id, nil
}

// APIKeyRequest payload
type APIKeyRequest struct {
	Label       string `json:"label"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

// Validate will run validation rules
func (r APIKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Label, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Key, validation.Required, validation.Length(16, 128)),
	)
}

func (s *SecurityController) ListAPIKeys(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	records, err := s.Repo.APIKeys().List(ctx.Context())
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	return ctx.JSON(fiber.StatusOK, records)
}

func (s *SecurityController) GetAPIKey(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	id, err := pathID(ctx)
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	record, err := s.Repo.APIKeys().GetByID(ctx.Context(), id)
	if err != nil {
		return RenderError(ctx, ErrItemNotFound, s.Logger)
	}

	return ctx.JSON(fiber.StatusOK, record)
}

func (s *SecurityController) CreateAPIKey(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	payload := new(APIKeyRequest)
	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), s.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), s.Logger)
	}

	record, err := s.Repo.APIKeys().Create(ctx.Context(), &APIKey{
		Label:       payload.Label,
		Key:         payload.Key,
		Description: payload.Description,
	})
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	s.Keys.Put(record)

	return ctx.JSON(fiber.StatusCreated, record)
}

func (s *SecurityController) UpdateAPIKey(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	id, err := pathID(ctx)
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	payload := new(APIKeyRequest)
	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), s.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), s.Logger)
	}

	record, err := s.Repo.APIKeys().GetByID(ctx.Context(), id)
	if err != nil {
		return RenderError(ctx, ErrItemNotFound, s.Logger)
	}

	record.Label = payload.Label
	record.Key = payload.Key
	record.Description = payload.Description

	record, err = s.Repo.APIKeys().Update(ctx.Context(), record)
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	s.Keys.Put(record)

	return ctx.JSON(fiber.StatusOK, record)
}

func (s *SecurityController) DeleteAPIKey(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	id, err := pathID(ctx)
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	if err := s.Repo.APIKeys().Delete(ctx.Context(), id); err != nil {
		return RenderError(ctx, ErrItemNotFound, s.Logger)
	}

	s.Keys.Remove(id)

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}

// BlacklistRequest payload
type BlacklistRequest struct {
	Kind        string `json:"kind"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Validate will run validation rules
func (r BlacklistRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Kind,
			validation.Required,
			validation.In(string(BlacklistIP), string(BlacklistDeviceID)),
		),
		validation.Field(&r.Value, validation.Required, validation.Length(1, 200)),
	)
}

func (s *SecurityController) ListBlacklist(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	records, err := s.Repo.Blacklist().List(ctx.Context())
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	return ctx.JSON(fiber.StatusOK, records)
}

func (s *SecurityController) GetBlacklistEntry(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	id, err := pathID(ctx)
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	record, err := s.Repo.Blacklist().GetByID(ctx.Context(), id)
	if err != nil {
		return RenderError(ctx, ErrItemNotFound, s.Logger)
	}

	return ctx.JSON(fiber.StatusOK, record)
}

func (s *SecurityController) CreateBlacklistEntry(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	payload := new(BlacklistRequest)
	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), s.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), s.Logger)
	}

	record, err := s.Repo.Blacklist().Create(ctx.Context(), &BlacklistEntry{
		Kind:        BlacklistKind(payload.Kind),
		Value:       payload.Value,
		Description: payload.Description,
	})
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	s.Blacklist.Put(record)

	return ctx.JSON(fiber.StatusCreated, record)
}

func (s *SecurityController) UpdateBlacklistEntry(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	id, err := pathID(ctx)
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	payload := new(BlacklistRequest)
	if err := ctx.Bind(payload); err != nil {
		return RenderError(ctx, ValidationError("failed to parse request body", nil), s.Logger)
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, formatValidationError(err), s.Logger)
	}

	record, err := s.Repo.Blacklist().GetByID(ctx.Context(), id)
	if err != nil {
		return RenderError(ctx, ErrItemNotFound, s.Logger)
	}

	record.Kind = BlacklistKind(payload.Kind)
	record.Value = payload.Value
	record.Description = payload.Description

	record, err = s.Repo.Blacklist().Update(ctx.Context(), record)
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	s.Blacklist.Put(record)

	return ctx.JSON(fiber.StatusOK, record)
}

func (s *SecurityController) DeleteBlacklistEntry(ctx router.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	id, err := pathID(ctx)
	if err != nil {
		return RenderError(ctx, err, s.Logger)
	}

	if err := s.Repo.Blacklist().Delete(ctx.Context(), id); err != nil {
		return RenderError(ctx, ErrItemNotFound, s.Logger)
	}

	s.Blacklist.Remove(id)

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}
