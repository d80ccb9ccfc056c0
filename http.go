package gatekeeper

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ErrorResponse is the wire shape for every rejected request
type ErrorResponse struct {
	Code    int          `json:"code"`
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Items   []FieldError `json:"error_items,omitempty"`
}

// RenderError maps any error to its JSON payload. Rich errors carry their
// own HTTP status and text code; anything else is masked as a 500 so
// internals never leak to clients.
func RenderError(ctx router.Context, err error, logger Logger) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if logger != nil {
		logger.Info(
			"request rejected: %s (category=%s details=%s)",
			richErr.Message,
			richErr.Category,
			print.MaybePrettyJSON(richErr.Metadata),
		)
	}

	resp := ErrorResponse{
		Code:    richErr.Code,
		Error:   string(richErr.TextCode),
		Message: richErr.Message,
	}

	if items, ok := richErr.Metadata["error_items"].([]FieldError); ok {
		resp.Items = items
	}

	return ctx.JSON(richErr.Code, resp)
}
