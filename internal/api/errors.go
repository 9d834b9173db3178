package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/export"
	"github.com/joeblew999/geoview/internal/ingest"
	"github.com/joeblew999/geoview/internal/normalize"
	"github.com/joeblew999/geoview/internal/registry"
	"github.com/joeblew999/geoview/internal/render"
	"github.com/joeblew999/geoview/internal/session"
	"github.com/joeblew999/geoview/internal/style"
	"github.com/joeblew999/geoview/internal/validate"
)

// httpError maps a domain error to its HTTP status.
func httpError(err error) error {
	var (
		tooLarge    *ingest.TooLargeError
		unsupported *normalize.UnsupportedFormatError
		formatErr   *normalize.FormatError
		schemaErr   *normalize.SchemaError
		invalid     *validate.ValidationError
		badStyle    *style.FieldError
		exportErr   *export.ExportError
		persistErr  *session.PersistenceError
	)
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, ingest.ErrUnknownToken), errors.Is(err, render.ErrDetached):
		return huma.Error404NotFound(err.Error())
	case errors.As(err, &tooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &unsupported):
		return huma.Error415UnsupportedMediaType(err.Error())
	case errors.As(err, &formatErr):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &schemaErr), errors.As(err, &invalid), errors.As(err, &badStyle), errors.As(err, &exportErr):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.As(err, &persistErr):
		return huma.Error500InternalServerError(err.Error())
	case errors.Is(err, registry.ErrClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error400BadRequest(err.Error())
}
