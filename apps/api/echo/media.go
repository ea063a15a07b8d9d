package echoapi

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/mrembo/urembo/core/lesson"
)

// newMediaHandler serves stored lesson files to authenticated users.
func newMediaHandler(files lesson.FileStore) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		path := ctx.Param("*")
		if path == "" {
			return errHttpNotFound
		}

		f, err := files.Open(ctx.Request().Context(), path)
		if err != nil {
			return errHttpNotFound
		}
		defer f.Close() // nolint:errcheck

		ctype := mime.TypeByExtension(filepath.Ext(path))
		if ctype == "" {
			ctype = echo.MIMEOctetStream
		}
		return ctx.Stream(http.StatusOK, ctype, f)
	}
}
