package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core/lesson"
)

type lessonApi struct {
	svc      lesson.Service
	validate *validator.Validate
}

func registerLessonAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc lesson.Service, validate *validator.Validate) {
	api := lessonApi{
		svc:      svc,
		validate: validate,
	}

	lg := g.Group("/lesson", authed...)
	lg.GET("/all", api.queryAll)
	lg.GET("/get/:id", api.retrieve)
	lg.POST("/create", api.create, adminMiddleware())
	lg.DELETE("/delete/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *lessonApi) create(ctx echo.Context) error {
	data := lesson.NewLesson{Name: ctx.FormValue("name")}

	var closers []func() error
	defer func() {
		for _, closeFile := range closers {
			closeFile() // nolint:errcheck
		}
	}()

	for field, dst := range map[string]**lesson.FileUpload{
		"thumbnail_image":    &data.ThumbnailImage,
		"theory_file":        &data.TheoryFile,
		"practical_file":     &data.PracticalFile,
		"consultation_sheet": &data.ConsultationSheet,
	} {
		upload, closeFile, err := formFileUpload(ctx, field)
		if err != nil {
			return err
		}
		if upload != nil {
			*dst = upload
			closers = append(closers, closeFile)
		}
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	les, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, les)
}

func (api *lessonApi) queryAll(ctx echo.Context) error {
	lessons, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	les, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding lesson by ID")
	}
	return ctx.JSON(http.StatusOK, les)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// formFileUpload opens the named multipart file; a missing field is not an
// error, it returns a nil upload instead.
func formFileUpload(ctx echo.Context, field string) (*lesson.FileUpload, func() error, error) {
	header, err := ctx.FormFile(field)
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrapf(err, "reading form file %q", field)
	}

	f, err := header.Open()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening form file %q", field)
	}

	upload := &lesson.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
		Content:     f,
	}
	return upload, f.Close, nil
}
