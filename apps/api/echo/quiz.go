package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/quiz"
)

type quizApi struct {
	svc quiz.Service
}

func registerQuizAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc quiz.Service) {
	api := quizApi{svc: svc}

	qg := g.Group("/quiz", authed...)
	qg.GET("/get_quiz/:lessonID", api.getQuiz)
	qg.GET("/quiz_results/:quizID", api.getResult)
	qg.POST("/create_quiz", api.create, adminMiddleware())
	qg.POST("/submit_quiz", api.submit)
}

// Handlers

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}

	qz, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, qz)
}

// getQuiz returns the lesson's quiz. The answer key only ships to admins.
func (api *quizApi) getQuiz(ctx echo.Context) error {
	lessonID, err := strconv.Atoi(ctx.Param("lessonID"))
	if err != nil {
		return errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	qz, err := api.svc.GetByLesson(ctx.Request().Context(), lessonID, claims.IsAdmin)
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding quiz by lesson")
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *quizApi) getResult(ctx echo.Context) error {
	quizID, err := strconv.Atoi(ctx.Param("quizID"))
	if err != nil {
		return errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	uid, err := claims.UserID()
	if err != nil {
		return errUnauthorized
	}

	res, err := api.svc.ResultFor(ctx.Request().Context(), quizID, uid)
	if err != nil {
		if errors.Cause(err) == quiz.ErrResultNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding quiz result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *quizApi) submit(ctx echo.Context) error {
	var data quiz.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	uid, err := claims.UserID()
	if err != nil {
		return errUnauthorized
	}

	res, err := api.svc.Submit(ctx.Request().Context(), uid, data)
	if err != nil {
		switch errors.Cause(err) {
		case quiz.ErrNotFound:
			return errHttpNotFound
		case quiz.ErrAlreadyCompleted:
			return core.NewValidationError(quiz.ErrAlreadyCompleted)
		}
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusOK, res)
}
