package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/chat"
	"github.com/mrembo/urembo/core/lesson"
	"github.com/mrembo/urembo/core/quiz"
	"github.com/mrembo/urembo/core/user"
	"github.com/mrembo/urembo/storage/cache"
)

type (
	Options struct {
		Addr           string
		DisableReqLogs bool
		Logger         core.Logger
		UserSvc        user.Service
		LessonSvc      lesson.Service
		QuizSvc        quiz.Service
		ChatSvc        chat.Service
		Blacklist      cache.TokenBlacklist
		Files          lesson.FileStore
		Validate       *validator.Validate
		Translator     ut.Translator
	}

	Server struct {
		opts       *Options
		app        *echo.Echo
		errCh      chan error
		shutdownCh chan os.Signal
	}
)

func NewServer(opts *Options) *Server {
	s := &Server{
		opts:       opts,
		app:        echo.New(),
		errCh:      make(chan error, 1),
		shutdownCh: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	debug := core.Conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	authed := []echo.MiddlewareFunc{jwt, blacklistMiddleware(s.opts.Blacklist)}

	registerUserAPI(api, authed, s.opts.UserSvc, s.opts.Blacklist, s.opts.Validate)
	registerLessonAPI(api, authed, s.opts.LessonSvc, s.opts.Validate)
	registerQuizAPI(api, authed, s.opts.QuizSvc)
	registerChatAPI(api, authed, s.opts.ChatSvc)

	s.app.GET("/media/*", newMediaHandler(s.opts.Files), authed...)
}

// Start runs the server until it fails or a shutdown signal arrives;
// completion is reported on Errors() and ShutdownSignal().
func (s *Server) Start() {
	signal.Notify(s.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	if err := s.app.Start(s.opts.Addr); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errCh }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdownCh }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) signalShutdown() {
	s.shutdownCh <- syscall.SIGTERM
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
