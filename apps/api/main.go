package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register /debug/pprof handlers
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/mrembo/urembo/apps/api/echo"
	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/chat"
	"github.com/mrembo/urembo/core/lesson"
	"github.com/mrembo/urembo/core/quiz"
	"github.com/mrembo/urembo/core/user"
	emailsvc "github.com/mrembo/urembo/services/email"
	logsvc "github.com/mrembo/urembo/services/logger"
	"github.com/mrembo/urembo/storage/cache"
	"github.com/mrembo/urembo/storage/database"
	pgdb "github.com/mrembo/urembo/storage/database/postgres"
	storagefiles "github.com/mrembo/urembo/storage/files"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up file storage; a MinIO endpoint is optional in DEV
	var files lesson.FileStore
	if conf.Storage.Endpoint != "" {
		if files, err = storagefiles.NewMinioStore(conf.Storage); err != nil {
			logger.Fatal(fmt.Sprintf("setting up object storage: %v", err), err)
		}
	} else {
		if files, err = storagefiles.NewLocalStore(conf.Storage.LocalDir); err != nil {
			logger.Fatal(fmt.Sprintf("setting up local storage: %v", err), err)
		}
	}

	// set up the token blacklist; redis in deployed envs
	var blacklist cache.TokenBlacklist
	if conf.Debug {
		blacklist = cache.NewInmemBlacklist()
	} else {
		if blacklist, err = cache.NewRedisBlacklist(conf.Redis); err != nil {
			logger.Fatal(fmt.Sprintf("setting up token blacklist: %v", err), err)
		}
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	usrSvc := user.NewService(pgdb.NewUserRepository(db), mailSvc, logger)
	lessonSvc := lesson.NewService(pgdb.NewLessonRepository(db), files, logger)
	quizSvc := quiz.NewService(pgdb.NewQuizRepository(db), validate, logger)

	provider, err := chat.NewOpenAIProvider(conf.AI)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up chat provider: %v", err), err)
	}
	chatSvc := chat.NewService(provider, validate, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.Options{
			Addr:       conf.Server.Addr,
			Logger:     logger,
			UserSvc:    usrSvc,
			LessonSvc:  lessonSvc,
			QuizSvc:    quizSvc,
			ChatSvc:    chatSvc,
			Blacklist:  blacklist,
			Files:      files,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
