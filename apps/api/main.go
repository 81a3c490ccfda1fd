package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/tributes/apps/api/echo"
	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/export"
	"github.com/trezcool/tributes/core/session"
	"github.com/trezcool/tributes/core/tribute"
	blobsvc "github.com/trezcool/tributes/services/blob"
	emailsvc "github.com/trezcool/tributes/services/email"
	logsvc "github.com/trezcool/tributes/services/logger"
	"github.com/trezcool/tributes/storage/database"
	dummydb "github.com/trezcool/tributes/storage/database/dummy"
	boiledrepos "github.com/trezcool/tributes/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/tributes/storage/database/sqlx"
	redisstore "github.com/trezcool/tributes/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

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

	// set up storage
	var (
		tributeRepo tribute.Repository
		sessionRepo session.Repository
		db          *sql.DB
		memDB       *dummydb.DB
		err         error
	)
	if conf.Database.Engine == "memory" {
		logger.Warn("using the in-memory database: tributes will not survive a restart")
		memDB, _ = dummydb.Open()
		tributeRepo = dummydb.NewTributeRepository(memDB)
	} else {
		if db, err = setUpDB(conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		tributeRepo = boiledrepos.NewTributeRepository(db)
	}

	switch conf.Admin.SessionStore {
	case "redis":
		client, err := redisstore.Connect(ctx, conf.Admin.RedisURL)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		//goland:noinspection GoUnhandledErrorResult
		defer client.Close()
		sessionRepo = redisstore.NewSessionRepository(client)
	case "memory":
		if memDB == nil {
			memDB, _ = dummydb.Open()
		}
		sessionRepo = dummydb.NewSessionRepository(memDB)
	default:
		if db == nil {
			logger.Fatal("database session store requires a database engine")
		}
		sessionRepo = sqlxrepos.NewSessionRepository(db)
	}

	blobs, err := blobsvc.New(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up image storage: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Email.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	if len(conf.Email.AdminRecipients) == 0 {
		logger.Warn("no admin emails configured: tribute notifications are disabled")
	}
	if conf.Admin.PasswordHash == "" {
		logger.Warn("no admin password hash configured: admin login is disabled")
	}

	tributeSvc := tribute.NewService(tributeRepo, blobs, mailSvc, conf.Notification(), logger)
	sessionSvc := session.NewService(sessionRepo, conf.Admin.PasswordHash, conf.Admin.SessionTTL)
	exportSvc, err := export.NewService(conf, export.NewFetcher(conf, blobs), logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up export service: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			TributeSvc: tributeSvc,
			SessionSvc: sessionSvc,
			ExportSvc:  exportSvc,
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

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Connect(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
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
