package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/session"
	blobsvc "github.com/trezcool/tributes/services/blob"
	logsvc "github.com/trezcool/tributes/services/logger"
	"github.com/trezcool/tributes/storage/database"
	boiledrepos "github.com/trezcool/tributes/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/tributes/storage/database/sqlx"
	redisstore "github.com/trezcool/tributes/storage/redis"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	cli := commandLine{
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}

	if needsStorage(os.Args) {
		db, err := setUpStorage(&cli)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
		}
		//goland:noinspection GoUnhandledErrorResult
		defer db.Close()
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func setUpStorage(cli *commandLine) (*sql.DB, error) {
	ctx := context.Background()

	db, err := database.Connect(cli.conf)
	if err != nil {
		return nil, err
	}
	cli.db = db
	cli.tributeRepo = boiledrepos.NewTributeRepository(db)

	if cli.conf.Admin.SessionStore == "redis" {
		client, err := redisstore.Connect(ctx, cli.conf.Admin.RedisURL)
		if err != nil {
			return db, err
		}
		cli.sessionRepo = redisstore.NewSessionRepository(client)
	} else {
		cli.sessionRepo = sqlxrepos.NewSessionRepository(db)
	}

	if cli.blobs, err = blobsvc.New(ctx, cli.conf, cli.logger); err != nil {
		return db, err
	}
	return db, nil
}
