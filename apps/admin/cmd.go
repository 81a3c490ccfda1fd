package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/export"
	"github.com/trezcool/tributes/core/session"
	"github.com/trezcool/tributes/core/tribute"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	nowFunc          = time.Now          // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer

	// storage, only set up for the commands that need it (see needsStorage)
	db          *sql.DB
	tributeRepo tribute.Repository
	sessionRepo session.Repository
	blobs       core.BlobStore
}

// needsStorage reports whether the command in args touches the database.
func needsStorage(args []string) bool {
	if len(args) < 2 {
		return false
	}
	switch args[1] {
	case "migrate", "export", "purgesessions":
		return true
	}
	return false
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                 - run goose migrations (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  hashpassword                           - prompt for the admin password and print its hash")
	fmt.Fprintln(cli.out, "  export -mode linked|bundled [-out DIR] - export every tribute to DIR")
	fmt.Fprintln(cli.out, "  purgesessions                          - delete expired admin sessions")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportCmd.SetOutput(cli.out)
	exportMode := exportCmd.String("mode", string(export.ModeLinked), "Export mode: linked or bundled.")
	exportOut := exportCmd.String("out", ".", "Directory the archive is written to.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "hashpassword":
		pwd, err := cli.prompt("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			cli.printUsage()
			return errHelp
		}
		confirm, err := cli.prompt("Confirm password:")
		if err != nil {
			return err
		}
		return cli.hashPassword(pwd, confirm)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return errHelp
			}
			return err
		}
		mode, err := export.ParseMode(*exportMode)
		if err != nil {
			exportCmd.Usage()
			return err
		}
		return cli.export(mode, *exportOut)
	case "purgesessions":
		return cli.purgeSessions()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// hashPassword checks the password policy and prints the ADMIN_PASSWORDHASH value.
func (cli *commandLine) hashPassword(pwd, confirm string) error {
	ap := session.AdminPassword{
		Password:        pwd,
		PasswordConfirm: confirm,
		Attrs:           []string{cli.conf.SiteName, cli.conf.AppName},
	}
	if err := ap.Validate(cli.validate); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			msgs := make([]string, 0, len(vErrs))
			for _, vErr := range vErrs {
				msgs = append(msgs, vErr.Translate(cli.translator))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	hash, err := session.HashPassword(pwd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, hash)
	return nil
}

func (cli *commandLine) export(mode export.Mode, dir string) error {
	ctx := context.Background()

	tributes, err := cli.tributeRepo.QueryTributes(ctx, tribute.QueryFilter{}, tribute.DefaultOrdering)
	if err != nil {
		return err
	}

	exportSvc, err := export.NewService(cli.conf, export.NewFetcher(cli.conf, cli.blobs), cli.logger)
	if err != nil {
		return err
	}
	art, err := exportSvc.Export(ctx, tributes, mode, nowFunc())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, art.Filename)
	if err := os.WriteFile(path, art.Body, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s (%d tributes, sha256 %s)\n", path, len(tributes), art.Checksum)
	if mode == export.ModeBundled {
		fmt.Fprintf(cli.out, "images: %d fetched, %d failed\n", art.Report.Fetched, len(art.Report.Failed))
		for _, f := range art.Report.Failed {
			fmt.Fprintf(cli.out, "  %s (%s): %s\n", f.Filename, f.Ref, f.Err)
		}
	}
	return nil
}

func (cli *commandLine) purgeSessions() error {
	svc := session.NewService(cli.sessionRepo, cli.conf.Admin.PasswordHash, cli.conf.Admin.SessionTTL)
	n, err := svc.PurgeExpired(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d expired sessions deleted\n", n)
	return nil
}
