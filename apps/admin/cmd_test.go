package main

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/session"
	blobsvc "github.com/trezcool/tributes/services/blob"
	dummydb "github.com/trezcool/tributes/storage/database/dummy"
	"github.com/trezcool/tributes/tests"
)

func setup(t *testing.T) (*commandLine, *dummydb.DB, *bytes.Buffer) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := testutil.NewConfig()
	conf.AppName = "Tributes"
	conf.SiteName = "Peter Rhodes"
	conf.SiteURL = "https://tributes.test"

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	var out bytes.Buffer
	return &commandLine{
		conf:        conf,
		logger:      testutil.NewLogger(conf),
		validate:    validate,
		translator:  translator,
		out:         &out,
		tributeRepo: dummydb.NewTributeRepository(db),
		sessionRepo: dummydb.NewSessionRepository(db),
		blobs:       blobsvc.NewMemoryStore(),
	}, db, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkRunErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	if err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkRunErr(t, tt, cli.run(args))
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func Test_needsStorage(t *testing.T) {
	assert.False(t, needsStorage([]string{"admin"}))
	assert.False(t, needsStorage([]string{"admin", "hashpassword"}))
	assert.True(t, needsStorage([]string{"admin", "migrate", "up"}))
	assert.True(t, needsStorage([]string{"admin", "export"}))
	assert.True(t, needsStorage([]string{"admin", "purgesessions"}))
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		if dir != "migrations" {
			return fmt.Errorf("unexpected migrations dir %q", dir)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_tribute_index", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_hashPassword(t *testing.T) {
	cli, _, out := setup(t)

	type extra struct {
		pwd, confirm string
	}
	tests := []cliTest{
		{name: "no password", args: []string{"hashpassword"}, wantErr: errHelp},
		{
			name: "mismatch", args: []string{"hashpassword"}, extra: extra{pwd: "Tr1bute$-admin", confirm: "Tr1bute$-other"},
			wantErrStr: "password_confirm must be equal to Password",
		},
		{
			name: "too short", args: []string{"hashpassword"}, extra: extra{pwd: "Ab1$", confirm: "Ab1$"},
			wantErrStr: "password must contain at least 8 characters",
		},
		{
			name: "too similar to the site", args: []string{"hashpassword"}, extra: extra{pwd: "PeterRhodes1!", confirm: "PeterRhodes1!"},
			wantErrStr: "password cannot be similar to the site name",
		},
		{name: "hashed", args: []string{"hashpassword"}, extra: extra{pwd: "Tr1bute$-admin", confirm: "Tr1bute$-admin"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		var answers []string
		if e, ok := tt.extra.(extra); ok {
			answers = []string{e.pwd, e.confirm}
		}
		readPasswordFunc = func(fd int) ([]byte, error) {
			if len(answers) == 0 {
				return nil, nil
			}
			answer := answers[0]
			answers = answers[1:]
			return []byte(answer), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			checkRunErr(t, tt, err)
			if err != nil {
				return
			}

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			hash := lines[len(lines)-1]
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Tr1bute$-admin")))
		})
	}
}

func Test_commandLine_export(t *testing.T) {
	cli, _, out := setup(t)
	dir := t.TempDir()

	nowFunc = func() time.Time { return time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = time.Now }()

	created := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	testutil.CreateTribute(t, cli.tributeRepo, "Ann", "Forever in our hearts", testutil.CreatedAt(created), testutil.Approved(created))
	testutil.CreateTribute(t, cli.tributeRepo, "Bob", "Missed every day",
		testutil.CreatedAt(created), testutil.WithImage("/api/images/tribute-gone.png"))

	tests := []cliTest{
		{name: "unknown mode", args: []string{"export", "-mode", "pdf", "-out", dir}, wantErrStr: "Invalid export mode. Use 'linked' or 'bundled'."},
		{name: "linked", args: []string{"export", "-mode", "linked", "-out", dir}, extra: "tributes-linked-2025-03-04.html"},
		{name: "bundled", args: []string{"export", "-mode", "bundled", "-out", dir}, extra: "tributes-with-images-2025-03-04.zip"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			checkRunErr(t, tt, err)
			if err != nil {
				return
			}

			path := filepath.Join(dir, tt.extra.(string))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, out.String(), path)

			if strings.HasSuffix(path, ".zip") {
				zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
				require.NoError(t, err)
				assert.Equal(t, "tributes.html", zr.File[0].Name)
				assert.Contains(t, out.String(), "images: 0 fetched, 1 failed")
			} else {
				assert.Contains(t, string(data), "Tribute")
			}
		})
	}
}

func Test_commandLine_purgeSessions(t *testing.T) {
	cli, db, out := setup(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, cli.sessionRepo.CreateSession(ctx, session.Session{ID: "old", CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)}))
	require.NoError(t, cli.sessionRepo.CreateSession(ctx, session.Session{ID: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	checkRunErr(t, cliTest{}, cli.run([]string{"admin", "purgesessions"}))
	assert.Equal(t, "1 expired sessions deleted\n", out.String())
	assert.Equal(t, 1, db.CountSessions())
}
