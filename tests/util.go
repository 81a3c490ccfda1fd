package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/tribute"
	logsvc "github.com/trezcool/tributes/services/logger"
)

// NewConfig returns the configuration tests run with: no rollbar, no real emails.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.RollbarToken = ""
	return conf
}

// NewLogger returns a silent app logger.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// TributeOption tweaks a fixture before it is stored.
type TributeOption func(t *tribute.Tribute)

func WithEmail(email string) TributeOption {
	return func(t *tribute.Tribute) { t.Email = null.StringFrom(email) }
}

func WithPhone(phone string) TributeOption {
	return func(t *tribute.Tribute) { t.Phone = null.StringFrom(phone) }
}

func WithImage(ref string) TributeOption {
	return func(t *tribute.Tribute) { t.ImageURL = null.StringFrom(ref) }
}

func WithNotes(notes string) TributeOption {
	return func(t *tribute.Tribute) { t.AdminNotes = null.StringFrom(notes) }
}

// Approved marks the fixture approved at `at`.
func Approved(at time.Time) TributeOption {
	return func(t *tribute.Tribute) {
		t.Approved = true
		t.ApprovedAt = null.TimeFrom(at.UTC())
	}
}

func CreatedAt(at time.Time) TributeOption {
	return func(t *tribute.Tribute) { t.CreatedAt = at.UTC() }
}

// NewTribute builds a pending tribute fixture without storing it.
func NewTribute(name, message string, opts ...TributeOption) tribute.Tribute {
	t := tribute.Tribute{
		Name:      name,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func CreateTribute(t *testing.T, repo tribute.Repository, name, message string, opts ...TributeOption) tribute.Tribute {
	t.Helper()
	trib, err := repo.CreateTribute(context.Background(), NewTribute(name, message, opts...))
	if err != nil {
		t.Fatalf("CreateTribute() failed: %v", err)
	}
	return trib
}
