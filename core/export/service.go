package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/tribute"
)

const (
	htmlContentType = "text/html; charset=utf-8"
	zipContentType  = "application/zip"
)

type Service struct {
	fetcher     Fetcher
	concurrency int
	appName     string
	siteName    string
	baseURL     string
	logger      core.Logger
}

func NewService(conf *core.Config, fetcher Fetcher, logger core.Logger) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		notNil(conf != nil, "conf"),
		vala.IsNotNil(fetcher, "fetcher"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "export.NewService")
	}

	concurrency := conf.Export.FetchConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		fetcher:     fetcher,
		concurrency: concurrency,
		appName:     conf.AppName,
		siteName:    conf.SiteName,
		baseURL:     conf.SiteURL,
		logger:      logger,
	}, nil
}

// NewFetcher returns the fetcher exports use in production: stored images come straight from
// blobs, anything else is downloaded.
func NewFetcher(conf *core.Config, blobs core.BlobStore) Fetcher {
	httpFetcher := NewHTTPFetcher(conf.SiteURL, conf.Export.FetchTimeout, conf.Export.MaxImageBytes)
	if blobs == nil {
		return httpFetcher
	}
	return &StoreFetcher{
		Store:    blobs,
		Fallback: httpFetcher,
		BaseURL:  conf.SiteURL,
		MaxBytes: conf.Export.MaxImageBytes,
	}
}

// notNil checks typed pointers, which vala.IsNotNil sees as non-nil interfaces.
func notNil(ok bool, param string) vala.Checker {
	return func() (bool, string) {
		return ok, "Parameter was nil: " + param
	}
}

func (svc *Service) options(now time.Time) Options {
	return Options{
		AppName:     svc.appName,
		SiteName:    svc.siteName,
		BaseURL:     svc.baseURL,
		GeneratedAt: now,
	}
}

// Export builds the artifact of the given mode from a snapshot of tributes. Images that cannot be
// fetched are left out of a bundled archive (see Artifact.Report); anything else failing aborts.
func (svc *Service) Export(ctx context.Context, tributes []tribute.Tribute, mode Mode, now time.Time) (*Artifact, error) {
	start := time.Now()
	opts := svc.options(now)
	day := now.UTC().Format(filenameLayout)

	var (
		art *Artifact
		err error
	)
	switch mode {
	case ModeLinked:
		var body []byte
		if body, err = renderDocument(tributes, ModeLinked, opts); err == nil {
			art = &Artifact{Filename: linkedPrefix + day + ".html", ContentType: htmlContentType, Body: body}
		}
	case ModeBundled:
		var (
			body   []byte
			report Report
		)
		if body, report, err = svc.bundle(ctx, tributes, opts); err == nil {
			art = &Artifact{Filename: bundledPrefix + day + ".zip", ContentType: zipContentType, Body: body, Report: report}
		}
	default:
		return nil, core.NewValidationMessage(errUnknownMode)
	}

	if err != nil {
		exportsTotal.WithLabelValues(string(mode), "error").Inc()
		return nil, err
	}
	sum := sha256.Sum256(art.Body)
	art.Checksum = hex.EncodeToString(sum[:])

	exportsTotal.WithLabelValues(string(mode), "ok").Inc()
	exportSeconds.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	return art, nil
}
