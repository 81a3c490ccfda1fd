package echoapi

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/export"
	"github.com/trezcool/tributes/core/tribute"
)

const (
	HeaderArchiveChecksum = "X-Archive-Checksum"
	HeaderImagesFetched   = "X-Export-Images-Fetched"
	HeaderImagesFailed    = "X-Export-Images-Failed"
)

var nowFunc = time.Now // mockable

type exportApi struct {
	tributeSvc *tribute.Service
	exportSvc  *export.Service
}

func registerExportAPI(g *echo.Group, admin echo.MiddlewareFunc, tributeSvc *tribute.Service, exportSvc *export.Service) {
	api := exportApi{
		tributeSvc: tributeSvc,
		exportSvc:  exportSvc,
	}
	g.GET("/admin/tributes/export", api.export, admin)
}

// Handlers

// export downloads the archive of every tribute. `mode` defaults to linked.
func (api *exportApi) export(ctx echo.Context) error {
	mode := export.ModeLinked
	if raw := strings.TrimSpace(ctx.QueryParam("mode")); raw != "" {
		var err error
		if mode, err = export.ParseMode(raw); err != nil {
			return err
		}
	}

	reqCtx := ctx.Request().Context()
	tributes, err := api.tributeSvc.QueryAll(reqCtx)
	if err != nil {
		return serverError(err, "Failed to export tributes")
	}
	art, err := api.exportSvc.Export(reqCtx, tributes, mode, nowFunc())
	if err != nil {
		if _, ok := core.AsValidationError(err); ok {
			return err
		}
		return serverError(err, "Failed to export tributes")
	}

	h := ctx.Response().Header()
	h.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	h.Set(HeaderArchiveChecksum, art.Checksum)
	if mode == export.ModeBundled {
		h.Set(HeaderImagesFetched, strconv.Itoa(art.Report.Fetched))
		h.Set(HeaderImagesFailed, strconv.Itoa(len(art.Report.Failed)))
	}
	return ctx.Blob(http.StatusOK, art.ContentType, art.Body)
}
