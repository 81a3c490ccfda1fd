package echoapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/tribute"
)

const (
	imageCacheControl  = "public, max-age=31536000"
	defaultImageType   = "image/jpeg"
	maxSubmissionBytes = "12M"
)

type tributeApi struct {
	svc      *tribute.Service
	validate *validator.Validate
}

func registerTributeAPI(g *echo.Group, admin echo.MiddlewareFunc, svc *tribute.Service, validate *validator.Validate) {
	api := tributeApi{
		svc:      svc,
		validate: validate,
	}

	// public endpoints
	g.POST("/tributes", api.submit, middleware.BodyLimit(maxSubmissionBytes))
	g.GET("/tributes/approved", api.queryApproved)
	g.GET("/images/:filename", api.image)

	// admin endpoints
	ag := g.Group("/admin", admin)
	ag.GET("/tributes", api.query)
	ag.PATCH("/tributes", api.moderate)
}

// Handlers

func (api *tributeApi) submit(ctx echo.Context) error {
	data := tribute.NewTribute{
		Name:      ctx.FormValue("name"),
		Message:   ctx.FormValue("message"),
		Email:     ctx.FormValue("email"),
		Phone:     ctx.FormValue("phone"),
		Anonymous: ctx.FormValue("anonymous") == "true",
	}
	upload, err := formImage(ctx)
	if err != nil {
		return core.NewValidationMessage(errInvalidRequestData)
	}
	data.Image = upload

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		if _, ok := core.AsValidationError(err); ok {
			return err
		}
		if errors.Is(err, tribute.ErrImageUpload) {
			return serverError(err, "Failed to upload image")
		}
		return serverError(err, "Failed to save tribute")
	}

	return ctx.JSON(http.StatusOK, SubmitResponse{
		Success: true,
		ID:      t.ID,
		Message: "Tribute submitted successfully and pending approval",
	})
}

func (api *tributeApi) queryApproved(ctx echo.Context) error {
	tributes, err := api.svc.QueryApproved(ctx.Request().Context())
	if err != nil {
		return serverError(err, "Failed to fetch tributes")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"tributes": tributes})
}

func (api *tributeApi) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx, tribute.OrderingFields...)

	tributes, err := api.svc.QueryAll(ctx.Request().Context(), ord.Orderings...)
	if err != nil {
		return serverError(err, "Failed to fetch tributes")
	}
	if tributes == nil {
		tributes = []tribute.Tribute{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"tributes": tributes})
}

func (api *tributeApi) moderate(ctx echo.Context) error {
	var data tribute.Moderation
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationMessage(errInvalidRequestData)
	}

	t, err := api.svc.Moderate(ctx.Request().Context(), data)
	if err != nil {
		if _, ok := core.AsValidationError(err); ok {
			return err
		}
		if errors.Is(err, tribute.ErrNotFound) {
			return errTributeNotFound
		}
		return serverError(err, "Failed to update tribute")
	}

	msg := "Tribute rejected successfully"
	if t.Approved {
		msg = "Tribute approved successfully"
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: msg})
}

func (api *tributeApi) image(ctx echo.Context) error {
	body, contentType, err := api.svc.OpenImage(ctx.Request().Context(), ctx.Param("filename"))
	if err != nil {
		if errors.Is(pkgerrors.Cause(err), core.ErrBlobNotFound) {
			return errImageNotFound
		}
		return serverError(err, "Failed to serve image")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer body.Close()

	if contentType == "" {
		contentType = defaultImageType
	}
	ctx.Response().Header().Set("Cache-Control", imageCacheControl)
	return ctx.Stream(http.StatusOK, contentType, body)
}

// formImage reads the optional `image` file of a multipart submission.
// Reading stops one byte past the size limit so intake can still reject it.
func formImage(ctx echo.Context) (*tribute.Upload, error) {
	fh, err := ctx.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(err, "reading image form file")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "opening image form file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, tribute.MaxImageSize+1))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "reading image")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &tribute.Upload{Filename: fh.Filename, Data: data}, nil
}

// Responses

type SubmitResponse struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id"`
	Message string `json:"message"`
}
