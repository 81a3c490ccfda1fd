package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tributes/core"
)

const notSet = "Not Set"

// SecretsResponse tells the admin which delivery settings are configured without revealing them.
type SecretsResponse struct {
	SendgridApiKey string `json:"sendgridApiKey"`
	AdminEmail     string `json:"adminEmail"`
	FromEmail      string `json:"fromEmail"`
}

func registerSecretsAPI(g *echo.Group, admin echo.MiddlewareFunc, conf *core.Config) {
	g.GET("/admin/secrets", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, newSecretsResponse(conf))
	}, admin)
}

func newSecretsResponse(conf *core.Config) SecretsResponse {
	resp := SecretsResponse{
		SendgridApiKey: core.MaskSecret(conf.Email.SendgridApiKey),
		AdminEmail:     core.JoinAddresses(conf.Email.AdminRecipients),
		FromEmail:      conf.Email.Sender.Address,
	}
	if resp.AdminEmail == "" {
		resp.AdminEmail = notSet
	}
	if resp.FromEmail == "" {
		resp.FromEmail = notSet
	}
	return resp
}
