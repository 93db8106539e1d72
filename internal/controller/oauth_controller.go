package controller

import (
	"fmt"
	"net/url"

	"notebook-sync-be/internal/dto"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
}

type oauthController struct {
	service     service.IOAuthService
	frontendURL string
	logger      logger.ILogger
}

func NewOAuthController(service service.IOAuthService, frontendURL string, log logger.ILogger) IOAuthController {
	return &oauthController{service: service, frontendURL: frontendURL, logger: log}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	// e.g., /auth/google
	h := r.Group("/auth")
	h.Get("/:provider", c.Login)
	h.Get("/:provider/callback", c.Callback)
}

func (c *oauthController) Login(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")

	loginURL, err := c.service.GetLoginURL(provider)
	if err != nil {
		return err
	}

	return ctx.Redirect(loginURL, fiber.StatusTemporaryRedirect)
}

func (c *oauthController) Callback(ctx *fiber.Ctx) error {
	req := dto.OAuthCallbackRequest{
		Provider:  ctx.Params("provider"),
		Code:      ctx.Query("code"),
		State:     ctx.Query("state"),
		UserAgent: ctx.Get("User-Agent"),
		IPAddress: ctx.IP(),
	}

	res, err := c.service.HandleCallback(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	c.logger.Info("OAuthController", "User authenticated", map[string]interface{}{"user_id": res.User.Uid, "provider": req.Provider})

	redirectURL := fmt.Sprintf("%s/notes?token=%s", c.frontendURL, url.QueryEscape(res.Token))
	return ctx.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}
