package controller

import (
	"notebook-sync-be/internal/pkg/serverutils"
	"notebook-sync-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Me(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
	auth    fiber.Handler
}

func NewAuthController(service service.IAuthService, auth fiber.Handler) IAuthController {
	return &authController{service: service, auth: auth}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth/v1")
	h.Use(c.auth)
	h.Get("/me", c.Me)
	h.Post("/logout", c.Logout)
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.CurrentUser(ctx.UserContext(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get current user", res))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	sessionId, err := serverutils.SessionID(ctx)
	if err != nil {
		return err
	}

	if err := c.service.SignOut(ctx.UserContext(), userId, sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Logged out successfully", nil))
}
