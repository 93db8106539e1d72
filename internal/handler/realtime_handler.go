package handler

import (
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/pkg/serverutils"
	"notebook-sync-be/internal/realtime"
	"notebook-sync-be/internal/service"
	internalWS "notebook-sync-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type RealtimeHandler struct {
	authService service.IAuthService
	listeners   realtime.IListenerService
	hub         *internalWS.Hub
	jwtSecret   string
	logger      logger.ILogger
}

func NewRealtimeHandler(
	authService service.IAuthService,
	listeners realtime.IListenerService,
	hub *internalWS.Hub,
	jwtSecret string,
	log logger.ILogger,
) *RealtimeHandler {
	return &RealtimeHandler{
		authService: authService,
		listeners:   listeners,
		hub:         hub,
		jwtSecret:   jwtSecret,
		logger:      log,
	}
}

func (h *RealtimeHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/realtime/v1/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and hands the connection to the hub.
func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c)
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
	}

	claims, err := serverutils.ParseToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("RealtimeHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if err := h.authService.ValidateSession(c.UserContext(), claims.SessionId); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Session expired, please sign in again"))
	}

	user, err := h.authService.CurrentUser(c.UserContext(), claims.UserId)
	if err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RealtimeHandler", "Starting WebSocket session", map[string]interface{}{"user_id": claims.UserId, "session_id": claims.SessionId})
		internalWS.ServeWs(h.hub, conn, claims.UserId, claims.SessionId, user, h.listeners, h.logger)
		h.logger.Info("RealtimeHandler", "WebSocket session ended", map[string]interface{}{"user_id": claims.UserId})
	})(c)
}
