package http

import (
	"time"

	"kinto-admin/internal/admin/config"
	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/admin/usecase"
	authhttp "kinto-admin/internal/auth/adapter/http"
	authusecase "kinto-admin/internal/auth/usecase"
	apperrors "kinto-admin/internal/shared/errors"
	"kinto-admin/internal/shared/logger"
	"kinto-admin/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConsoleTokenHeader carries a freshly issued console token, for clients
// that do not keep cookies.
const ConsoleTokenHeader = "X-Console-Token"

// AdminHandler exposes the consoles over HTTP and WebSocket
type AdminHandler struct {
	admin      usecase.AdminUsecaseInterface
	auth       authusecase.AuthUsecaseInterface
	middleware *authhttp.AuthMiddleware
	cfg        *config.AdminConfig
	consoleURL string
	log        logger.Logger
}

// NewAdminHandler creates the console HTTP handler. consoleURL is where the
// browser is sent back once an external login completed.
func NewAdminHandler(
	admin usecase.AdminUsecaseInterface,
	auth authusecase.AuthUsecaseInterface,
	middleware *authhttp.AuthMiddleware,
	cfg *config.AdminConfig,
	consoleURL string,
	log logger.Logger,
) *AdminHandler {
	if cfg == nil {
		cfg = config.DefaultAdminConfig()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AdminHandler{
		admin:      admin,
		auth:       auth,
		middleware: middleware,
		cfg:        cfg,
		consoleURL: consoleURL,
		log:        log.WithComponent("admin_http"),
	}
}

// RegisterRoutes registers the health check, the /api routes and the notification WebSocket
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.Health)

	api := router.Group("/api",
		h.middleware.RequestID(),
		h.middleware.RequestContext(),
		h.middleware.ClientID(),
		h.middleware.OptionalAuth(),
		h.EnsureSession(),
	)
	h.registerAuthRoutes(api)
	h.registerConsoleRoutes(api)
	h.registerBucketRoutes(api)
	h.registerCollectionRoutes(api)
	h.registerGroupRoutes(api)
	h.registerRecordRoutes(api)

	h.registerWebSocketRoutes(router)
}

func (h *AdminHandler) registerAuthRoutes(router fiber.Router) {
	auth := router.Group("/auth")
	auth.Get("/methods", h.Methods)
	auth.Post("/session", h.middleware.RateLimiter(), h.Submit)
	auth.Get("/callback/:payload/:token", h.Callback)
	auth.Post("/logout", h.Logout)
}

func (h *AdminHandler) registerConsoleRoutes(router fiber.Router) {
	router.Get("/state", h.State)
	router.Get("/history", h.History)
	router.Delete("/history", h.ClearHistory)
	router.Delete("/notifications", h.ClearNotifications)
	router.Delete("/notifications/:id", h.RemoveNotification)
	router.Put("/route", h.UpdateRoute)
}

// Health reports the service is up
func (h *AdminHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// EnsureSession gives every browser a console: requests without a valid
// console token get a new session id and token.
func (h *AdminHandler) EnsureSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authhttp.IsAuthenticated(c) {
			return c.Next()
		}
		clientID, _ := authhttp.GetClientID(c)
		sessionID := uuid.NewString()
		if err := h.issueToken(c, sessionID, clientID, ""); err != nil {
			return h.respondError(c, err)
		}
		c.Locals(authhttp.LocalSessionID, sessionID)
		c.SetUserContext(utils.WithSessionID(c.UserContext(), sessionID))
		h.log.Debug("Console session created", zap.String("session_id", sessionID))
		return c.Next()
	}
}

func (h *AdminHandler) issueToken(c *fiber.Ctx, sessionID, clientID, server string) error {
	token, err := h.auth.IssueToken(c.UserContext(), sessionID, clientID, server)
	if err != nil {
		return apperrors.WrapError(err, "failed to issue console token")
	}
	h.middleware.SetSessionCookie(c, token)
	c.Set(ConsoleTokenHeader, token)
	return nil
}

// param and query copy request values: they end up in console state, which
// outlives the request buffers fiber reuses.
func param(c *fiber.Ctx, key string) string {
	return fiberutils.CopyString(c.Params(key))
}

func query(c *fiber.Ctx, key string) string {
	return fiberutils.CopyString(c.Query(key))
}

// ids returns the session and client ids set by the middleware chain
func ids(c *fiber.Ctx) (string, string) {
	sessionID, _ := authhttp.GetSessionID(c)
	clientID, _ := authhttp.GetClientID(c)
	return sessionID, clientID
}

// StateResponse is what resource endpoints answer: the state slice they
// changed, the route and the notifications.
type StateResponse struct {
	Data          interface{}          `json:"data"`
	Route         model.Route          `json:"route"`
	Notifications []model.Notification `json:"notifications"`
}

// dispatch applies a to the session console and answers with the slice of the resulting state
func (h *AdminHandler) dispatch(c *fiber.Ctx, a action.Action, slice func(model.State) interface{}) error {
	sessionID, clientID := ids(c)
	state, err := h.admin.Dispatch(c.UserContext(), sessionID, clientID, a)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(StateResponse{
		Data:          slice(state),
		Route:         state.Route,
		Notifications: state.Notifications,
	})
}

// ErrorResponse is the body of failed requests
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (h *AdminHandler) respondError(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	body := ErrorResponse{Error: string(apperrors.ErrorTypeInternal), Message: err.Error()}
	if appErr, ok := apperrors.AsAppError(err); ok {
		body.Error = string(appErr.Type)
		body.Message = appErr.Message
		if len(appErr.Details) > 0 {
			body.Details = appErr.Details
		}
	}
	if status >= fiber.StatusInternalServerError {
		requestID, _ := utils.GetRequestIDFromContext(c.UserContext())
		server, _ := utils.GetServerFromContext(c.UserContext())
		h.log.Error("Request failed",
			zap.String("path", c.Path()),
			zap.String("request_id", requestID),
			zap.String("server", server),
			zap.Error(err))
	}
	return c.Status(status).JSON(body)
}

func badRequest(message string) error {
	return apperrors.NewValidationError(message).WithCause(apperrors.ErrBadRequest)
}
