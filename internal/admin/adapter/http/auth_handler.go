package http

import (
	"strconv"
	"strings"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	authmodel "kinto-admin/internal/auth/domain/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SubmitResponse tells the browser whether it is logged in or must follow a redirect
type SubmitResponse struct {
	Kind       authmodel.DecisionKind `json:"kind"`
	RedirectTo string                 `json:"redirectTo,omitempty"`
	State      model.State            `json:"state"`
}

// Methods lists the authentication methods of the requested server, or of
// the preferred one of the client.
func (h *AdminHandler) Methods(c *fiber.Ctx) error {
	_, clientID := ids(c)
	result, err := h.admin.Methods(c.UserContext(), clientID, query(c, "server"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(result)
}

// Submit handles the login form
func (h *AdminHandler) Submit(c *fiber.Ctx) error {
	var data authmodel.AuthData
	if err := c.BodyParser(&data); err != nil {
		return h.respondError(c, badRequest("Invalid authentication form"))
	}
	sessionID, clientID := ids(c)

	decision, state, err := h.admin.Submit(c.UserContext(), sessionID, clientID, data)
	if err != nil {
		return h.respondError(c, err)
	}
	if state.Session.Authenticated {
		// the token now names the server the session is bound to
		if err := h.issueToken(c, sessionID, clientID, state.Session.Server); err != nil {
			return h.respondError(c, err)
		}
	}
	h.log.Info("Authentication form submitted",
		zap.String("session_id", sessionID),
		zap.String("auth_type", string(data.AuthType)),
		zap.String("decision", string(decision.Kind)))

	return c.JSON(SubmitResponse{
		Kind:       decision.Kind,
		RedirectTo: decision.RedirectTo,
		State:      state,
	})
}

// Callback completes an external login and sends the browser back to the console
func (h *AdminHandler) Callback(c *fiber.Ctx) error {
	sessionID, clientID := ids(c)
	state, err := h.admin.CompleteLogin(c.UserContext(), sessionID, clientID, param(c, "payload"), param(c, "token"))
	if err != nil {
		return h.respondError(c, err)
	}
	if state.Session.Authenticated {
		if err := h.issueToken(c, sessionID, clientID, state.Session.Server); err != nil {
			return h.respondError(c, err)
		}
	}
	return c.Redirect(strings.TrimRight(h.consoleURL, "/")+"/", fiber.StatusFound)
}

// Logout logs the console out and drops the session cookie
func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	sessionID, clientID := ids(c)
	state, err := h.admin.Logout(c.UserContext(), sessionID, clientID)
	if err != nil {
		return h.respondError(c, err)
	}
	h.middleware.ClearSessionCookie(c)
	return c.JSON(state)
}

// State returns the whole console state
func (h *AdminHandler) State(c *fiber.Ctx) error {
	sessionID, clientID := ids(c)
	state, err := h.admin.State(c.UserContext(), sessionID, clientID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(state)
}

// History returns the servers the client connected to
func (h *AdminHandler) History(c *fiber.Ctx) error {
	_, clientID := ids(c)
	history, err := h.admin.History(c.UserContext(), clientID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"history": history})
}

// ClearHistory forgets the servers the client connected to
func (h *AdminHandler) ClearHistory(c *fiber.Ctx) error {
	return h.dispatch(c, action.ClearHistory(), func(s model.State) interface{} { return s.History })
}

// ClearNotifications removes transient notifications, every one with ?force=true
func (h *AdminHandler) ClearNotifications(c *fiber.Ctx) error {
	force, _ := strconv.ParseBool(query(c, "force"))
	return h.dispatch(c, action.ClearNotificationsAction(force), func(s model.State) interface{} { return s.Notifications })
}

// RemoveNotification dismisses one notification
func (h *AdminHandler) RemoveNotification(c *fiber.Ctx) error {
	return h.dispatch(c, action.RemoveNotification(param(c, "id")), func(s model.State) interface{} { return s.Notifications })
}

type routeRequest struct {
	Path string `json:"path"`
}

// UpdateRoute records the location the browser navigated to
func (h *AdminHandler) UpdateRoute(c *fiber.Ctx) error {
	var req routeRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return h.respondError(c, badRequest("A path is required"))
	}
	return h.dispatch(c, action.UpdatePath(req.Path), func(s model.State) interface{} { return s.Route })
}
