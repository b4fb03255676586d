// Package httpapi exposes the credentials workflows as a JSON API on fiber.
// The session id travels in a signed cookie and the logged in user is kept
// in a storage.Backend under that id.
package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-credentials"
	"github.com/goliatone/go-credentials/storage"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// ErrBadRequestBody is returned when a request body cannot be decoded.
var ErrBadRequestBody = goerrors.New("failed to parse request body", goerrors.CategoryBadInput).
	WithTextCode("BAD_REQUEST_BODY").
	WithCode(goerrors.CodeBadRequest)

// Routes holds the paths served by Handler, relative to the router it is
// registered on.
type Routes struct {
	Register       string
	Activate       string
	Login          string
	Logout         string
	Me             string
	ForgotPassword string
	ResetPassword  string
	ChangePassword string
}

// DefaultRoutes returns the default paths.
func DefaultRoutes() Routes {
	return Routes{
		Register:       "/register",
		Activate:       "/activate",
		Login:          "/login",
		Logout:         "/logout",
		Me:             "/me",
		ForgotPassword: "/password/forgot",
		ResetPassword:  "/password/reset",
		ChangePassword: "/password/change",
	}
}

// Handler serves the credentials API.
type Handler struct {
	service    *credentials.Service
	backend    storage.Backend
	signer     *CookieSigner
	notifier   Notifier
	logger     credentials.Logger
	routes     Routes
	cookieName string
	sessionTTL time.Duration
	secure     bool
	debug      bool
}

// Option customizes a Handler.
type Option func(*Handler)

func WithNotifier(n Notifier) Option {
	return func(h *Handler) {
		if n != nil {
			h.notifier = n
		}
	}
}

func WithLogger(logger credentials.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithRoutes(routes Routes) Option {
	return func(h *Handler) {
		h.routes = routes
	}
}

func WithCookieName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.cookieName = name
		}
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		if ttl > 0 {
			h.sessionTTL = ttl
		}
	}
}

// WithInsecureCookies drops the Secure flag, for plain HTTP development setups.
func WithInsecureCookies() Option {
	return func(h *Handler) {
		h.secure = false
	}
}

// WithDebug logs request payloads with passwords redacted.
func WithDebug(debug bool) Option {
	return func(h *Handler) {
		h.debug = debug
	}
}

// NewHandler returns a Handler. service is rebound to a per-request session
// store through Service.ForStorage.
func NewHandler(service *credentials.Service, backend storage.Backend, signer *CookieSigner, opts ...Option) *Handler {
	h := &Handler{
		service:    service,
		backend:    backend,
		signer:     signer,
		routes:     DefaultRoutes(),
		cookieName: "credentials_session",
		sessionTTL: 24 * time.Hour,
		secure:     true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	if h.logger == nil {
		h.logger = nopLogger{}
	}

	if h.notifier == nil {
		h.notifier = LogNotifier{Logger: h.logger}
	}
	return h
}

// Register mounts the routes on r.
func (h *Handler) Register(r fiber.Router) {
	r.Post(h.routes.Register, h.RegisterUser)
	r.Post(h.routes.Activate, h.Activate)
	r.Post(h.routes.Login, h.Login)
	r.Post(h.routes.Logout, h.Logout)
	r.Get(h.routes.Me, h.Me)
	r.Post(h.routes.ForgotPassword, h.ForgotPassword)
	r.Post(h.routes.ResetPassword, h.ResetPassword)
	r.Post(h.routes.ChangePassword, h.ChangePassword)
}

// UserResponse wraps a user in a response body.
type UserResponse struct {
	User          *credentials.User `json:"user,omitempty"`
	AlreadyActive bool              `json:"already_active,omitempty"`
}

type RegisterPayload struct {
	Email                string `json:"email" form:"email"`
	Username             string `json:"username" form:"username"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

type TokenPayload struct {
	Token string `json:"token" form:"token"`
}

type LoginPayload struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

type ForgotPasswordPayload struct {
	Email string `json:"email" form:"email"`
}

type ResetPasswordPayload struct {
	Token                string `json:"token" form:"token"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

type ChangePasswordPayload struct {
	OldPassword          string `json:"old_password" form:"old_password"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	payload := new(RegisterPayload)
	if err := h.bind(c, payload); err != nil {
		return h.fail(c, err)
	}

	ctx := c.UserContext()
	user, err := h.service.Register(ctx, payload.Email, payload.Username, payload.Password, payload.PasswordConfirmation)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.notifier.SendActivation(ctx, user, user.Token); err != nil {
		h.logger.Error("failed to deliver activation token to %s: %v", user, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UserResponse{User: user.WithToken("")})
}

func (h *Handler) Activate(c *fiber.Ctx) error {
	payload := new(TokenPayload)
	if err := h.bind(c, payload); err != nil {
		return h.fail(c, err)
	}

	sid := uuid.NewString()
	svc := h.service.ForStorage(h.session(sid))
	ctx := c.UserContext()

	res, err := svc.Activate(ctx, payload.Token)
	if err != nil {
		return h.fail(c, err)
	}

	if res.AlreadyActive {
		return c.JSON(UserResponse{AlreadyActive: true})
	}

	if started, _ := h.session(sid).Has(ctx); started {
		if err := h.setCookie(c, sid); err != nil {
			return h.fail(c, err)
		}
	}

	return c.JSON(UserResponse{User: res.User})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := h.bind(c, payload); err != nil {
		return h.fail(c, err)
	}

	ctx := c.UserContext()
	previous := h.sessionID(c)

	sid := uuid.NewString()
	user, err := h.service.ForStorage(h.session(sid)).Login(ctx, payload.Login, payload.Password)
	if err != nil {
		return h.fail(c, err)
	}

	if previous != "" {
		if err := h.backend.Delete(ctx, previous); err != nil {
			h.logger.Warn("failed to drop previous session: %v", err)
		}
	}

	if err := h.setCookie(c, sid); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(UserResponse{User: user})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	if sid := h.sessionID(c); sid != "" {
		if err := h.service.ForStorage(h.session(sid)).Logout(c.UserContext()); err != nil {
			return h.fail(c, err)
		}
	}

	h.clearCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	sid := h.sessionID(c)
	if sid == "" {
		return h.fail(c, credentials.ErrNotLoggedIn)
	}

	user, err := h.service.ForStorage(h.session(sid)).GetUser(c.UserContext())
	if err != nil {
		if errors.Is(err, credentials.ErrNotLoggedIn) {
			h.clearCookie(c)
		}
		return h.fail(c, err)
	}

	return c.JSON(UserResponse{User: user})
}

// ForgotPassword answers 202 whether or not the email is registered.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)
	if err := h.bind(c, payload); err != nil {
		return h.fail(c, err)
	}

	ctx := c.UserContext()
	user, err := h.service.ForgotPassword(ctx, payload.Email)
	switch {
	case err == nil:
		if err := h.notifier.SendPasswordReset(ctx, user, user.Token); err != nil {
			h.logger.Error("failed to deliver reset token to %s: %v", user, err)
		}
	case credentials.IsValidationError(err):
		return h.fail(c, err)
	case errors.Is(err, credentials.ErrUserNotFound), errors.Is(err, credentials.ErrUserBlocked):
		h.logger.Info("password reset not issued for %q: %v", payload.Email, err)
	default:
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)
	if err := h.bind(c, payload); err != nil {
		return h.fail(c, err)
	}

	svc := h.service
	if sid := h.sessionID(c); sid != "" {
		svc = svc.ForStorage(h.session(sid))
	} else {
		svc = svc.ForStorage(nil)
	}

	user, err := svc.ResetPassword(c.UserContext(), payload.Token, payload.Password, payload.PasswordConfirmation)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(UserResponse{User: user})
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	payload := new(ChangePasswordPayload)
	if err := h.bind(c, payload); err != nil {
		return h.fail(c, err)
	}

	sid := h.sessionID(c)
	if sid == "" {
		return h.fail(c, credentials.ErrNotLoggedIn)
	}

	user, err := h.service.ForStorage(h.session(sid)).ChangePassword(
		c.UserContext(), payload.OldPassword, payload.Password, payload.PasswordConfirmation,
	)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(UserResponse{User: user})
}

func (h *Handler) bind(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		h.logger.Debug("failed to parse %s payload: %v", c.Path(), err)
		return ErrBadRequestBody
	}

	if h.debug {
		h.logger.Debug("%s payload: %s", c.Path(), print.MaybePrettyJSON(redact(payload)))
	}
	return nil
}

func (h *Handler) session(sid string) *storage.SessionStorage {
	return storage.Session(h.backend, sid, h.sessionTTL)
}

// sessionID returns the verified session id or an empty string.
func (h *Handler) sessionID(c *fiber.Ctx) string {
	raw := c.Cookies(h.cookieName)
	if raw == "" {
		return ""
	}

	sid, err := h.signer.Parse(raw)
	if err != nil {
		h.logger.Debug("ignoring session cookie: %v", err)
		return ""
	}
	return sid
}

func (h *Handler) setCookie(c *fiber.Ctx, sid string) error {
	value, err := h.signer.Sign(sid, h.sessionTTL)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (h *Handler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func redact(payload any) any {
	switch p := payload.(type) {
	case *RegisterPayload:
		cp := *p
		cp.Password, cp.PasswordConfirmation = "***", "***"
		return cp
	case *LoginPayload:
		cp := *p
		cp.Password = "***"
		return cp
	case *ResetPasswordPayload:
		cp := *p
		cp.Token, cp.Password, cp.PasswordConfirmation = "***", "***", "***"
		return cp
	case *ChangePasswordPayload:
		cp := *p
		cp.OldPassword, cp.Password, cp.PasswordConfirmation = "***", "***", "***"
		return cp
	case *TokenPayload:
		return TokenPayload{Token: "***"}
	default:
		return fmt.Sprintf("%T", payload)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
