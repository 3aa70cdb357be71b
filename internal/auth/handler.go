package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/helmdesk/helmdesk/internal/observability"
	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auth      Middleware
	validator *validator.Validate
	metrics   *observability.Metrics

	loginLimit  int
	loginWindow time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, auth Middleware, metrics *observability.Metrics, loginLimit int, loginWindow time.Duration) *Handler {
	if loginLimit <= 0 {
		loginLimit = 10
	}
	if loginWindow <= 0 {
		loginWindow = time.Minute
	}
	return &Handler{
		logger:      logger,
		service:     service,
		auth:        auth,
		validator:   validator.New(),
		metrics:     metrics,
		loginLimit:  loginLimit,
		loginWindow: loginWindow,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		// Credential endpoints get a tighter per-IP budget than the global limiter.
		r.Use(httprate.Limit(h.loginLimit, h.loginWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/signup", h.handleSignUp)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.auth.Authenticate)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	profile, err := h.service.SignUp(r.Context(), SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.respondError(w, "sign up", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordLogin(observability.LoginOutcome(err))
		h.respondError(w, "login", err)
		return
	}
	h.metrics.RecordLogin("success")
	httpx.JSON(w, http.StatusOK, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(w, "refresh", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pair)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	if err := h.service.Logout(r.Context(), principal.UserID); err != nil {
		h.respondError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	info, err := h.service.GetMyInfo(r.Context(), principal.UserID)
	if err != nil {
		h.respondError(w, "get my info", err)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && !shared.IsBusinessError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
