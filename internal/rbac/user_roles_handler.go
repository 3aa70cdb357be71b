package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// UserRolesHandler manages user-role assignment endpoints.
type UserRolesHandler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	validator *validator.Validate
}

// NewUserRolesHandler builds a UserRolesHandler instance.
func NewUserRolesHandler(logger *slog.Logger, service *Service, rbac Middleware) *UserRolesHandler {
	return &UserRolesHandler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user-role routes under /users/{userId}/roles.
func (h *UserRolesHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(AuthUserRead))
		r.Get("/{userId}/roles", h.userRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(AuthUserUpdate))
		r.Put("/{userId}/roles", h.assignUserRoles)
	})
}

type assignRolesRequest struct {
	RoleIDs []int64 `json:"roleIds" validate:"required"`
}

func (h *UserRolesHandler) userRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	roles, err := h.service.UserRoles(r.Context(), userID)
	if err != nil {
		h.respondError(w, "user roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *UserRolesHandler) assignUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req assignRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignUserRoles(r.Context(), userID, req.RoleIDs); err != nil {
		h.respondError(w, "assign user roles", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserRolesHandler) respondError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && !shared.IsBusinessError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}
