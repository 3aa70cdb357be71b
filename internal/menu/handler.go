package menu

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Handler manages menu endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW, validator: validator.New()}
}

// MountRoutes registers menu routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.AuthMenuRead))
		r.Get("/", h.fullTree)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.AuthMenuCreate))
		r.Post("/", h.createMenu)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.AuthMenuUpdate))
		r.Put("/{id}", h.updateMenu)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.AuthMenuDelete))
		r.Delete("/{id}", h.deleteMenu)
	})
}

type createMenuRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Code         string `json:"code" validate:"required,max=50"`
	Path         string `json:"path" validate:"max=255"`
	Icon         string `json:"icon" validate:"max=50"`
	ParentID     *int64 `json:"parentId"`
	SortOrder    int    `json:"sortOrder"`
	PermissionID *int64 `json:"permissionId"`
}

type updateMenuRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Path         *string `json:"path" validate:"omitempty,max=255"`
	Icon         *string `json:"icon" validate:"omitempty,max=50"`
	ParentID     *int64  `json:"parentId"`
	SortOrder    *int    `json:"sortOrder"`
	IsActive     *bool   `json:"isActive"`
	PermissionID *int64  `json:"permissionId"`
}

func (h *Handler) fullTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.FullTree(r.Context())
	if err != nil {
		h.respondError(w, "menu tree", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tree)
}

func (h *Handler) createMenu(w http.ResponseWriter, r *http.Request) {
	var req createMenuRequest
	if !h.decode(w, r, &req) {
		return
	}
	node, err := h.service.Create(r.Context(), CreateInput{
		Name:         req.Name,
		Code:         req.Code,
		Path:         req.Path,
		Icon:         req.Icon,
		ParentID:     req.ParentID,
		SortOrder:    req.SortOrder,
		PermissionID: req.PermissionID,
	})
	if err != nil {
		h.respondError(w, "create menu", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, node)
}

func (h *Handler) updateMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateMenuRequest
	if !h.decode(w, r, &req) {
		return
	}
	node, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:         req.Name,
		Path:         req.Path,
		Icon:         req.Icon,
		ParentID:     req.ParentID,
		SortOrder:    req.SortOrder,
		IsActive:     req.IsActive,
		PermissionID: req.PermissionID,
	})
	if err != nil {
		h.respondError(w, "update menu", err)
		return
	}
	httpx.JSON(w, http.StatusOK, node)
}

func (h *Handler) deleteMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete menu", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && !shared.IsBusinessError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
