package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	identitydomain "github.com/DocumentationTool/Backend-sub000/internal/identity/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/permissions/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/permissions/service"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

type Controller struct {
	svc *service.Service
}

func New(svc *service.Service) *Controller {
	return &Controller{svc: svc}
}

func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/v1")
	h.RegisterV1(g)
}

func (h *Controller) RegisterV1(g *echo.Group) {
	g.GET("/repos/:repo/grants/users/:user", h.listUserGrants)
	g.POST("/repos/:repo/grants/users/:user", h.addUserGrant)
	g.PUT("/repos/:repo/grants/users/:user", h.updateUserGrant)
	g.DELETE("/repos/:repo/grants/users/:user", h.removeUserGrant)

	g.GET("/repos/:repo/grants/groups/:group", h.listGroupGrants)
	g.POST("/repos/:repo/grants/groups/:group", h.addGroupGrant)
	g.PUT("/repos/:repo/grants/groups/:group", h.updateGroupGrant)
	g.DELETE("/repos/:repo/grants/groups/:group", h.removeGroupGrant)

	g.GET("/repos/:repo/resolve", h.resolve)
}

type grantReq struct {
	Path  string `json:"path"`
	Level string `json:"level"`
}

type grantResp struct {
	Subject string `json:"subject"`
	Path    string `json:"path"`
	Pattern bool   `json:"pattern"`
	Level   string `json:"level"`
}

func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrGrantNotFound),
		errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, identitydomain.ErrGroupNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateGrant):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Controller) listUserGrants(c echo.Context) error {
	grants, err := h.svc.ListUserGrants(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), ident.UserIDOf(c.Param("user")))
	if err != nil {
		return fail(c, err)
	}
	out := make([]grantResp, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResp{
			Subject: g.User.String(),
			Path:    g.Target.Path(),
			Pattern: g.Target.IsPattern(),
			Level:   string(g.Level),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Controller) addUserGrant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	level := domain.PermissionLevel(req.Level)
	if !level.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown permission level"})
	}
	err := h.svc.AddUserGrant(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), ident.UserIDOf(c.Param("user")), req.Path, level)
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *Controller) updateUserGrant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	level := domain.PermissionLevel(req.Level)
	if !level.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown permission level"})
	}
	err := h.svc.UpdateUserGrant(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), ident.UserIDOf(c.Param("user")), req.Path, level)
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) removeUserGrant(c echo.Context) error {
	err := h.svc.RemoveUserGrant(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), ident.UserIDOf(c.Param("user")), c.QueryParam("path"))
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) listGroupGrants(c echo.Context) error {
	grants, err := h.svc.ListGroupGrants(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), ident.GroupIDOf(c.Param("group")))
	if err != nil {
		return fail(c, err)
	}
	out := make([]grantResp, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResp{
			Subject: g.Group.String(),
			Path:    g.Target.Path(),
			Pattern: g.Target.IsPattern(),
			Level:   string(g.Level),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Controller) addGroupGrant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	level := domain.PermissionLevel(req.Level)
	if !level.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown permission level"})
	}
	err := h.svc.AddGroupGrant(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), ident.GroupIDOf(c.Param("group")), req.Path, level)
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *Controller) updateGroupGrant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	level := domain.PermissionLevel(req.Level)
	if !level.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown permission level"})
	}
	err := h.svc.UpdateGroupGrant(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), ident.GroupIDOf(c.Param("group")), req.Path, level)
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) removeGroupGrant(c echo.Context) error {
	err := h.svc.RemoveGroupGrant(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), ident.GroupIDOf(c.Param("group")), c.QueryParam("path"))
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// resolve computes the effective permission for one path and caller.
func (h *Controller) resolve(c echo.Context) error {
	user := ident.UserIDOf(c.Request().Header.Get("X-User-ID"))
	level, err := h.svc.Resolve(c.Request().Context(), ident.RepoIDOf(c.Param("repo")), user, c.QueryParam("path"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"path":       c.QueryParam("path"),
		"permission": string(level),
	})
}
