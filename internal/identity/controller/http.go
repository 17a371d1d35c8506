package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DocumentationTool/Backend-sub000/internal/identity/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

type Controller struct {
	svc domain.Service
}

func New(svc domain.Service) *Controller {
	return &Controller{svc: svc}
}

func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/v1")
	h.RegisterV1(g)
}

func (h *Controller) RegisterV1(g *echo.Group) {
	g.POST("/users", h.createUser)
	g.GET("/users/:id", h.getUser)
	g.DELETE("/users/:id", h.removeUser)
	g.PUT("/users/:id/roles", h.setUserRoles)

	g.POST("/groups", h.createGroup)
	g.GET("/groups/:id", h.getGroup)
	g.DELETE("/groups/:id", h.removeGroup)
	g.POST("/groups/:id/members/:user", h.addMember)
	g.DELETE("/groups/:id/members/:user", h.removeMember)
}

type userResp struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Groups      []string `json:"groups,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func toUserResp(u domain.UserProfile) userResp {
	groups := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		groups = append(groups, g.String())
	}
	return userResp{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
		Groups:      groups,
		Roles:       u.Roles,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type groupResp struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members,omitempty"`
	CreatedAt string   `json:"created_at"`
}

func toGroupResp(g domain.Group) groupResp {
	members := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		members = append(members, m.String())
	}
	return groupResp{
		ID:        g.ID.String(),
		Name:      g.Name,
		Members:   members,
		CreatedAt: g.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrGroupNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrGroupExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}

type createUserReq struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles,omitempty"`
}

func (h *Controller) createUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	u, err := h.svc.CreateUser(c.Request().Context(), ident.UserIDOf(req.ID), req.DisplayName, req.Roles)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

func (h *Controller) getUser(c echo.Context) error {
	u, err := h.svc.GetUser(c.Request().Context(), ident.UserIDOf(c.Param("id")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

func (h *Controller) removeUser(c echo.Context) error {
	if err := h.svc.RemoveUser(c.Request().Context(), ident.UserIDOf(c.Param("id"))); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type rolesReq struct {
	Roles []string `json:"roles"`
}

func (h *Controller) setUserRoles(c echo.Context) error {
	var req rolesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := h.svc.SetUserRoles(c.Request().Context(), ident.UserIDOf(c.Param("id")), req.Roles); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type createGroupReq struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Controller) createGroup(c echo.Context) error {
	var req createGroupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	g, err := h.svc.CreateGroup(c.Request().Context(), ident.GroupIDOf(req.ID), req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toGroupResp(g))
}

func (h *Controller) getGroup(c echo.Context) error {
	g, err := h.svc.GetGroup(c.Request().Context(), ident.GroupIDOf(c.Param("id")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toGroupResp(g))
}

func (h *Controller) removeGroup(c echo.Context) error {
	if err := h.svc.RemoveGroup(c.Request().Context(), ident.GroupIDOf(c.Param("id"))); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) addMember(c echo.Context) error {
	err := h.svc.AddGroupMember(c.Request().Context(), ident.GroupIDOf(c.Param("id")), ident.UserIDOf(c.Param("user")))
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) removeMember(c echo.Context) error {
	err := h.svc.RemoveGroupMember(c.Request().Context(), ident.GroupIDOf(c.Param("id")), ident.UserIDOf(c.Param("user")))
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
