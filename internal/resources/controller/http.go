package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
)

// Controller maps the resource contract onto HTTP. The acting identity
// comes from the X-User-ID header; a missing header means no identity
// was supplied at all.
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
	g.GET("/repos/:repo/resources", h.list)
	g.GET("/repos/:repo/resource", h.get)
	g.GET("/repos/:repo/search", h.search)
	g.POST("/repos/:repo/resources", h.insert)
	g.PUT("/repos/:repo/resources", h.update)
	g.DELETE("/repos/:repo/resources", h.remove)
	g.POST("/repos/:repo/resources/move", h.move)

	g.GET("/repos/:repo/tags", h.listTags)
	g.POST("/repos/:repo/tags", h.createTag)
	g.DELETE("/repos/:repo/tags/:tag", h.removeTag)
	g.POST("/repos/:repo/resources/tags", h.tagResource)
	g.DELETE("/repos/:repo/resources/tags", h.untagResource)

	g.GET("/repos/:repo/locks", h.editedBy)
	g.PUT("/repos/:repo/locks", h.setEditedBy)
	g.DELETE("/repos/:repo/locks", h.clearEditedBy)
}

type resourceResp struct {
	RepoID     string   `json:"repo_id"`
	Path       string   `json:"path"`
	CreatedAt  string   `json:"created_at"`
	CreatedBy  string   `json:"created_by"`
	ModifiedAt string   `json:"modified_at"`
	ModifiedBy string   `json:"modified_by"`
	Category   *string  `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Permission string   `json:"permission"`
}

func toResourceResp(r domain.Resource) resourceResp {
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, t.String())
	}
	return resourceResp{
		RepoID:     r.RepoID.String(),
		Path:       r.Path,
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
		CreatedBy:  r.CreatedBy.String(),
		ModifiedAt: r.ModifiedAt.UTC().Format(time.RFC3339),
		ModifiedBy: r.ModifiedBy.String(),
		Category:   r.Category,
		Tags:       tags,
		Content:    r.Content,
		Permission: string(r.Permission),
	}
}

func toResourceResps(resources []domain.Resource) []resourceResp {
	out := make([]resourceResp, 0, len(resources))
	for _, r := range resources {
		out = append(out, toResourceResp(r))
	}
	return out
}

func caller(c echo.Context) ident.UserID {
	return ident.UserIDOf(c.Request().Header.Get("X-User-ID"))
}

func repoParam(c echo.Context) ident.RepoID {
	return ident.RepoIDOf(c.Param("repo"))
}

// errStatus maps domain errors to HTTP statuses. Internal sentinels
// collapse to a generic 500 with no detail.
func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrResourceNotFound),
		errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrRepoNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrResourceExists),
		errors.Is(err, domain.ErrTagExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPathLocked):
		return http.StatusLocked, err.Error()
	case errors.Is(err, domain.ErrRepoReadOnly):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrStoreFailure),
		errors.Is(err, domain.ErrVCSFailure):
		return http.StatusInternalServerError, "internal error"
	default:
		return http.StatusBadRequest, err.Error()
	}
}

func fail(c echo.Context, err error) error {
	status, msg := errStatus(err)
	return c.JSON(status, map[string]string{"error": msg})
}

func (h *Controller) list(c echo.Context) error {
	resources, err := h.svc.List(c.Request().Context(), repoParam(c), caller(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toResourceResps(resources))
}

func (h *Controller) get(c echo.Context) error {
	withContent, _ := strconv.ParseBool(c.QueryParam("content"))
	res, err := h.svc.Get(c.Request().Context(), repoParam(c), c.QueryParam("path"), caller(c), withContent)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toResourceResp(res))
}

func (h *Controller) search(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	resources, err := h.svc.Search(c.Request().Context(), repoParam(c), c.QueryParam("q"), c.QueryParam("path"), limit, caller(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toResourceResps(resources))
}

type insertReq struct {
	Path     string  `json:"path"`
	Content  string  `json:"content"`
	Category *string `json:"category,omitempty"`
}

func (h *Controller) insert(c echo.Context) error {
	var req insertReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	res, err := h.svc.Insert(c.Request().Context(), repoParam(c), req.Path, req.Content, req.Category, caller(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toResourceResp(res))
}

type updateReq struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (h *Controller) update(c echo.Context) error {
	var req updateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	res, err := h.svc.Update(c.Request().Context(), repoParam(c), req.Path, req.Content, caller(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toResourceResp(res))
}

func (h *Controller) remove(c echo.Context) error {
	if err := h.svc.Remove(c.Request().Context(), repoParam(c), c.QueryParam("path"), caller(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type moveReq struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

func (h *Controller) move(c echo.Context) error {
	var req moveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := h.svc.Move(c.Request().Context(), repoParam(c), req.OldPath, req.NewPath, caller(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type tagResp struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (h *Controller) listTags(c echo.Context) error {
	tags, err := h.svc.ListTags(c.Request().Context(), repoParam(c))
	if err != nil {
		return fail(c, err)
	}
	out := make([]tagResp, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagResp{ID: t.ID.String(), Label: t.Label})
	}
	return c.JSON(http.StatusOK, out)
}

type createTagReq struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (h *Controller) createTag(c echo.Context) error {
	var req createTagReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	tag, err := h.svc.CreateTag(c.Request().Context(), repoParam(c), ident.TagIDOf(req.ID), req.Label)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, tagResp{ID: tag.ID.String(), Label: tag.Label})
}

func (h *Controller) removeTag(c echo.Context) error {
	if err := h.svc.RemoveTag(c.Request().Context(), repoParam(c), ident.TagIDOf(c.Param("tag"))); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type resourceTagReq struct {
	Path string `json:"path"`
	Tag  string `json:"tag"`
}

func (h *Controller) tagResource(c echo.Context) error {
	var req resourceTagReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := h.svc.TagResource(c.Request().Context(), repoParam(c), req.Path, ident.TagIDOf(req.Tag)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) untagResource(c echo.Context) error {
	var req resourceTagReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := h.svc.UntagResource(c.Request().Context(), repoParam(c), req.Path, ident.TagIDOf(req.Tag)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) editedBy(c echo.Context) error {
	holder, locked, err := h.svc.EditedBy(c.Request().Context(), repoParam(c), c.QueryParam("path"))
	if err != nil {
		return fail(c, err)
	}
	resp := map[string]any{"locked": locked}
	if locked {
		resp["user_id"] = holder.String()
	}
	return c.JSON(http.StatusOK, resp)
}

type lockReq struct {
	Path string `json:"path"`
}

func (h *Controller) setEditedBy(c echo.Context) error {
	var req lockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := h.svc.SetEditedBy(c.Request().Context(), repoParam(c), req.Path, caller(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) clearEditedBy(c echo.Context) error {
	var req lockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := h.svc.ClearEditedBy(c.Request().Context(), repoParam(c), req.Path, caller(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
