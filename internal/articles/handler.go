package articles

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"propertyhub/pkg/models"
	"propertyhub/pkg/utils"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/articles", h.listPublished)
	rg.GET("/articles/:slug", h.getBySlug)
}

// RegisterAdminRoutes expects rg to already require the admin role.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/articles", h.listAll)
	rg.GET("/articles/:id", h.getByID)
	rg.POST("/articles", h.create)
	rg.PUT("/articles/:id", h.update)
	rg.DELETE("/articles/:id", h.delete)
}

type articleReq struct {
	Slug      string `json:"slug" binding:"max=200"`
	Title     string `json:"title" binding:"required,notblank,max=300"`
	BodyHTML  string `json:"body_html"`
	Published bool   `json:"published"`
}

func (req articleReq) toArticle() (*models.Article, string) {
	title := strings.TrimSpace(req.Title)
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return nil, "slug could not be derived from title"
	}
	return &models.Article{
		Slug:      slug,
		Title:     title,
		BodyHTML:  req.BodyHTML,
		Excerpt:   Excerpt(req.BodyHTML),
		Published: req.Published,
	}, ""
}

func (h *Handler) list(c *gin.Context, includeDrafts bool) {
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), includeDrafts, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) listPublished(c *gin.Context) { h.list(c, false) }
func (h *Handler) listAll(c *gin.Context)       { h.list(c, true) }

func (h *Handler) getBySlug(c *gin.Context) {
	a, err := h.Repo.GetBySlug(c.Request.Context(), strings.TrimSpace(c.Param("slug")), false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	a, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) create(c *gin.Context) {
	var req articleReq
	if !utils.BindJSON(c, &req) {
		return
	}
	a, msg := req.toArticle()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.Repo.Create(c.Request.Context(), a); err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req articleReq
	if !utils.BindJSON(c, &req) {
		return
	}
	a, msg := req.toArticle()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	a.ID = id

	ok, err := h.Repo.Update(c.Request.Context(), a)
	if err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	saved, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ok, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
