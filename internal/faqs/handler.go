package faqs

import (
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
	rg.GET("/faqs", h.listPublished)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/faqs", h.listAll)
	rg.POST("/faqs", h.create)
	rg.PUT("/faqs/:id", h.update)
	rg.DELETE("/faqs/:id", h.delete)
}

type faqReq struct {
	Question  string `json:"question" binding:"required,notblank,max=500"`
	Answer    string `json:"answer" binding:"required,notblank,max=5000"`
	SortOrder int    `json:"sort_order" binding:"gte=0"`
	Published *bool  `json:"published"`
}

func (req faqReq) toFAQ() *models.FAQ {
	published := true
	if req.Published != nil {
		published = *req.Published
	}
	return &models.FAQ{
		Question:  strings.TrimSpace(req.Question),
		Answer:    strings.TrimSpace(req.Answer),
		SortOrder: req.SortOrder,
		Published: published,
	}
}

func (h *Handler) list(c *gin.Context, includeDrafts bool) {
	items, err := h.Repo.List(c.Request.Context(), includeDrafts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) listPublished(c *gin.Context) { h.list(c, false) }
func (h *Handler) listAll(c *gin.Context)       { h.list(c, true) }

func (h *Handler) create(c *gin.Context) {
	var req faqReq
	if !utils.BindJSON(c, &req) {
		return
	}
	f := req.toFAQ()
	if err := h.Repo.Create(c.Request.Context(), f); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req faqReq
	if !utils.BindJSON(c, &req) {
		return
	}
	f := req.toFAQ()
	f.ID = id

	ok, err := h.Repo.Update(c.Request.Context(), f)
	if err != nil {
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
