package reference

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"propertyhub/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/types", h.listTypes)
	rg.GET("/statuses", h.listStatuses)
	rg.GET("/locations", h.listLocations)            // ?level=district&parent_id=1
	rg.GET("/locations/:id/ancestry", h.getAncestry) // province/district/subdistrict names
}

func (h *Handler) listTypes(c *gin.Context) {
	items, err := h.Repo.Types().List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) listStatuses(c *gin.Context) {
	items, err := h.Repo.Statuses().List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) listLocations(c *gin.Context) {
	level := models.Level(strings.ToLower(strings.TrimSpace(c.DefaultQuery("level", string(models.LevelProvince)))))
	if !level.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "level must be province, district or subdistrict"})
		return
	}

	var parentID *int64
	if raw := strings.TrimSpace(c.Query("parent_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent_id"})
			return
		}
		parentID = &id
	}

	items, err := h.Repo.Locations().List(c.Request.Context(), level, parentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if items == nil {
		items = []models.Location{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) getAncestry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	anc, err := h.Repo.Locations().Ancestry(c.Request.Context(), &id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if len(anc) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, anc)
}
