package contact

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"propertyhub/internal/auth"
	"propertyhub/internal/notify"
	"propertyhub/internal/sync"
	"propertyhub/pkg/models"
	"propertyhub/pkg/utils"
)

// Notifier delivers new-message alerts to staff listening over UDP.
type Notifier interface {
	BroadcastContact(msg notify.ContactMessage, teamID string)
}

type Handler struct {
	Repo     *Repo
	Hub      *sync.Hub
	Notifier Notifier
	Limiter  *auth.IPRateLimiter
}

func NewHandler(repo *Repo, hub *sync.Hub, notifier Notifier, limiter *auth.IPRateLimiter) *Handler {
	return &Handler{Repo: repo, Hub: hub, Notifier: notifier, Limiter: limiter}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	if h.Limiter != nil {
		rg.POST("/contact", h.Limiter.Middleware(), h.create)
		return
	}
	rg.POST("/contact", h.create)
}

// RegisterStaffRoutes expects rg to already be authenticated.
func (h *Handler) RegisterStaffRoutes(rg *gin.RouterGroup) {
	rg.GET("/contact-messages", h.list)
	rg.PATCH("/contact-messages/:id", h.markRead)
	rg.DELETE("/contact-messages/:id", h.delete)
}

type createReq struct {
	Name         string `json:"name" binding:"required,notblank,max=100"`
	Email        string `json:"email" binding:"omitempty,email,max=255"`
	Phone        string `json:"phone" binding:"omitempty,max=40"`
	Message      string `json:"message" binding:"required,notblank,max=5000"`
	PropertyCode string `json:"property_code" binding:"omitempty,max=32"`
}

// normalize trims the fields and applies the rule tags cannot express:
// a sender must leave an email or a phone number.
func (req *createReq) normalize() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Message = strings.TrimSpace(req.Message)
	req.PropertyCode = strings.TrimSpace(req.PropertyCode)

	if req.Email == "" && req.Phone == "" {
		return "email or phone required"
	}
	return ""
}

func scopeOf(claims *auth.Claims) Scope {
	return Scope{Admin: claims.IsAdmin(), TeamID: claims.TeamID}
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if !utils.BindJSON(c, &req) {
		return
	}
	if msg := req.normalize(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	m := &models.ContactMessage{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		PropertyCode: req.PropertyCode,
	}
	if err := h.Repo.Create(c.Request.Context(), m); err != nil {
		log.Printf("[contact] create: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	team, err := h.Repo.TeamForCode(c.Request.Context(), m.PropertyCode)
	if err != nil {
		log.Printf("[contact] team lookup for %q: %v", m.PropertyCode, err)
	}
	alert := notify.ContactMessage{ID: m.ID, Name: m.Name, PropertyCode: m.PropertyCode, At: m.CreatedAt}
	if h.Notifier != nil {
		go h.Notifier.BroadcastContact(alert, team)
	}
	if h.Hub != nil {
		go h.Hub.Publish(sync.ContactReceived, alert)
	}

	c.JSON(http.StatusCreated, gin.H{"id": m.ID, "message": "received"})
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)
	unread := c.Query("unread") == "true" || c.Query("unread") == "1"

	items, total, err := h.Repo.List(c.Request.Context(), scopeOf(claims), unread, limit, offset)
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

type markReq struct {
	Read *bool `json:"read" binding:"required"`
}

func (h *Handler) markRead(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req markReq
	if !utils.BindJSON(c, &req) {
		return
	}

	ok, err := h.Repo.MarkRead(c.Request.Context(), scopeOf(claims), id, *req.Read)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "read": *req.Read})
}

func (h *Handler) delete(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), scopeOf(claims), id)
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
