package property

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"propertyhub/internal/auth"
	"propertyhub/internal/sync"
	"propertyhub/pkg/models"
	"propertyhub/pkg/utils"
)

type Handler struct {
	Service *Service
	Hub     *sync.Hub
}

func NewHandler(svc *Service, hub *sync.Hub) *Handler {
	return &Handler{Service: svc, Hub: hub}
}

// RegisterRoutes serves the public, read-only listing endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/properties", h.list)
	rg.GET("/properties/:id", h.getOne)
	rg.GET("/properties/code/:code", h.getByCode)
}

// RegisterStaffRoutes serves listing management; rg must already be authenticated.
// Agents only ever see their own team's listings here.
func (h *Handler) RegisterStaffRoutes(rg *gin.RouterGroup) {
	rg.GET("/properties", h.staffList)
	rg.POST("/properties", h.create)
	rg.POST("/properties/preview-title", h.previewTitle)
	rg.PATCH("/properties/:id", h.update)
	rg.DELETE("/properties/:id", h.remove)
}

// propertyReq is both the create body and the PATCH body: absent fields are
// left alone on update. An id of 0 clears the reference.
type propertyReq struct {
	Code            *string   `json:"property_code" binding:"omitempty,max=32"`
	TypeID          *int64    `json:"type_id"`
	StatusID        *int64    `json:"status_id"`
	SubdistrictID   *int64    `json:"subdistrict_id"`
	TypeText        *string   `json:"type_text"`
	StatusText      *string   `json:"status_text"`
	ProvinceText    *string   `json:"province_text"`
	DistrictText    *string   `json:"district_text"`
	SubdistrictText *string   `json:"subdistrict_text"`
	Size            *float64  `json:"size" binding:"omitempty,gte=0"`
	Price           *float64  `json:"price" binding:"omitempty,gte=0"`
	Description     *string   `json:"description"`
	Features        *[]string `json:"features"`
	Labels          *[]string `json:"labels"`
	TeamID          *string   `json:"team_id" binding:"omitempty,max=64"`
}

func idOrNil(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

func (req propertyReq) apply(p *models.Property) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&p.Code, req.Code)
	setString(&p.TypeText, req.TypeText)
	setString(&p.StatusText, req.StatusText)
	setString(&p.ProvinceText, req.ProvinceText)
	setString(&p.DistrictText, req.DistrictText)
	setString(&p.SubdistrictText, req.SubdistrictText)
	setString(&p.Description, req.Description)
	setString(&p.TeamID, req.TeamID)

	if req.TypeID != nil {
		p.TypeID = idOrNil(req.TypeID)
	}
	if req.StatusID != nil {
		p.StatusID = idOrNil(req.StatusID)
	}
	if req.SubdistrictID != nil {
		p.SubdistrictID = idOrNil(req.SubdistrictID)
	}
	if req.Size != nil {
		p.Size = req.Size
	}
	if req.Price != nil {
		p.Price = req.Price
	}
	if req.Features != nil {
		p.Features = *req.Features
	}
	if req.Labels != nil {
		p.Labels = *req.Labels
	}
}

func listQuery(c *gin.Context) ListQuery {
	q := ListQuery{
		Q:        c.Query("q"),
		Province: c.Query("province"),
		Feature:  c.Query("feature"),
		Limit:    parseInt(c.Query("limit"), 20),
		Offset:   parseInt(c.Query("offset"), 0),
	}
	if v, err := strconv.ParseInt(c.Query("type_id"), 10, 64); err == nil {
		q.TypeID = &v
	}
	if v, err := strconv.ParseInt(c.Query("status_id"), 10, 64); err == nil {
		q.StatusID = &v
	}
	if v, err := strconv.ParseFloat(c.Query("min_size"), 64); err == nil {
		q.MinSize = &v
	}
	if v, err := strconv.ParseFloat(c.Query("max_size"), 64); err == nil {
		q.MaxSize = &v
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

func (h *Handler) respondList(c *gin.Context, q ListQuery) {
	items, total, err := h.Service.Repo.List(c.Request.Context(), q)
	if err != nil {
		log.Printf("[property] list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) list(c *gin.Context) {
	h.respondList(c, listQuery(c))
}

func (h *Handler) staffList(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	q := listQuery(c)
	if !claims.IsAdmin() {
		q.TeamID = claims.TeamID
	} else if team := strings.TrimSpace(c.Query("team_id")); team != "" {
		q.TeamID = team
	}
	h.respondList(c, q)
}

func (h *Handler) getOne(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := h.Service.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) getByCode(c *gin.Context) {
	p, err := h.Service.Repo.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// loadScoped fetches the listing named by :id, answering 404 when it does not
// exist or belongs to another team than the calling agent's.
func (h *Handler) loadScoped(c *gin.Context, claims *auth.Claims) (*models.Property, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	p, err := h.Service.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return nil, false
	}
	if p == nil || (!claims.IsAdmin() && p.TeamID != claims.TeamID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return p, true
}

func writeError(c *gin.Context, action string, err error) {
	var ve ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"error": ErrDuplicateCode.Error()})
	case errors.Is(err, ErrUnknownReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrUnknownReference.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("[property] %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": action + " failed"})
	}
}

func (h *Handler) publish(eventType string, p *models.Property, actor string) {
	if h.Hub == nil {
		return
	}
	go h.Hub.Publish(eventType, sync.PropertyChange{
		ID:      p.ID,
		Code:    p.Code,
		TeamID:  p.TeamID,
		TitleEN: p.Titles.EN,
		ActorID: actor,
	})
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req propertyReq
	if !utils.BindJSON(c, &req) {
		return
	}

	p := &models.Property{}
	req.apply(p)
	p.CreatedBy = claims.UserID
	if !claims.IsAdmin() {
		p.TeamID = claims.TeamID
	}

	if err := h.Service.Create(c.Request.Context(), p); err != nil {
		writeError(c, "create", err)
		return
	}

	h.publish(sync.PropertyCreated, p, claims.UserID)
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) update(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, ok := h.loadScoped(c, claims)
	if !ok {
		return
	}

	var req propertyReq
	if !utils.BindJSON(c, &req) {
		return
	}
	if !claims.IsAdmin() {
		req.TeamID = nil
	}
	req.apply(p)

	if err := h.Service.Update(c.Request.Context(), p); err != nil {
		writeError(c, "update", err)
		return
	}

	h.publish(sync.PropertyUpdated, p, claims.UserID)
	c.JSON(http.StatusOK, p)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, ok := h.loadScoped(c, claims)
	if !ok {
		return
	}

	deleted, err := h.Service.Repo.Delete(c.Request.Context(), p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publish(sync.PropertyDeleted, p, claims.UserID)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) previewTitle(c *gin.Context) {
	var req propertyReq
	if !utils.BindJSON(c, &req) {
		return
	}
	p := &models.Property{}
	req.apply(p)

	t, err := h.Service.Preview(c.Request.Context(), p)
	if err != nil {
		writeError(c, "preview", err)
		return
	}
	c.JSON(http.StatusOK, t)
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
