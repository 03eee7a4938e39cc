package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"propertyhub/pkg/utils"
)

type Handler struct {
	Repo       *Repo
	Tokens     TokenService
	RefreshTTL time.Duration
	Limiter    *IPRateLimiter
}

func NewHandler(repo *Repo, tokens TokenService, refreshTTL time.Duration, limiter *IPRateLimiter) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, RefreshTTL: refreshTTL, Limiter: limiter}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authed := AuthMiddleware(h.Tokens, h.Repo)

	public := []gin.HandlerFunc{}
	if h.Limiter != nil {
		public = append(public, h.Limiter.Middleware())
	}
	rg.POST("/register", append(public, h.register)...)
	rg.POST("/login", append(public, h.login)...)
	rg.POST("/refresh", append(public, h.refresh)...)
	rg.POST("/change-password", authed, h.changePassword)
	rg.POST("/logout", authed, h.logout)
}

// RegisterUserRoutes serves the caller's own profile; rg must already be authenticated.
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// RegisterAdminRoutes serves user management; rg must already require the admin role.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.listUsers)
	rg.POST("/users", h.createUser)
	rg.PATCH("/users/:id", h.updateUser)
}

type registerReq struct {
	Username string `json:"username" binding:"required,notblank,min=3,max=30"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=admin agent"`
	TeamID   string `json:"team_id" binding:"max=64"`
}

func (req *registerReq) normalize() {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(req.Email)
	req.TeamID = strings.TrimSpace(req.TeamID)
}

// register only works while there are no users; the first account is the admin.
// Everyone after that is created by an admin.
func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if !utils.BindJSON(c, &req) {
		return
	}
	req.normalize()

	// early answer; CreateFirstUser enforces it
	n, err := h.Repo.CountUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}
	if n > 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": errRegistrationClosed})
		return
	}

	req.Role = RoleAdmin
	u, err := newUser(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	created, err := h.Repo.CreateFirstUser(c.Request.Context(), *u)
	if err != nil {
		log.Printf("[auth] bootstrap admin: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}
	if !created {
		c.JSON(http.StatusForbidden, gin.H{"error": errRegistrationClosed})
		return
	}
	log.Printf("[auth] bootstrap admin %s created", u.Username)
	h.issueSession(c, http.StatusCreated, u)
}

const errRegistrationClosed = "registration closed, ask an admin for an account"

func newUser(req registerReq) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		TeamID:       req.TeamID,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (h *Handler) create(c *gin.Context, req registerReq) (*User, int, string) {
	ctx := c.Request.Context()

	// uniqueness checks
	if u, _ := h.Repo.GetByEmail(ctx, req.Email); u != nil {
		return nil, http.StatusConflict, "email already exists"
	}
	if u, _ := h.Repo.GetByUsername(ctx, req.Username); u != nil {
		return nil, http.StatusConflict, "username already exists"
	}

	u, err := newUser(req)
	if err != nil {
		return nil, http.StatusInternalServerError, "hash failed"
	}
	if err := h.Repo.CreateUser(ctx, *u); err != nil {
		// SQLite unique constraint will also trigger here in races
		return nil, http.StatusInternalServerError, "create user failed"
	}
	return u, 0, ""
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if !utils.BindJSON(c, &req) {
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		// don't reveal which part failed
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.issueSession(c, http.StatusOK, u)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required,notblank"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshReq
	if !utils.BindJSON(c, &req) {
		return
	}

	u, err := h.Repo.ConsumeRefreshToken(c.Request.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}

	h.issueSession(c, http.StatusOK, u)
}

// issueSession answers with a fresh access token and a rotated refresh token.
func (h *Handler) issueSession(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	refresh, refreshExp, err := h.Repo.IssueRefreshToken(c.Request.Context(), u.ID, h.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(status, gin.H{
		"user":               userJSON(u),
		"token":              token,
		"expires_at":         exp.UTC().Format(time.RFC3339),
		"refresh_token":      refresh,
		"refresh_expires_at": refreshExp.UTC().Format(time.RFC3339),
	})
}

func userJSON(u *User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
		"team_id":  u.TeamID,
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if !utils.BindJSON(c, &req) {
		return
	}

	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	if err := h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, string(hash)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update password failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	if err := h.Repo.RevokeRefreshTokens(c.Request.Context(), claims.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, userJSON(u))
}

func (h *Handler) listUsers(c *gin.Context) {
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	users, err := h.Repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": users})
}

func (h *Handler) createUser(c *gin.Context) {
	var req registerReq
	if !utils.BindJSON(c, &req) {
		return
	}
	req.normalize()
	if req.Role == "" {
		req.Role = RoleAgent
	}
	if req.Role == RoleAgent && req.TeamID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agents need a team_id"})
		return
	}

	u, status, msg := h.create(c, req)
	if u == nil {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusCreated, userJSON(u))
}

type updateUserReq struct {
	Role   *string `json:"role" binding:"omitempty,oneof=admin agent"`
	TeamID *string `json:"team_id" binding:"omitempty,max=64"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserReq
	if !utils.BindJSON(c, &req) {
		return
	}

	u, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	role, team := u.Role, u.TeamID
	if req.Role != nil {
		role = strings.TrimSpace(*req.Role)
	}
	if req.TeamID != nil {
		team = strings.TrimSpace(*req.TeamID)
	}
	if !ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin or agent"})
		return
	}
	if role == RoleAgent && team == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agents need a team_id"})
		return
	}
	if claims := MustGetClaims(c); claims != nil && claims.UserID == u.ID && role != RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admins cannot demote themselves"})
		return
	}

	if _, err := h.Repo.UpdateRoleAndTeam(c.Request.Context(), u.ID, role, team); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	u.Role, u.TeamID = role, team
	c.JSON(http.StatusOK, userJSON(u))
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
