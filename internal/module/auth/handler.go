package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/teamtodo/server/internal/module/user"
	"github.com/teamtodo/server/internal/shared/metrics"
)

const (
	// UserKey is the context key for the resolved user.
	UserKey = "user"
	// UserIDKey is the context key for the resolved user's id.
	UserIDKey = "user_id"

	bearerPrefix = "Bearer "
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	service *Service
	metrics *metrics.Metrics
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service, m *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: m}
}

// RegisterPublicRoutes registers routes that never require a token.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes registers routes behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", h.Me)
	}
}

// Register handles user registration.
//
//	@Summary		Register
//	@Description	Create a new user account
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Registration request"
//	@Success		201		{object}	user.Response
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.metrics.RecordAuthEvent("register")

	teamIDs, _ := h.service.TeamIDs(c.Request.Context(), u.ID)
	c.JSON(http.StatusCreated, u.ToResponse(teamIDs))
}

// Login handles user login.
//
//	@Summary		Login
//	@Description	Exchange credentials for a bearer token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Login request"
//	@Success		200		{object}	LoginResponse
//	@Failure		401		{object}	map[string]string
//	@Failure		429		{object}	map[string]string
//	@Router			/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, u, err := h.service.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.metrics.RecordAuthEvent("login_failed")
		}
		if errors.Is(err, ErrRateLimited) {
			h.metrics.RecordAuthEvent("login_rate_limited")
		}
		h.handleError(c, err)
		return
	}

	h.metrics.RecordAuthEvent("login_success")

	teamIDs, _ := h.service.TeamIDs(c.Request.Context(), u.ID)
	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  u.ToResponse(teamIDs),
	})
}

// Me handles fetching the current user.
//
//	@Summary		Current user
//	@Description	Get the authenticated user
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	user.Response
//	@Failure		401	{object}	map[string]string
//	@Router			/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	teamIDs, err := h.service.TeamIDs(c.Request.Context(), u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, u.ToResponse(teamIDs))
}

// AuthMiddleware validates the bearer token and resolves its subject to
// a stored user, attaching it to the request context. Requests without a
// valid, resolvable token are rejected with 401.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}
		token := strings.TrimPrefix(authHeader, bearerPrefix)

		subject, err := h.service.jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		u, err := h.service.ResolveSubject(c.Request.Context(), subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserKey, u)
		c.Set(UserIDKey, u.ID)
		c.Next()
	}
}

// CurrentUser returns the authenticated user from the request context.
func CurrentUser(c *gin.Context) (*user.User, bool) {
	val, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	u, ok := val.(*user.User)
	return u, ok
}

// handleError maps service errors to HTTP responses.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUsernameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must not be blank"})
	case errors.Is(err, ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
	case errors.Is(err, ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
