package team

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teamtodo/server/internal/module/auth"
	"github.com/teamtodo/server/internal/module/user"
)

// Handler handles HTTP requests for teams.
type Handler struct {
	service *Service
}

// NewHandler creates a new team handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers team routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	teams := r.Group("/teams")
	{
		teams.POST("", h.CreateTeam)
		teams.GET("", h.ListMyTeams)
		teams.POST("/:id/members", h.AddMember)
	}
}

// CreateTeam handles team creation.
//
//	@Summary		Create team
//	@Description	Create a team; the creator becomes its first member
//	@Tags			Teams
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateTeamRequest	true	"Create team request"
//	@Success		201		{object}	Response
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/teams [post]
func (h *Handler) CreateTeam(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.service.CreateTeam(c.Request.Context(), u.ID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, team.ToResponse())
}

// ListMyTeams handles listing the caller's teams.
//
//	@Summary		List my teams
//	@Description	Get all teams the current user belongs to
//	@Tags			Teams
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}	Response
//	@Failure		401	{object}	map[string]string
//	@Router			/teams [get]
func (h *Handler) ListMyTeams(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	teams, err := h.service.ListMyTeams(c.Request.Context(), u.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	responses := make([]*Response, len(teams))
	for i, team := range teams {
		responses[i] = team.ToResponse()
	}

	c.JSON(http.StatusOK, responses)
}

// AddMember handles adding a user to a team.
//
//	@Summary		Add member
//	@Description	Add a user to a team (members only; idempotent)
//	@Tags			Teams
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int					true	"Team ID"
//	@Param			request	body		AddMemberRequest	true	"Member request"
//	@Success		200		{object}	Response
//	@Failure		403		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/teams/{id}/members [post]
func (h *Handler) AddMember(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	teamID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team id"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.service.AddMember(c.Request.Context(), teamID, u.ID, req.Username)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, team.ToResponse())
}

// handleError maps service errors to HTTP responses.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be blank"})
	case errors.Is(err, ErrNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "team name exists"})
	case errors.Is(err, ErrTeamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
	case errors.Is(err, ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
	case errors.Is(err, user.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
