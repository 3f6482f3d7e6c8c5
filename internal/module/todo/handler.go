package todo

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teamtodo/server/internal/module/auth"
	"github.com/teamtodo/server/internal/shared/metrics"
)

// Handler handles HTTP requests for todos.
type Handler struct {
	service *Service
	metrics *metrics.Metrics
}

// NewHandler creates a new todo handler.
func NewHandler(service *Service, m *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: m}
}

// RegisterRoutes registers todo routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	todos := r.Group("/todos")
	{
		todos.GET("", h.List)
		todos.POST("", h.Create)
		todos.GET("/:id", h.Get)
		todos.PUT("/:id", h.Replace)
		todos.PATCH("/:id", h.Patch)
		todos.DELETE("/:id", h.Delete)
	}
}

// List handles listing accessible todos.
//
//	@Summary		List todos
//	@Description	List todos the user created or that are shared with their teams
//	@Tags			Todos
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}	Response
//	@Failure		401	{object}	map[string]string
//	@Router			/todos [get]
func (h *Handler) List(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	todos, teamsByTodo, err := h.service.List(c.Request.Context(), u)
	if err != nil {
		h.handleError(c, err)
		return
	}

	responses := make([]*Response, len(todos))
	for i, t := range todos {
		responses[i] = t.ToResponse(teamsByTodo[t.ID])
	}

	c.JSON(http.StatusOK, responses)
}

// Get handles fetching a single todo.
//
//	@Summary		Get todo
//	@Description	Get a todo by id
//	@Tags			Todos
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Todo ID"
//	@Success		200	{object}	Response
//	@Failure		404	{object}	map[string]string
//	@Router			/todos/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		return
	}

	todo, teamIDs, err := h.service.Get(c.Request.Context(), u, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, todo.ToResponse(teamIDs))
}

// Create handles todo creation.
//
//	@Summary		Create todo
//	@Description	Create a todo, optionally shared with the user's teams
//	@Tags			Todos
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateTodoRequest	true	"Create todo request"
//	@Success		201		{object}	Response
//	@Failure		400		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Router			/todos [post]
func (h *Handler) Create(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	todo, teamIDs, err := h.service.Create(c.Request.Context(), u, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.metrics.RecordTodoOperation("create")
	c.JSON(http.StatusCreated, todo.ToResponse(teamIDs))
}

// Replace handles full updates.
//
//	@Summary		Replace todo
//	@Description	Full update; omitted fields reset to defaults
//	@Tags			Todos
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int					true	"Todo ID"
//	@Param			request	body		ReplaceTodoRequest	true	"Replace todo request"
//	@Success		200		{object}	Response
//	@Failure		400		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/todos/{id} [put]
func (h *Handler) Replace(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		return
	}

	var req ReplaceTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	todo, teamIDs, err := h.service.Replace(c.Request.Context(), u, id, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.metrics.RecordTodoOperation("replace")
	c.JSON(http.StatusOK, todo.ToResponse(teamIDs))
}

// Patch handles partial updates.
//
//	@Summary		Patch todo
//	@Description	Partial update; only supplied fields change
//	@Tags			Todos
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int					true	"Todo ID"
//	@Param			request	body		PatchTodoRequest	true	"Patch todo request"
//	@Success		200		{object}	Response
//	@Failure		400		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/todos/{id} [patch]
func (h *Handler) Patch(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		return
	}

	var req PatchTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	todo, teamIDs, err := h.service.Patch(c.Request.Context(), u, id, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.metrics.RecordTodoOperation("patch")
	c.JSON(http.StatusOK, todo.ToResponse(teamIDs))
}

// Delete handles todo deletion.
//
//	@Summary		Delete todo
//	@Description	Hard-delete a todo
//	@Tags			Todos
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Todo ID"
//	@Success		204
//	@Failure		404	{object}	map[string]string
//	@Router			/todos/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		return
	}

	if err := h.service.Delete(c.Request.Context(), u, id); err != nil {
		h.handleError(c, err)
		return
	}

	h.metrics.RecordTodoOperation("delete")
	c.Status(http.StatusNoContent)
}

// parseID extracts the numeric id path parameter, responding 400 itself
// on malformed input.
func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid todo id"})
		return 0, err
	}
	return id, nil
}

// handleError maps service errors to HTTP responses. Inaccessible todos
// get the same 404 as missing ones.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTitleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must not be blank"})
	case errors.Is(err, ErrTeamNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "team does not exist"})
	case errors.Is(err, ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
	case errors.Is(err, ErrForeignTeam):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of team"})
	case errors.Is(err, ErrTodoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "todo not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
