package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/middleware"
	"github.com/athlos-app/athlos/internal/services"
	"github.com/athlos-app/athlos/pkg/response"
)

// TeamHandler exposes team lifecycle and membership endpoints.
type TeamHandler struct {
	teams *services.TeamService
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(teams *services.TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

type createTeamRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Sport    string `json:"sport" validate:"required,max=60"`
	Capacity int    `json:"capacity" validate:"omitempty,min=2,max=500"`
}

// Create registers a new team with the caller as its creator.
func (h *TeamHandler) Create(c *gin.Context) {
	var req createTeamRequest
	if !bindAndValidate(c, &req) {
		return
	}

	team, err := h.teams.Create(requestContext(c), services.CreateTeamInput{
		Name:      req.Name,
		Sport:     req.Sport,
		Capacity:  req.Capacity,
		CreatorID: c.GetString(middleware.CtxUserIDKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, team)
}

// Get returns a single team.
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teams.GetByID(requestContext(c), c.Param("teamId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, team)
}

// Join adds the caller to the team roster.
func (h *TeamHandler) Join(c *gin.Context) {
	membership, err := h.teams.Join(requestContext(c), c.Param("teamId"), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, membership)
}

// Leave removes the caller from the team roster.
func (h *TeamHandler) Leave(c *gin.Context) {
	if err := h.teams.Leave(requestContext(c), c.Param("teamId"), c.GetString(middleware.CtxUserIDKey)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"left": true})
}

// ListMembers returns the team roster.
func (h *TeamHandler) ListMembers(c *gin.Context) {
	members, err := h.teams.ListMembers(requestContext(c), c.Param("teamId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, members)
}
