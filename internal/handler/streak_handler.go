package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hpnhann/event-planner-backend/internal/service"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
	"github.com/hpnhann/event-planner-backend/pkg/response"
)

// StreakHandler handles attendance streak endpoints.
type StreakHandler struct {
	service *service.StreakService
}

// NewStreakHandler creates a new streak handler.
func NewStreakHandler(svc *service.StreakService) *StreakHandler {
	return &StreakHandler{service: svc}
}

// Mine godoc
// @Summary Own streak
// @Description Returns the current user's attendance streak
// @Tags Streaks
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /streaks/mine [get]
func (h *StreakHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	streak, err := h.service.GetForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, streak, nil)
}

// Get godoc
// @Summary Get user streak
// @Description Returns a user's attendance streak
// @Tags Streaks
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/streak [get]
func (h *StreakHandler) Get(c *gin.Context) {
	streak, err := h.service.GetForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, streak, nil)
}

// Leaderboard godoc
// @Summary Streak leaderboard
// @Description Returns the top attendance streaks
// @Tags Streaks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /streaks/leaderboard [get]
func (h *StreakHandler) Leaderboard(c *gin.Context) {
	leaderboard, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leaderboard, nil)
}

// List godoc
// @Summary List streaks
// @Description List all streaks with pagination (admin view)
// @Tags Streaks
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /streaks [get]
func (h *StreakHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	streaks, pagination, err := h.service.List(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, streaks, pagination)
}

// Reset godoc
// @Summary Reset streak
// @Description Zero a user's current streak (admin action)
// @Tags Streaks
// @Produce json
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/streak/reset [post]
func (h *StreakHandler) Reset(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Reset(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
