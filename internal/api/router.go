package api

import (
	"errors"
	"net/http"
	"strconv"

	"piratwhist-service/internal/middleware"
	"piratwhist-service/internal/service"
	"piratwhist-service/internal/service/feedback"
	"piratwhist-service/internal/service/telemetry"
	"piratwhist-service/internal/ws"
	appErr "piratwhist-service/pkg/errors"
	"piratwhist-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Room, services.Score)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/piratwhist/v1")
	{
		v1.POST("/feedback", handler.CreateFeedback)
		v1.POST("/telemetry/events", handler.RecordTelemetryEvent)
		v1.POST("/telemetry/session", handler.TouchSession)

		// Existence probe: the join page checks the code before opening a
		// socket, so a purged room fails fast instead of mid-handshake.
		v1.GET("/rooms/:code", handler.ProbeRoom)
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.AdminLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.AdminAuthRequired())
		{
			protected.GET("/overview", handler.AdminOverview)
			protected.GET("/feedback", handler.AdminListFeedback)
			protected.GET("/games", handler.AdminListGames)
			protected.GET("/games/:id", handler.AdminGetGame)
			protected.GET("/rooms", handler.AdminListRooms)
		}
	}

	r.GET("/ws", wsHandler.HandleWS)
}

type adminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) CreateFeedback(c *gin.Context) {
	var body feedback.CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.UserAgent == "" {
		body.UserAgent = c.Request.UserAgent()
	}

	entry, err := h.services.Feedback.Create(c.Request.Context(), body, c.ClientIP())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrEmptyFeedback) {
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"id": entry.ID})
}

func (h *Handler) RecordTelemetryEvent(c *gin.Context) {
	var body telemetry.EventRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.services.Telemetry.RecordEvent(c.Request.Context(), body); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrUnknownEventKind) {
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"recorded": true})
}

func (h *Handler) TouchSession(c *gin.Context) {
	var body telemetry.SessionPing
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.services.Telemetry.TouchSession(c.Request.Context(), body); err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{"sessionId": body.SessionID})
}

func (h *Handler) ProbeRoom(c *gin.Context) {
	code := c.Param("code")
	if !h.services.Room.Exists(code) {
		response.Error(c, http.StatusNotFound, appErr.ErrRoomNotFound.Error())
		return
	}
	response.Success(c, gin.H{"room": code})
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body adminLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	token, admin, err := h.services.Admin.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidAdminPassword), errors.Is(err, appErr.ErrAdminNotFound):
			status = http.StatusUnauthorized
		case errors.Is(err, appErr.ErrAdminDisabled):
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{
		"token":       token,
		"username":    admin.Username,
		"displayName": admin.DisplayName,
	})
}

func (h *Handler) AdminOverview(c *gin.Context) {
	overview, err := h.services.Admin.BuildOverview(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, overview)
}

func (h *Handler) AdminListFeedback(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	size := parseIntQuery(c, "size", 20)

	entries, total, err := h.services.Feedback.List(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{
		"items": entries,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) AdminListGames(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	size := parseIntQuery(c, "size", 20)

	games, total, err := h.services.Admin.ListGames(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{
		"items": games,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) AdminGetGame(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid game id")
		return
	}

	game, rounds, err := h.services.Admin.GetGame(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrGameRecordNotFound) {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"game": game, "rounds": rounds})
}

func (h *Handler) AdminListRooms(c *gin.Context) {
	response.Success(c, gin.H{"rooms": h.services.Room.Rooms()})
}

func parseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}
