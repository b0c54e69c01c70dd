package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ems-desk/internal/attendance"
	"ems-desk/internal/auth"
	"ems-desk/internal/chart"
	"ems-desk/internal/domain"
	"ems-desk/internal/service"
	"ems-desk/internal/table"
)

const sessionKey = "session"

// Handler wires HTTP routes to domain services.
type Handler struct {
	sessions service.SessionService
	datasets service.DatasetService
	logger   *logrus.Logger
}

func NewHandler(sessions service.SessionService, datasets service.DatasetService, logger *logrus.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		datasets: datasets,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger(), corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/auth/signup", h.signUp)
		api.POST("/auth/login", h.logIn)
	}

	private := api.Group("", h.requireSession())
	{
		private.GET("/session", h.currentSession)

		private.POST("/datasets", h.uploadDataset)
		private.GET("/datasets", h.listDatasets)
		private.GET("/datasets/:id", h.getDataset)
		private.DELETE("/datasets/:id", h.deleteDataset)
		private.GET("/datasets/:id/info", h.datasetInfo)
		private.GET("/datasets/:id/describe", h.describeDataset)
		private.POST("/datasets/:id/columns/:style", h.renameColumns)
		private.POST("/datasets/:id/clean/:op", h.cleanDataset)
		private.GET("/datasets/:id/search", h.searchDataset)
		private.GET("/datasets/:id/chart", h.chartDataset)

		private.GET("/datasets/:id/attendance/totals", h.attendanceTotals)
		private.GET("/datasets/:id/attendance/counts", h.attendanceCounts)
		private.GET("/datasets/:id/attendance/percentages", h.attendancePercentages)
		private.GET("/datasets/:id/attendance/staff/:staff", h.attendanceByID)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := h.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		session, err := h.sessions.Authenticate(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *domain.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*domain.Session); ok {
			return s
		}
	}
	return nil
}

// writeError maps service and table errors to HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidDataset),
		errors.Is(err, table.ErrColumnNotFound),
		errors.Is(err, chart.ErrNotNumeric),
		errors.Is(err, chart.ErrUnknownKind):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrDatasetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken):
		status = http.StatusConflict
	case errors.Is(err, attendance.ErrDivisionByZero):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request error")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type signUpRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type logInRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	Authenticated bool    `json:"authenticated"`
	Username      string  `json:"username"`
	Token         string  `json:"token,omitempty"`
	ExpiresAt     *string `json:"expires_at,omitempty"`
}

func sessionToResponse(s *domain.Session, withToken bool) SessionResponse {
	resp := SessionResponse{Authenticated: true, Username: s.Username}
	if withToken {
		resp.Token = s.Token
	}
	if !s.ExpiresAt.IsZero() {
		v := s.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &v
	}
	return resp
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		return
	}

	if err := h.sessions.SignUp(c.Request.Context(), req.Username, req.Password); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": req.Username})
}

func (h *Handler) logIn(c *gin.Context) {
	var req logInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessions.LogIn(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(session, true))
}

func (h *Handler) currentSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionToResponse(sessionFrom(c), false))
}
