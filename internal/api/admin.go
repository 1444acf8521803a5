package api

import (
	"errors"
	"net/http"

	"bayaniquest/internal/middleware"
	"bayaniquest/internal/model"
	"bayaniquest/internal/service"
	"bayaniquest/pkg/auth"
	"bayaniquest/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type adminRoutes struct {
	us service.UserServiceI
}

func NewAdminRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.JWTAuth, authz *middleware.Authorization) {
	r := &adminRoutes{us: us}

	h := handler.Group("/admin")
	h.Use(a.AuthMiddleware(), authz.AdminOnly())
	{
		h.GET("/users", r.ListUsers)
		h.PATCH("/users/:user_id/approve", r.ApproveUser)
	}
}

func (r *adminRoutes) ListUsers(c *gin.Context) {
	status := model.UserStatus(c.DefaultQuery("status", string(model.UserStatusPending)))

	users, err := r.us.ListUsersByStatus(c.Request.Context(), status)
	if err != nil {
		logger.Logger().Error("failed to list pending users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	out := make([]gin.H, len(users))
	for i, u := range users {
		out[i] = gin.H{
			"id":                u.ID,
			"name":              u.Name,
			"email":             u.Email,
			"status":            u.Status,
			"registration_date": u.RegistrationDate,
		}
	}
	c.JSON(http.StatusOK, out)
}

func (r *adminRoutes) ApproveUser(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		log.Error("failed to parse user_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	if err := r.us.ApproveUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending user with that id"})
			return
		}
		log.Error("failed to approve user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user approved"})
}
