package middleware

import (
	"net/http"

	"bayaniquest/internal/model"
	"bayaniquest/internal/service"
	"bayaniquest/pkg/auth"
	"bayaniquest/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// CurrentUserKey holds the caller's user record once an authorization
// middleware has loaded it.
const CurrentUserKey = "current_user"

type Authorization struct {
	userService service.UserServiceI
}

func NewAuthorization(userService service.UserServiceI) *Authorization {
	return &Authorization{
		userService: userService,
	}
}

// ApprovedOnly loads the caller's record and refuses accounts still
// waiting on admin approval. Posting, applying, hiring and rating all
// sit behind this gate.
func (a *Authorization) ApprovedOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := a.loadCaller(c)
		if !ok {
			return
		}

		if user.Status != model.UserStatusApproved {
			logger.Logger().Info("unapproved account attempted a gated operation",
				zap.String("user_id", user.ID.String()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account pending approval"})
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := a.loadCaller(c)
		if !ok {
			return
		}

		if !user.IsAdmin {
			logger.Logger().Info("unauthorized access attempt to admin endpoint",
				zap.String("user_id", user.ID.String()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

func (a *Authorization) loadCaller(c *gin.Context) (*model.User, bool) {
	log := logger.Logger()

	identity, ok := auth.CallerIdentity(c)
	if !ok {
		log.Error("caller identity not found in context")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	user, err := a.userService.GetUser(c.Request.Context(), identity.UserID)
	if err != nil {
		log.Error("failed to get user data", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}

	return user, true
}

// CurrentUser pulls the loaded caller record out of the gin context.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	if !ok {
		return nil, false
	}
	return user, true
}
