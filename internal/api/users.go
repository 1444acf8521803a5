package api

import (
	"errors"
	"net/http"

	"bayaniquest/internal/model"
	"bayaniquest/internal/service"
	"bayaniquest/pkg/auth"
	"bayaniquest/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type userRoutes struct {
	us service.UserServiceI
	a  *auth.JWTAuth
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.JWTAuth) {
	r := &userRoutes{us: us, a: a}

	h := handler.Group("/auth")
	{
		h.POST("/signup", r.Signup)
		h.POST("/login", r.Login)
	}

	u := handler.Group("/users")
	u.Use(a.AuthMiddleware())
	{
		u.GET("/me", r.GetMe)
		u.GET("/:user_id", r.GetUser)
		u.POST("/me/topup", r.TopUp)
	}
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (r *userRoutes) Signup(c *gin.Context) {
	log := logger.Logger()

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := r.us.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		log.Error("failed to sign up user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign up"})
		return
	}

	token, err := r.a.IssueToken(user.ID)
	if err != nil {
		log.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign up"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  userBody(user, true),
	})
}

func (r *userRoutes) Login(c *gin.Context) {
	log := logger.Logger()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := r.us.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		log.Error("failed to log in user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	token, err := r.a.IssueToken(user.ID)
	if err != nil {
		log.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userBody(user, true),
	})
}

func (r *userRoutes) GetMe(c *gin.Context) {
	identity, ok := auth.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), identity.UserID)
	if err != nil {
		logger.Logger().Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, userBody(user, true))
}

func (r *userRoutes) GetUser(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		log.Error("failed to parse user_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "no user associated with the provided user_id"})
		return
	}

	identity, ok := auth.CallerIdentity(c)
	includeWallet := ok && identity.UserID == user.ID

	c.JSON(http.StatusOK, userBody(user, includeWallet))
}

func (r *userRoutes) TopUp(c *gin.Context) {
	log := logger.Logger()

	identity, ok := auth.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	credited, err := r.us.TopUp(c.Request.Context(), identity.UserID)
	if err != nil {
		log.Error("failed to top up wallet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to top up"})
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), identity.UserID)
	if err != nil {
		log.Error("failed to get user after top up", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to top up"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credited":       credited.String(),
		"wallet_balance": user.WalletBalance.String(),
	})
}

func userBody(u *model.User, includeWallet bool) gin.H {
	body := gin.H{
		"id":                     u.ID,
		"name":                   u.Name,
		"status":                 u.Status,
		"avatar_url":             u.AvatarURL,
		"average_rating":         u.AverageRating(),
		"number_of_ratings":      u.NumberOfRatings,
		"quests_posted":          u.QuestsPosted,
		"quests_completed":       u.QuestsCompleted,
		"quests_given_completed": u.QuestsGivenCompleted,
		"registration_date":      u.RegistrationDate,
	}
	if includeWallet {
		body["email"] = u.Email
		body["wallet_balance"] = u.WalletBalance.String()
	}
	return body
}
