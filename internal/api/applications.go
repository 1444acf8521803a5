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

type applicationRoutes struct {
	qs service.QuestServiceI
	rs service.RatingServiceI
}

func NewApplicationRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, rs service.RatingServiceI, a *auth.JWTAuth, authz *middleware.Authorization) {
	r := &applicationRoutes{qs: qs, rs: rs}

	h := handler.Group("/applications")
	h.Use(a.AuthMiddleware(), authz.ApprovedOnly())
	{
		h.GET("/mine", r.ListMine)
		h.PATCH("/:application_id/reject", r.Reject)
		h.DELETE("/:application_id", r.Withdraw)
		h.POST("/:application_id/rate", r.Rate)
	}
}

func (r *applicationRoutes) ListMine(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	applications, err := r.qs.ListMyApplications(c.Request.Context(), caller.ID)
	if err != nil {
		logger.Logger().Error("failed to list applications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list applications"})
		return
	}

	out := make([]gin.H, len(applications))
	for i, a := range applications {
		out[i] = applicationBody(a)
	}
	c.JSON(http.StatusOK, out)
}

func (r *applicationRoutes) Reject(c *gin.Context) {
	applicationID, ok := parseApplicationID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := r.qs.RejectApplicant(c.Request.Context(), applicationID, caller.ID); err != nil {
		respondQuestError(c, err, "failed to reject applicant")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "applicant rejected"})
}

func (r *applicationRoutes) Withdraw(c *gin.Context) {
	applicationID, ok := parseApplicationID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := r.qs.Withdraw(c.Request.Context(), applicationID, caller.ID); err != nil {
		respondQuestError(c, err, "failed to withdraw application")
		return
	}

	c.Status(http.StatusNoContent)
}

type RateRequest struct {
	Stars  int     `json:"stars" binding:"required"`
	Review *string `json:"review"`
}

func (r *applicationRoutes) Rate(c *gin.Context) {
	applicationID, ok := parseApplicationID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := r.rs.RateCounterparty(c.Request.Context(), applicationID, caller.ID, req.Stars, req.Review)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5 stars"})
		case errors.Is(err, service.ErrAlreadyRated):
			c.JSON(http.StatusConflict, gin.H{"error": "already rated"})
		case errors.Is(err, service.ErrNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "quest must be completed before rating"})
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this application"})
		case errors.Is(err, service.ErrApplicationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		default:
			logger.Logger().Error("failed to submit rating", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit rating"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rating submitted"})
}

func parseApplicationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("application_id"))
	if err != nil {
		logger.Logger().Error("failed to parse application_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application_id"})
		return uuid.Nil, false
	}
	return id, true
}

func applicationBody(a *model.Application) gin.H {
	return gin.H{
		"id":             a.ID,
		"quest_id":       a.QuestID,
		"quest_giver_id": a.QuestGiverID,
		"quester_id":     a.QuesterID,
		"applicant_name": a.ApplicantName,
		"quest_title":    a.QuestTitle,
		"status":         a.Status,
		"quester_rated":  a.QuesterRated,
		"giver_rated":    a.GiverRated,
		"quester_rating": a.QuesterRating,
		"giver_rating":   a.GiverRating,
		"quester_review": a.QuesterReview,
		"giver_review":   a.GiverReview,
		"applied_at":     a.AppliedAt,
	}
}

// respondQuestError maps lifecycle error kinds onto HTTP statuses.
// Validation failures are 400, precondition conflicts 409, funds 402.
func respondQuestError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrQuestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
	case errors.Is(err, service.ErrApplicationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, service.ErrNotQuestOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the quest giver may do this"})
	case errors.Is(err, service.ErrOwnQuest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot apply to your own quest"})
	case errors.Is(err, service.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, gin.H{"error": "quest has an invalid price"})
	case errors.Is(err, service.ErrAlreadyApplied):
		c.JSON(http.StatusConflict, gin.H{"error": "already applied to this quest"})
	case errors.Is(err, service.ErrQuestClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "quest is no longer accepting applications"})
	case errors.Is(err, service.ErrQuestNotOpen):
		c.JSON(http.StatusConflict, gin.H{"error": "quest is not open"})
	case errors.Is(err, service.ErrQuestNotInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "quest is not in progress"})
	case errors.Is(err, service.ErrQuestNotDeletable):
		c.JSON(http.StatusConflict, gin.H{"error": "quest can only be deleted while open or paused"})
	case errors.Is(err, service.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "application is not pending"})
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient funds, please add credits to your profile"})
	default:
		logger.Logger().Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": logMsg})
	}
}
