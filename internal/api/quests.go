package api

import (
	"errors"
	"net/http"
	"strconv"

	"bayaniquest/internal/middleware"
	"bayaniquest/internal/model"
	"bayaniquest/internal/service"
	"bayaniquest/pkg/auth"
	"bayaniquest/pkg/logger"
	"bayaniquest/pkg/money"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type questRoutes struct {
	qs service.QuestServiceI
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, a *auth.JWTAuth, authz *middleware.Authorization) {
	r := &questRoutes{qs: qs}

	h := handler.Group("/quests")
	{
		h.GET("", r.ListQuests)
		h.GET("/:quest_id", r.GetQuest)
	}

	gated := handler.Group("/quests")
	gated.Use(a.AuthMiddleware(), authz.ApprovedOnly())
	{
		gated.POST("", r.PostQuest)
		gated.PATCH("/:quest_id/pause", r.TogglePause)
		gated.DELETE("/:quest_id", r.DeleteQuest)

		gated.POST("/:quest_id/applications", r.Apply)
		gated.GET("/:quest_id/applications", r.ListQuestApplications)
		gated.POST("/:quest_id/hire", r.Hire)
		gated.POST("/:quest_id/complete", r.MarkComplete)
		gated.POST("/:quest_id/cancel-hire", r.CancelHired)
	}
}

type PostQuestRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description" binding:"required"`
	Category        string   `json:"category" binding:"required"`
	WorkType        string   `json:"work_type" binding:"required"`
	Price           string   `json:"price" binding:"required"`
	ImageURL        string   `json:"image_url"`
	LocationLat     *float64 `json:"location_lat"`
	LocationLng     *float64 `json:"location_lng"`
	LocationAddress string   `json:"location_address"`
}

func (r *questRoutes) PostQuest(c *gin.Context) {
	log := logger.Logger()

	var req PostQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	price, err := money.Parse(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}

	quest, err := r.qs.PostQuest(c.Request.Context(), caller.ID, service.PostQuestInput{
		GiverName:       caller.Name,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		WorkType:        req.WorkType,
		ImageURL:        req.ImageURL,
		LocationLat:     req.LocationLat,
		LocationLng:     req.LocationLng,
		LocationAddress: req.LocationAddress,
		Price:           price,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidPrice) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quest price must be positive"})
			return
		}
		log.Error("failed to post quest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to post quest"})
		return
	}

	c.JSON(http.StatusCreated, questBody(quest))
}

func (r *questRoutes) ListQuests(c *gin.Context) {
	log := logger.Logger()

	filter := model.QuestFilter{
		Status:   model.QuestStatus(c.Query("status")),
		Category: c.Query("category"),
		WorkType: c.Query("work_type"),
		Limit:    50,
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.ParseUint(limit, 10, 64); err == nil && n <= 100 {
			filter.Limit = n
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if n, err := strconv.ParseUint(offset, 10, 64); err == nil {
			filter.Offset = n
		}
	}
	if giver := c.Query("giver_id"); giver != "" {
		id, err := uuid.Parse(giver)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid giver_id"})
			return
		}
		filter.GiverID = &id
	}

	quests, err := r.qs.ListQuests(c.Request.Context(), filter)
	if err != nil {
		log.Error("failed to list quests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list quests"})
		return
	}

	out := make([]gin.H, len(quests))
	for i, q := range quests {
		out[i] = questBody(q)
	}
	c.JSON(http.StatusOK, out)
}

func (r *questRoutes) GetQuest(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	quest, err := r.qs.GetQuest(c.Request.Context(), questID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		return
	}

	c.JSON(http.StatusOK, questBody(quest))
}

func (r *questRoutes) TogglePause(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	status, err := r.qs.TogglePause(c.Request.Context(), questID, caller.ID)
	if err != nil {
		respondQuestError(c, err, "failed to toggle pause")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (r *questRoutes) DeleteQuest(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := r.qs.DeleteQuest(c.Request.Context(), questID, caller.ID); err != nil {
		respondQuestError(c, err, "failed to delete quest")
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *questRoutes) Apply(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	application, err := r.qs.Apply(c.Request.Context(), questID, caller.ID, caller.Name)
	if err != nil {
		respondQuestError(c, err, "failed to apply")
		return
	}

	c.JSON(http.StatusCreated, applicationBody(application))
}

type HireRequest struct {
	ApplicationID uuid.UUID `json:"application_id" binding:"required"`
}

func (r *questRoutes) Hire(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req HireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := r.qs.Hire(c.Request.Context(), questID, req.ApplicationID, caller.ID); err != nil {
		respondQuestError(c, err, "failed to hire applicant")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "applicant hired and funds are in escrow"})
}

func (r *questRoutes) MarkComplete(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := r.qs.MarkComplete(c.Request.Context(), questID, caller.ID); err != nil {
		respondQuestError(c, err, "failed to complete quest")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "quest completed and quester has been paid"})
}

type CancelHireRequest struct {
	ApplicationID uuid.UUID `json:"application_id" binding:"required"`
}

func (r *questRoutes) CancelHired(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CancelHireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	refunded, err := r.qs.CancelHired(c.Request.Context(), questID, req.ApplicationID, caller.ID)
	if err != nil {
		respondQuestError(c, err, "failed to cancel hire")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "hire cancelled, escrow refunded",
		"refunded": refunded.String(),
	})
}

func (r *questRoutes) ListQuestApplications(c *gin.Context) {
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	applications, err := r.qs.ListQuestApplications(c.Request.Context(), questID, caller.ID)
	if err != nil {
		respondQuestError(c, err, "failed to list applications")
		return
	}

	out := make([]gin.H, len(applications))
	for i, a := range applications {
		out[i] = applicationBody(a)
	}
	c.JSON(http.StatusOK, out)
}

func parseQuestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		logger.Logger().Error("failed to parse quest_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest_id"})
		return uuid.Nil, false
	}
	return id, true
}

func questBody(q *model.Quest) gin.H {
	return gin.H{
		"id":                 q.ID,
		"quest_giver_id":     q.QuestGiverID,
		"quest_giver_name":   q.QuestGiverName,
		"title":              q.Title,
		"description":        q.Description,
		"category":           q.Category,
		"work_type":          q.WorkType,
		"image_url":          q.ImageURL,
		"location_lat":       q.LocationLat,
		"location_lng":       q.LocationLng,
		"location_address":   q.LocationAddress,
		"price":              q.Price.String(),
		"status":             q.Status,
		"hired_applicant_id": q.HiredApplicantID,
		"escrow_amount":      q.EscrowAmount.String(),
		"applicant_count":    q.ApplicantCount,
		"created_at":         q.CreatedAt,
		"completed_at":       q.CompletedAt,
	}
}
