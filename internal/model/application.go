package model

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusHired     ApplicationStatus = "hired"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusCompleted ApplicationStatus = "completed"
)

type Application struct {
	ID           uuid.UUID
	QuestID      uuid.UUID
	QuestGiverID uuid.UUID
	QuesterID    uuid.UUID

	ApplicantName string
	QuestTitle    string

	Status ApplicationStatus

	// Each rated flag is settable exactly once, together with its rating.
	QuesterRated  bool
	GiverRated    bool
	QuesterRating *int
	GiverRating   *int
	QuesterReview *string
	GiverReview   *string

	AppliedAt time.Time
}

// RatingDirection says which side of a completed application is being rated.
type RatingDirection string

const (
	// RateQuester: the giver rates the hired quester (sets QuesterRated).
	RateQuester RatingDirection = "quester"
	// RateGiver: the quester rates the giver (sets GiverRated).
	RateGiver RatingDirection = "giver"
)
