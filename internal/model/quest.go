package model

import (
	"time"

	"bayaniquest/pkg/money"

	"github.com/google/uuid"
)

type QuestStatus string

const (
	QuestStatusOpen       QuestStatus = "open"
	QuestStatusPaused     QuestStatus = "paused"
	QuestStatusInProgress QuestStatus = "in-progress"
	QuestStatusCompleted  QuestStatus = "completed"
	// Archived appears in list filters but no operation produces it;
	// it is reserved for out-of-band moderation.
	QuestStatusArchived QuestStatus = "archived"
)

type Quest struct {
	ID             uuid.UUID
	QuestGiverID   uuid.UUID
	QuestGiverName string

	Title       string
	Description string
	Category    string
	WorkType    string
	ImageURL    string

	LocationLat     *float64
	LocationLng     *float64
	LocationAddress string

	Price money.Amount

	Status           QuestStatus
	HiredApplicantID *uuid.UUID
	EscrowAmount     money.Amount
	ApplicantCount   int

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// QuestFilter narrows ListQuests. Zero values mean "any".
type QuestFilter struct {
	Status   QuestStatus
	Category string
	WorkType string
	GiverID  *uuid.UUID
	Limit    uint64
	Offset   uint64
}
