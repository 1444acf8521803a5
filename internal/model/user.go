package model

import (
	"fmt"
	"time"

	"bayaniquest/pkg/money"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	IsAdmin      bool
	AvatarURL    string

	WalletBalance money.Amount

	TotalRatingScore int
	NumberOfRatings  int

	QuestsPosted         int
	QuestsCompleted      int
	QuestsGivenCompleted int

	RegistrationDate time.Time
}

// AverageRating returns the display rating rounded to 1 decimal,
// or "N/A" before the first rating arrives.
func (u *User) AverageRating() string {
	if u.NumberOfRatings == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", float64(u.TotalRatingScore)/float64(u.NumberOfRatings))
}
