package service

import (
	"context"
	"errors"
	"fmt"

	"bayaniquest/internal/model"
	"bayaniquest/internal/repository"

	"github.com/google/uuid"
)

type RatingService struct {
	repo RatingRepository
}

func NewRatingService(repo RatingRepository) *RatingService {
	return &RatingService{
		repo: repo,
	}
}

// RateCounterparty rates the other side of a completed application. The
// direction follows from who the caller is: the giver rates the quester,
// the quester rates the giver. Whichever rated flag applies may be set
// exactly once.
func (s *RatingService) RateCounterparty(ctx context.Context, applicationID, callerID uuid.UUID, stars int, review *string) error {
	if stars < 1 || stars > 5 {
		return ErrInvalidRating
	}

	a, err := s.repo.GetApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}

	var direction model.RatingDirection
	switch callerID {
	case a.QuestGiverID:
		direction = model.RateQuester
	case a.QuesterID:
		direction = model.RateGiver
	default:
		return ErrNotParticipant
	}

	err = s.repo.RateCounterparty(ctx, applicationID, direction, stars, review)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRated):
			return ErrAlreadyRated
		case errors.Is(err, repository.ErrApplicationNotCompleted):
			return ErrNotCompleted
		case errors.Is(err, repository.ErrNotFound):
			return ErrApplicationNotFound
		default:
			return fmt.Errorf("failed to submit rating: %w", err)
		}
	}
	return nil
}
