package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bayaniquest/internal/model"
	"bayaniquest/internal/repository"
	"bayaniquest/pkg/logger"
	"bayaniquest/pkg/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleNotifier receives lifecycle events after a transaction has
// committed. Delivery is best effort.
type LifecycleNotifier interface {
	QuestHired(questID, applicationID uuid.UUID)
	QuestCompleted(questID uuid.UUID)
	QuestHireCancelled(questID, applicationID uuid.UUID)
	ApplicationRejected(applicationID uuid.UUID)
}

type QuestService struct {
	repo     QuestRepository
	notifier LifecycleNotifier
}

func NewQuestService(repo QuestRepository, notifier LifecycleNotifier) *QuestService {
	return &QuestService{
		repo:     repo,
		notifier: notifier,
	}
}

type PostQuestInput struct {
	GiverName       string
	Title           string
	Description     string
	Category        string
	WorkType        string
	ImageURL        string
	LocationLat     *float64
	LocationLng     *float64
	LocationAddress string
	Price           money.Amount
}

func (s *QuestService) PostQuest(ctx context.Context, giverID uuid.UUID, in PostQuestInput) (*model.Quest, error) {
	if !in.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	q := &model.Quest{
		ID:              uuid.New(),
		QuestGiverID:    giverID,
		QuestGiverName:  in.GiverName,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		WorkType:        in.WorkType,
		ImageURL:        in.ImageURL,
		LocationLat:     in.LocationLat,
		LocationLng:     in.LocationLng,
		LocationAddress: in.LocationAddress,
		Price:           in.Price,
		Status:          model.QuestStatusOpen,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.CreateQuest(ctx, q); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}

	return q, nil
}

func (s *QuestService) GetQuest(ctx context.Context, id uuid.UUID) (*model.Quest, error) {
	q, err := s.repo.GetQuestByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}
	return q, nil
}

func (s *QuestService) ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error) {
	return s.repo.ListQuests(ctx, filter)
}

// TogglePause flips a quest between open and paused. Outside those two
// states the operation is refused.
func (s *QuestService) TogglePause(ctx context.Context, questID, callerID uuid.UUID) (model.QuestStatus, error) {
	q, err := s.GetQuest(ctx, questID)
	if err != nil {
		return "", err
	}
	if q.QuestGiverID != callerID {
		return "", ErrNotQuestOwner
	}

	var from, to model.QuestStatus
	switch q.Status {
	case model.QuestStatusOpen:
		from, to = model.QuestStatusOpen, model.QuestStatusPaused
	case model.QuestStatusPaused:
		from, to = model.QuestStatusPaused, model.QuestStatusOpen
	default:
		return "", ErrQuestNotOpen
	}

	err = s.repo.SetQuestStatus(ctx, questID, from, to)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return "", ErrQuestNotFound
		case errors.Is(err, repository.ErrQuestNotPausable):
			return "", ErrQuestNotOpen
		default:
			return "", fmt.Errorf("failed to toggle pause: %w", err)
		}
	}
	return to, nil
}

func (s *QuestService) DeleteQuest(ctx context.Context, questID, callerID uuid.UUID) error {
	q, err := s.GetQuest(ctx, questID)
	if err != nil {
		return err
	}
	if q.QuestGiverID != callerID {
		return ErrNotQuestOwner
	}

	err = s.repo.DeleteQuest(ctx, questID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrQuestNotFound
		case errors.Is(err, repository.ErrQuestNotDeletable):
			return ErrQuestNotDeletable
		default:
			return fmt.Errorf("failed to delete quest: %w", err)
		}
	}
	return nil
}

// Apply creates a pending application. Owning the quest and applying
// again while a previous application is still live are both refused.
func (s *QuestService) Apply(ctx context.Context, questID, questerID uuid.UUID, questerName string) (*model.Application, error) {
	q, err := s.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if q.QuestGiverID == questerID {
		return nil, ErrOwnQuest
	}
	if q.Status != model.QuestStatusOpen {
		return nil, ErrQuestClosed
	}

	a := &model.Application{
		ID:            uuid.New(),
		QuestID:       questID,
		QuesterID:     questerID,
		ApplicantName: questerName,
		AppliedAt:     time.Now().UTC(),
	}

	err = s.repo.CreateApplication(ctx, a)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyApplied):
			return nil, ErrAlreadyApplied
		case errors.Is(err, repository.ErrQuestNotOpen):
			return nil, ErrQuestClosed
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrQuestNotFound
		default:
			return nil, fmt.Errorf("failed to apply: %w", err)
		}
	}

	a.QuestGiverID = q.QuestGiverID
	a.QuestTitle = q.Title
	a.Status = model.ApplicationStatusPending
	return a, nil
}

// Hire moves the price into escrow and marks the chosen application
// hired, all in one transaction, then rejects the other pending
// applications in a best-effort pass.
func (s *QuestService) Hire(ctx context.Context, questID, applicationID, callerID uuid.UUID) error {
	q, err := s.GetQuest(ctx, questID)
	if err != nil {
		return err
	}
	if q.QuestGiverID != callerID {
		return ErrNotQuestOwner
	}
	if !q.Price.IsPositive() {
		return ErrInvalidPrice
	}

	a, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if a.QuestID != questID {
		return ErrApplicationNotFound
	}

	err = s.repo.HireApplicant(ctx, questID, applicationID, a.QuesterID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientFunds):
			return ErrInsufficientFunds
		case errors.Is(err, repository.ErrQuestNotOpen):
			return ErrQuestNotOpen
		case errors.Is(err, repository.ErrApplicationNotPending):
			return ErrNotPending
		case errors.Is(err, repository.ErrApplicationNotMatching):
			return ErrApplicationNotFound
		case errors.Is(err, repository.ErrNotFound):
			return ErrApplicationNotFound
		default:
			return fmt.Errorf("failed to hire applicant: %w", err)
		}
	}

	// The hire has committed; losing this pass leaves stale pending
	// applications, not inconsistent money.
	rejected, err := s.repo.RejectOtherPending(ctx, questID, applicationID)
	if err != nil {
		logger.Logger().Error("failed to reject other pending applications",
			zap.String("quest_id", questID.String()),
			zap.Error(err))
	} else if rejected > 0 {
		logger.Logger().Info("rejected other pending applications",
			zap.String("quest_id", questID.String()),
			zap.Int64("count", rejected))
	}

	if s.notifier != nil {
		s.notifier.QuestHired(questID, applicationID)
	}
	return nil
}

func (s *QuestService) RejectApplicant(ctx context.Context, applicationID, callerID uuid.UUID) error {
	a, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if a.QuestGiverID != callerID {
		return ErrNotQuestOwner
	}

	err = s.repo.RejectApplication(ctx, applicationID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrApplicationNotFound
		case errors.Is(err, repository.ErrApplicationNotPending):
			return ErrNotPending
		default:
			return fmt.Errorf("failed to reject applicant: %w", err)
		}
	}

	if s.notifier != nil {
		s.notifier.ApplicationRejected(applicationID)
	}
	return nil
}

func (s *QuestService) Withdraw(ctx context.Context, applicationID, callerID uuid.UUID) error {
	err := s.repo.WithdrawApplication(ctx, applicationID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrApplicationNotFound
		case errors.Is(err, repository.ErrApplicationNotPending):
			return ErrNotPending
		default:
			return fmt.Errorf("failed to withdraw application: %w", err)
		}
	}
	return nil
}

func (s *QuestService) MarkComplete(ctx context.Context, questID, callerID uuid.UUID) error {
	q, err := s.GetQuest(ctx, questID)
	if err != nil {
		return err
	}
	if q.QuestGiverID != callerID {
		return ErrNotQuestOwner
	}

	err = s.repo.CompleteQuest(ctx, questID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrQuestNotInProgress):
			return ErrQuestNotInProgress
		case errors.Is(err, repository.ErrNotFound):
			return ErrUserNotFound
		default:
			return fmt.Errorf("failed to complete quest: %w", err)
		}
	}

	if s.notifier != nil {
		s.notifier.QuestCompleted(questID)
	}
	return nil
}

func (s *QuestService) CancelHired(ctx context.Context, questID, applicationID, callerID uuid.UUID) (money.Amount, error) {
	q, err := s.GetQuest(ctx, questID)
	if err != nil {
		return 0, err
	}
	if q.QuestGiverID != callerID {
		return 0, ErrNotQuestOwner
	}

	refunded, err := s.repo.CancelHire(ctx, questID, applicationID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrQuestNotInProgress):
			return 0, ErrQuestNotInProgress
		case errors.Is(err, repository.ErrApplicationNotMatching), errors.Is(err, repository.ErrNotFound):
			return 0, ErrApplicationNotFound
		default:
			return 0, fmt.Errorf("failed to cancel hire: %w", err)
		}
	}

	if s.notifier != nil {
		s.notifier.QuestHireCancelled(questID, applicationID)
	}
	return refunded, nil
}

func (s *QuestService) ListMyApplications(ctx context.Context, questerID uuid.UUID) ([]*model.Application, error) {
	return s.repo.ListApplicationsByQuester(ctx, questerID)
}

func (s *QuestService) ListQuestApplications(ctx context.Context, questID, callerID uuid.UUID) ([]*model.Application, error) {
	q, err := s.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if q.QuestGiverID != callerID {
		return nil, ErrNotQuestOwner
	}
	return s.repo.ListApplicationsByQuest(ctx, questID)
}

func (s *QuestService) getApplication(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	a, err := s.repo.GetApplicationByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return a, nil
}
