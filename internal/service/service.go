package service

import (
	"context"
	"errors"

	"bayaniquest/internal/model"
	"bayaniquest/pkg/money"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrQuestNotFound      = errors.New("quest not found")
	ErrOwnQuest           = errors.New("cannot apply to your own quest")
	ErrQuestClosed        = errors.New("quest is no longer accepting applications")
	ErrQuestNotOpen       = errors.New("quest is not open")
	ErrQuestNotInProgress = errors.New("quest is not in progress")
	ErrQuestNotDeletable  = errors.New("quest cannot be deleted in its current state")
	ErrNotQuestOwner      = errors.New("caller does not own this quest")
	ErrInvalidPrice       = errors.New("quest has an invalid price")

	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyApplied      = errors.New("already applied to this quest")
	ErrNotPending          = errors.New("application is not pending")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyRated      = errors.New("counterparty already rated")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5 stars")
	ErrNotCompleted      = errors.New("quest must be completed before rating")
	ErrNotParticipant    = errors.New("caller did not take part in this application")
)

type UserServiceI interface {
	Signup(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	TopUp(ctx context.Context, userID uuid.UUID) (money.Amount, error)
	ListUsersByStatus(ctx context.Context, status model.UserStatus) ([]*model.User, error)
	ApproveUser(ctx context.Context, id uuid.UUID) error
}

type QuestServiceI interface {
	PostQuest(ctx context.Context, giverID uuid.UUID, in PostQuestInput) (*model.Quest, error)
	GetQuest(ctx context.Context, id uuid.UUID) (*model.Quest, error)
	ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error)
	TogglePause(ctx context.Context, questID, callerID uuid.UUID) (model.QuestStatus, error)
	DeleteQuest(ctx context.Context, questID, callerID uuid.UUID) error

	Apply(ctx context.Context, questID, questerID uuid.UUID, questerName string) (*model.Application, error)
	Hire(ctx context.Context, questID, applicationID, callerID uuid.UUID) error
	RejectApplicant(ctx context.Context, applicationID, callerID uuid.UUID) error
	Withdraw(ctx context.Context, applicationID, callerID uuid.UUID) error
	MarkComplete(ctx context.Context, questID, callerID uuid.UUID) error
	CancelHired(ctx context.Context, questID, applicationID, callerID uuid.UUID) (money.Amount, error)

	ListMyApplications(ctx context.Context, questerID uuid.UUID) ([]*model.Application, error)
	ListQuestApplications(ctx context.Context, questID, callerID uuid.UUID) ([]*model.Application, error)
}

type RatingServiceI interface {
	RateCounterparty(ctx context.Context, applicationID, callerID uuid.UUID, stars int, review *string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	TopUpBalance(ctx context.Context, id uuid.UUID, amount money.Amount) error
	ListUsersByStatus(ctx context.Context, status model.UserStatus) ([]*model.User, error)
	ApproveUser(ctx context.Context, id uuid.UUID) error
}

type QuestRepository interface {
	CreateQuest(ctx context.Context, q *model.Quest) error
	GetQuestByID(ctx context.Context, id uuid.UUID) (*model.Quest, error)
	ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error)
	SetQuestStatus(ctx context.Context, id uuid.UUID, from, to model.QuestStatus) error
	DeleteQuest(ctx context.Context, id uuid.UUID) error

	CreateApplication(ctx context.Context, a *model.Application) error
	GetApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	ListApplicationsByQuester(ctx context.Context, questerID uuid.UUID) ([]*model.Application, error)
	ListApplicationsByQuest(ctx context.Context, questID uuid.UUID) ([]*model.Application, error)
	RejectApplication(ctx context.Context, id uuid.UUID) error
	WithdrawApplication(ctx context.Context, id, questerID uuid.UUID) error

	HireApplicant(ctx context.Context, questID, applicationID, applicantID, giverID uuid.UUID) error
	RejectOtherPending(ctx context.Context, questID, exceptApplicationID uuid.UUID) (int64, error)
	CompleteQuest(ctx context.Context, questID, giverID uuid.UUID) error
	CancelHire(ctx context.Context, questID, applicationID, giverID uuid.UUID) (money.Amount, error)
}

type RatingRepository interface {
	GetApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	RateCounterparty(ctx context.Context, applicationID uuid.UUID, direction model.RatingDirection, stars int, review *string) error
}
