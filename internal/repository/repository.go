package repository

import (
	"context"
	"fmt"

	"bayaniquest/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("not found")

	ErrQuestNotOpen       = errors.New("quest is not open")
	ErrQuestNotInProgress = errors.New("quest is not in progress")
	ErrQuestNotDeletable  = errors.New("quest can only be deleted while open or paused")
	ErrQuestNotPausable   = errors.New("quest can only be paused or unpaused")

	ErrAlreadyApplied          = errors.New("already applied to quest")
	ErrApplicationNotPending   = errors.New("application is not pending")
	ErrApplicationNotCompleted = errors.New("application is not completed")
	ErrApplicationNotMatching  = errors.New("application does not belong to quest")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyRated      = errors.New("application already rated")
	ErrEmailTaken        = errors.New("email already registered")
)

type Repository struct {
	db *sqlx.DB
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Transaction runs t inside a single database transaction. Every
// lifecycle operation that touches money plus record state goes through
// here so the effects commit together or not at all.
func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

type Config struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func New(cfg Config) (*Repository, error) {
	db, err := sqlx.Connect("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Logger().Info("Connected to database successfully")

	return &Repository{db: db}, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}
